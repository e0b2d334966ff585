package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"TickerDeck/internal/service/polygon"
	"TickerDeck/internal/usecase"
	pkgch "TickerDeck/pkg/clickhouse"
	"TickerDeck/pkg/config"
	xhttp "TickerDeck/pkg/http"
	applogger "TickerDeck/pkg/logger"
)

// App encapsulates the entire application lifecycle: the HTTP surface, the
// upstream market feeds, and the optional tick recorder.
type App struct {
	cfg      *config.Config
	log      *applogger.Logger
	feeds    *polygon.Feeds
	recorder *usecase.Recorder
	proc     *usecase.TickProcessor
	handler  xhttp.Handler
	chClient *pkgch.Client

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	feeds *polygon.Feeds,
	recorder *usecase.Recorder,
	proc *usecase.TickProcessor,
	handler xhttp.Handler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		feeds:    feeds,
		recorder: recorder,
		proc:     proc,
		handler:  handler,
		chClient: chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithHost("0.0.0.0"),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Feeds connect lazily on the first subscription; the recorder's
	// wildcard subscription brings them up immediately when enabled.
	if a.recorder != nil {
		a.recorder.Start(ctx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Int("feeds", len(a.feeds.Managers())),
		applogger.Bool("recorder", a.recorder != nil),
	)

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	// Recorder first so the batch buffer drains before backends close.
	if a.recorder != nil {
		a.recorder.Shutdown(ctx)
	}

	a.feeds.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.proc != nil {
		a.proc.Close()
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	a.log.RemoveCollector()
	return nil
}

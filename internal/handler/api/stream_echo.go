package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	models "TickerDeck/internal/domain/models"
	domrepo "TickerDeck/internal/domain/repository"
	"TickerDeck/internal/service/feed"
	smetrics "TickerDeck/internal/service/metrics"
	"TickerDeck/internal/service/ratelimit"
	xlogger "TickerDeck/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	// clientSendBuffer bounds per-client fanout. A client that cannot keep
	// up has frames dropped rather than stalling the feed.
	clientSendBuffer = 100

	clientWriteWait   = 10 * time.Second
	clientPingPeriod  = 30 * time.Second
	subscribeCapacity = 20.0 // burst of subscribe frames per client
	subscribeRefill   = 5.0  // sustained frames per second
)

// FeedRouter maps a client-supplied symbol to the feed serving it and the
// symbol's canonical form on that feed.
type FeedRouter func(symbol string) (*feed.Manager, string)

// StreamEchoHandler upgrades /ws/stream and bridges browser subscriptions
// onto the upstream feed managers. Many clients subscribing to one symbol
// share a single upstream subscription.
type StreamEchoHandler struct {
	logger  *xlogger.Logger
	route   FeedRouter
	metrics domrepo.Metrics
	limiter *ratelimit.Limiter

	upgrader websocket.Upgrader
}

func NewStreamEchoHandler(logger *xlogger.Logger, route FeedRouter, metrics domrepo.Metrics, limiter *ratelimit.Limiter) *StreamEchoHandler {
	smetrics.Register()
	return &StreamEchoHandler{
		logger:  logger,
		route:   route,
		metrics: metrics,
		limiter: limiter,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *StreamEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/stream", h.Stream)
}

// clientFrame is what the browser sends.
type clientFrame struct {
	Type    string   `json:"type"` // subscribe | unsubscribe
	Symbols []string `json:"symbols"`
}

// serverFrame is what the browser receives.
type serverFrame struct {
	Type   string  `json:"type"` // tick | status | error
	Symbol string  `json:"symbol,omitempty"`
	Price  float64 `json:"price,omitempty"`
	Volume float64 `json:"volume,omitempty"`
	T      int64   `json:"t,omitempty"`
	Status string  `json:"status,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// wsClient is one connected browser. It is the feed listener for every
// symbol the browser subscribed to.
type wsClient struct {
	conn    *websocket.Conn
	send    chan serverFrame
	metrics domrepo.Metrics

	mu   sync.Mutex
	subs map[string]*feed.Manager // canonical symbol → owning feed
}

// OnTick implements feed.Listener. Slow clients lose frames, not the feed.
func (cl *wsClient) OnTick(t *models.Tick) {
	select {
	case cl.send <- serverFrame{Type: "tick", Symbol: t.Symbol, Price: t.Price, Volume: t.Volume, T: t.Timestamp}:
	default:
		cl.metrics.RecordError("ws_client_drop")
	}
}

// OnStatus implements feed.Listener.
func (cl *wsClient) OnStatus(status string) {
	select {
	case cl.send <- serverFrame{Type: "status", Status: status}:
	default:
	}
}

func (h *StreamEchoHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	cl := &wsClient{
		conn:    conn,
		send:    make(chan serverFrame, clientSendBuffer),
		metrics: h.metrics,
		subs:    make(map[string]*feed.Manager),
	}
	done := make(chan struct{})
	go h.writeLoop(cl, done)

	smetrics.StreamClients.Inc()
	defer smetrics.StreamClients.Dec()

	remote := conn.RemoteAddr().String()
	h.logger.Debug("ws client connected", xlogger.String("remote", remote))

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			break
		}
		if !h.limiter.Allow(remote, subscribeCapacity, subscribeRefill) {
			cl.OnStatus("rate_limited")
			continue
		}

		switch frame.Type {
		case "subscribe":
			smetrics.StreamFrames.WithLabelValues("subscribe").Inc()
			for _, s := range frame.Symbols {
				h.subscribe(cl, s)
			}
		case "unsubscribe":
			smetrics.StreamFrames.WithLabelValues("unsubscribe").Inc()
			for _, s := range frame.Symbols {
				h.unsubscribe(cl, s)
			}
		default:
			smetrics.StreamFrames.WithLabelValues("unknown").Inc()
			select {
			case cl.send <- serverFrame{Type: "error", Error: "unknown frame type"}:
			default:
			}
		}
	}

	// connection gone: release every shared subscription this client held
	cl.mu.Lock()
	subs := cl.subs
	cl.subs = nil
	cl.mu.Unlock()
	for canon, mgr := range subs {
		mgr.Unsubscribe(canon, cl)
	}
	close(done)
	_ = conn.Close()
	h.logger.Debug("ws client disconnected", xlogger.String("remote", remote))
	return nil
}

func (h *StreamEchoHandler) subscribe(cl *wsClient, symbol string) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return
	}
	mgr, canon := h.route(symbol)
	if mgr == nil {
		select {
		case cl.send <- serverFrame{Type: "error", Symbol: symbol, Error: "no feed for symbol"}:
		default:
		}
		return
	}

	cl.mu.Lock()
	if cl.subs == nil {
		cl.mu.Unlock()
		return
	}
	if _, dup := cl.subs[canon]; dup {
		cl.mu.Unlock()
		return
	}
	cl.subs[canon] = mgr
	cl.mu.Unlock()

	mgr.Subscribe(canon, cl)
}

func (h *StreamEchoHandler) unsubscribe(cl *wsClient, symbol string) {
	mgr, canon := h.route(symbol)
	if mgr == nil {
		return
	}

	cl.mu.Lock()
	if _, ok := cl.subs[canon]; !ok {
		cl.mu.Unlock()
		return
	}
	delete(cl.subs, canon)
	cl.mu.Unlock()

	mgr.Unsubscribe(canon, cl)
}

func (h *StreamEchoHandler) writeLoop(cl *wsClient, done <-chan struct{}) {
	ping := time.NewTicker(clientPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case frame := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
			if err := cl.conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ping.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(clientWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package usecase

import (
	"context"
	"sync"
	"time"

	"TickerDeck/internal/domain/models"
	drepo "TickerDeck/internal/domain/repository"
	mid "TickerDeck/internal/middleware"
	"TickerDeck/internal/service/feed"
	"TickerDeck/pkg/logger"
)

// Batcher accumulates ticks and flushes them to the processor in batches,
// on size or on a timer, whichever fires first. It satisfies the pipeline's
// Proc interface so it can sit behind validation and throttling.
type Batcher struct {
	proc     *TickProcessor
	size     int
	interval time.Duration

	mu      sync.Mutex
	buf     []*models.Tick
	stopCh  chan struct{}
	started bool
}

// NewBatcher creates a batcher flushing every size ticks or interval.
func NewBatcher(proc *TickProcessor, size int, interval time.Duration) *Batcher {
	if size <= 0 {
		size = 200
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Batcher{
		proc:     proc,
		size:     size,
		interval: interval,
		buf:      make([]*models.Tick, 0, size),
		stopCh:   make(chan struct{}),
	}
}

var _ mid.Proc = (*Batcher)(nil)

// Start launches the timer flush loop.
func (b *Batcher) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.stopCh:
				return
			case <-ticker.C:
				b.Flush(ctx)
			}
		}
	}()
}

// Stop halts the timer loop and flushes whatever is buffered.
func (b *Batcher) Stop(ctx context.Context) {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.mu.Unlock()
	close(b.stopCh)
	b.Flush(ctx)
}

// Process buffers one tick, flushing when the batch is full.
func (b *Batcher) Process(ctx context.Context, t *models.Tick) error {
	b.mu.Lock()
	b.buf = append(b.buf, t)
	full := len(b.buf) >= b.size
	b.mu.Unlock()

	if full {
		return b.Flush(ctx)
	}
	return nil
}

// Flush sends the current batch downstream.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	if len(b.buf) == 0 {
		b.mu.Unlock()
		return nil
	}
	batch := b.buf
	b.buf = make([]*models.Tick, 0, b.size)
	b.mu.Unlock()

	return b.proc.ProcessBatch(ctx, batch)
}

// Recorder mirrors the whole live feed into the recording backend. It is a
// wildcard feed listener whose ticks run through the realtime pipeline into
// a batcher, so intraday bars can later be aggregated from what it stored.
type Recorder struct {
	mgrs    []*feed.Manager
	pipe    *mid.RealtimePipeline
	batch   *Batcher
	metrics drepo.Metrics
	log     *logger.Logger

	mu  sync.Mutex
	ctx context.Context
}

// NewRecorder creates a recorder over every configured feed.
func NewRecorder(mgrs []*feed.Manager, pipe *mid.RealtimePipeline, batch *Batcher, metrics drepo.Metrics, log *logger.Logger) *Recorder {
	return &Recorder{
		mgrs:    mgrs,
		pipe:    pipe,
		batch:   batch,
		metrics: metrics,
		log:     log,
		ctx:     context.Background(),
	}
}

// Start subscribes to the wildcard channel. The subscription is silent so
// the recorder's own churn never surfaces as status noise to dashboards.
func (r *Recorder) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	r.pipe.Start(ctx)
	r.batch.Start(ctx)
	for _, mgr := range r.mgrs {
		mgr.Subscribe(feed.Wildcard, r, feed.Silent())
	}
	r.log.Info("recorder started", logger.Int("feeds", len(r.mgrs)))
}

// Shutdown unsubscribes and drains the batch buffer.
func (r *Recorder) Shutdown(ctx context.Context) {
	for _, mgr := range r.mgrs {
		mgr.Unsubscribe(feed.Wildcard, r)
	}
	r.pipe.Stop()
	r.batch.Stop(ctx)
	r.log.Info("recorder stopped")
}

// OnTick implements feed.Listener.
func (r *Recorder) OnTick(t *models.Tick) {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()

	r.metrics.RecordLastPrice(t.Symbol, t.Price)
	if err := r.pipe.Process(ctx, t); err != nil {
		r.log.Debug("tick buffered after backend error", logger.String("symbol", t.Symbol), logger.Error(err))
	}
}

// OnStatus implements feed.Listener.
func (r *Recorder) OnStatus(status string) {
	r.log.Debug("recorder feed status", logger.String("status", status))
}

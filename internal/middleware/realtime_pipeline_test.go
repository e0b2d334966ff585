package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"TickerDeck/internal/domain/models"
)

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string, string)  {}
func (nopMetrics) RecordError(string)                {}
func (nopMetrics) RecordLastPrice(string, float64)   {}
func (nopMetrics) RecordLatency(string, float64)     {}
func (nopMetrics) RecordFanout(string, int)          {}
func (nopMetrics) RecordFeedState(string, string)    {}

type captureProc struct {
	mu    sync.Mutex
	ticks []*models.Tick
	err   error
}

func (p *captureProc) Process(_ context.Context, t *models.Tick) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.ticks = append(p.ticks, t)
	return nil
}

func (p *captureProc) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ticks)
}

func tick(symbol string) *models.Tick {
	return &models.Tick{Symbol: symbol, Price: 100, Volume: 1, Timestamp: time.Now().UnixMilli()}
}

func TestPipelineForwardsValidTick(t *testing.T) {
	proc := &captureProc{}
	p := NewRealtimePipeline(proc, nopMetrics{})

	if err := p.Process(context.Background(), tick("AAPL")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := proc.count(); got != 1 {
		t.Fatalf("expected 1 tick downstream, got %d", got)
	}
}

func TestPipelineRejectsInvalidTicks(t *testing.T) {
	proc := &captureProc{}
	p := NewRealtimePipeline(proc, nopMetrics{})

	bad := []*models.Tick{
		nil,
		{Symbol: "", Price: 1, Volume: 1, Timestamp: 1},
		{Symbol: "AAPL", Price: 1, Volume: 1, Timestamp: 0},
		{Symbol: "AAPL", Price: -1, Volume: 1, Timestamp: 1},
	}
	for i, tk := range bad {
		if err := p.Process(context.Background(), tk); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if got := proc.count(); got != 0 {
		t.Fatalf("invalid ticks reached downstream: %d", got)
	}
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	proc := &captureProc{}
	p := NewRealtimePipeline(proc, nopMetrics{}, WithMaxRPS(1))

	if err := p.Process(context.Background(), tick("AAPL")); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	// Second tick inside the same interval is dropped without error.
	if err := p.Process(context.Background(), tick("AAPL")); err != nil {
		t.Fatalf("throttled tick should not error: %v", err)
	}
	// A different symbol has its own window.
	if err := p.Process(context.Background(), tick("MSFT")); err != nil {
		t.Fatalf("other symbol: %v", err)
	}
	if got := proc.count(); got != 2 {
		t.Fatalf("expected 2 ticks downstream, got %d", got)
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &captureProc{err: errors.New("backend down")}
	p := NewRealtimePipeline(proc, nopMetrics{}, WithBufferSize(4))

	if err := p.Process(context.Background(), tick("AAPL")); err == nil {
		t.Fatal("expected downstream error")
	}
	if got := len(p.bufCh); got != 1 {
		t.Fatalf("expected 1 buffered tick, got %d", got)
	}
}

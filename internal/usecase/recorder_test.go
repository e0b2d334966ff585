package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"TickerDeck/internal/domain/models"
)

type capturePublisher struct {
	mu      sync.Mutex
	batches [][]*models.Tick
	singles int
}

func (p *capturePublisher) Publish(_ context.Context, _ *models.Tick) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.singles++
	return nil
}

func (p *capturePublisher) PublishBatch(_ context.Context, ticks []*models.Tick) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, ticks)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) batchSizes() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	sizes := make([]int, len(p.batches))
	for i, b := range p.batches {
		sizes[i] = len(b)
	}
	return sizes
}

func recTick(symbol string) *models.Tick {
	return &models.Tick{Symbol: symbol, Price: 42, Volume: 1, Timestamp: time.Now().UnixMilli()}
}

func TestBatcherFlushesOnSize(t *testing.T) {
	pub := &capturePublisher{}
	proc := NewTickProcessor(pub, nil, nopMetrics{}, "kafka")
	b := NewBatcher(proc, 3, time.Hour)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := b.Process(ctx, recTick("AAPL")); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}

	sizes := pub.batchSizes()
	if len(sizes) != 1 || sizes[0] != 3 {
		t.Fatalf("expected one batch of 3, got %v", sizes)
	}
	if pub.singles != 0 {
		t.Fatalf("batched path should never publish singles, got %d", pub.singles)
	}
}

func TestBatcherStopFlushesRemainder(t *testing.T) {
	pub := &capturePublisher{}
	proc := NewTickProcessor(pub, nil, nopMetrics{}, "kafka")
	b := NewBatcher(proc, 100, time.Hour)

	ctx := context.Background()
	b.Start(ctx)
	if err := b.Process(ctx, recTick("AAPL")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := b.Process(ctx, recTick("MSFT")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	b.Stop(ctx)

	sizes := pub.batchSizes()
	if len(sizes) != 1 || sizes[0] != 2 {
		t.Fatalf("expected the remainder flushed as one batch of 2, got %v", sizes)
	}
}

func TestTickProcessorRejectsUnknownBackend(t *testing.T) {
	proc := NewTickProcessor(nil, nil, nopMetrics{}, "postgres")
	if err := proc.Process(context.Background(), recTick("AAPL")); err == nil {
		t.Fatal("expected unknown backend error")
	}
}

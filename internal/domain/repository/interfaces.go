package repository

import (
	"context"
	"time"

	"TickerDeck/internal/domain/models"
)

// LayoutStore persists a board's widget collection. Implementations must
// treat malformed stored data as absent, never as an error surfaced to the
// caller beyond logging.
type LayoutStore interface {
	Save(ctx context.Context, board string, layout *models.Layout) error
	Load(ctx context.Context, board string) (*models.Layout, error)
	Delete(ctx context.Context, board string) error
}

// MarketData is the read-only REST collaborator for snapshots and daily bars.
type MarketData interface {
	// Snapshots returns, for each requested canonical ticker, today's bar,
	// the previous session's bar, and the last trade price.
	Snapshots(ctx context.Context, tickers []string) ([]models.Snapshot, error)
	// DailyBars returns day-resolution bars for one ticker.
	DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]models.Bar, error)
}

// TickPublisher pushes recorded ticks to a message backend.
type TickPublisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	Close() error
}

// TickStore persists recorded ticks and serves intraday bar queries.
type TickStore interface {
	Store(ctx context.Context, t *models.Tick) error
	StoreBatch(ctx context.Context, ticks []*models.Tick) error
	QueryBars(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Bar, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational counters for the feed and layout paths.
type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordFanout(symbol string, listeners int)
	RecordFeedState(feed, state string)
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"TickerDeck/internal/domain/models"
	domrepo "TickerDeck/internal/domain/repository"
)

// BarsUseCase serves chart data. Intraday timeframes aggregate recorded
// ticks; the daily timeframe goes to the vendor's aggregates endpoint.
type BarsUseCase struct {
	ticks  domrepo.TickStore
	market domrepo.MarketData
}

func NewBarsUseCase(ticks domrepo.TickStore, market domrepo.MarketData) *BarsUseCase {
	return &BarsUseCase{ticks: ticks, market: market}
}

type GetBarsParams struct {
	Symbol    string
	From      time.Time
	To        time.Time
	Timeframe domrepo.Timeframe
	Limit     int
}

type GetBarsResult struct {
	Symbol    string
	Timeframe string
	From      time.Time
	To        time.Time
	Count     int
	Bars      []models.Bar
}

func (uc *BarsUseCase) GetBars(ctx context.Context, p GetBarsParams) (*GetBarsResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	var (
		bars []models.Bar
		err  error
	)
	if p.Timeframe.Intraday() {
		if uc.ticks == nil {
			return nil, fmt.Errorf("intraday bars unavailable: tick recording disabled")
		}
		bars, err = uc.ticks.QueryBars(ctx, p.Symbol, p.From, p.To, p.Timeframe)
	} else {
		bars, err = uc.market.DailyBars(ctx, p.Symbol, p.From, p.To)
	}
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	if len(bars) > p.Limit {
		bars = bars[:p.Limit]
	}

	return &GetBarsResult{
		Symbol:    p.Symbol,
		Timeframe: string(p.Timeframe),
		From:      p.From,
		To:        p.To,
		Count:     len(bars),
		Bars:      bars,
	}, nil
}

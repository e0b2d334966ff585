package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"TickerDeck/internal/domain/models"
	drepo "TickerDeck/internal/domain/repository"
	"TickerDeck/pkg/cache"
	"TickerDeck/pkg/logger"
)

// CacheLayoutStore persists board layouts as JSON documents behind the
// cache service, so the same store works over memory, Redis, or the
// layered combination. Layouts carry no TTL; a board's layout lives until
// explicitly deleted.
type CacheLayoutStore struct {
	cache cache.Service
	log   *logger.Logger
}

// NewCacheLayoutStore creates a cache-backed layout store.
func NewCacheLayoutStore(c cache.Service, log *logger.Logger) *CacheLayoutStore {
	return &CacheLayoutStore{cache: c, log: log}
}

var _ drepo.LayoutStore = (*CacheLayoutStore)(nil)

func layoutKey(board string) string {
	return cache.GenerateKey("layout", board)
}

func (s *CacheLayoutStore) Save(ctx context.Context, board string, layout *models.Layout) error {
	data, err := json.Marshal(layout)
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	return s.cache.Set(ctx, layoutKey(board), string(data), 0)
}

// Load returns nil without error when no layout is stored. A document that
// fails to decode is logged and reported as absent so a corrupt entry never
// blocks the board from rendering.
func (s *CacheLayoutStore) Load(ctx context.Context, board string) (*models.Layout, error) {
	var raw string
	err := s.cache.Get(ctx, layoutKey(board), &raw)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load layout: %w", err)
	}

	var layout models.Layout
	if err := json.Unmarshal([]byte(raw), &layout); err != nil {
		s.log.Warn("stored layout unreadable, discarding",
			logger.String("board", board),
			logger.Error(err),
		)
		return nil, nil
	}
	return &layout, nil
}

func (s *CacheLayoutStore) Delete(ctx context.Context, board string) error {
	return s.cache.Delete(ctx, layoutKey(board))
}

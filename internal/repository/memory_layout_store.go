package repository

import (
	"context"
	"encoding/json"
	"sync"

	"TickerDeck/internal/domain/models"
	drepo "TickerDeck/internal/domain/repository"
)

// MemoryLayoutStore keeps layouts in process memory. Used when no Redis is
// configured and as the backing store in tests. Documents are stored as JSON
// so load/save behaves exactly like the Redis store, including the handling
// of malformed payloads.
type MemoryLayoutStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryLayoutStore creates an empty in-process layout store.
func NewMemoryLayoutStore() *MemoryLayoutStore {
	return &MemoryLayoutStore{data: make(map[string][]byte)}
}

var _ drepo.LayoutStore = (*MemoryLayoutStore)(nil)

func (s *MemoryLayoutStore) Save(_ context.Context, board string, layout *models.Layout) error {
	raw, err := json.Marshal(layout)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[board] = raw
	s.mu.Unlock()
	return nil
}

// Load returns nil without error when no layout is stored for board.
func (s *MemoryLayoutStore) Load(_ context.Context, board string) (*models.Layout, error) {
	s.mu.RLock()
	raw, ok := s.data[board]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var layout models.Layout
	if err := json.Unmarshal(raw, &layout); err != nil {
		return nil, err
	}
	return &layout, nil
}

func (s *MemoryLayoutStore) Delete(_ context.Context, board string) error {
	s.mu.Lock()
	delete(s.data, board)
	s.mu.Unlock()
	return nil
}

package repository

import (
	"context"
	"testing"

	"TickerDeck/internal/domain/models"
	"TickerDeck/pkg/cache"
	"TickerDeck/pkg/logger"
)

func newTestStore(t *testing.T) *CacheLayoutStore {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewCacheLayoutStore(cache.NewMemoryCache(), log)
}

func TestCacheLayoutStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved := models.NewLayout([]models.Widget{
		{ID: "w1", Kind: models.KindChart, Title: "AAPL", Position: models.Position{X: 10, Y: 20}, Size: models.Size{Width: 640, Height: 420}},
		{ID: "w2", Kind: models.KindNote, Title: "Note", Position: models.Position{X: 700, Y: 20}, Size: models.Size{Width: 320, Height: 220}},
	})
	if err := s.Save(ctx, "main", saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load(ctx, "main")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected stored layout")
	}
	if loaded.Version != models.LayoutVersion {
		t.Fatalf("version = %d, want %d", loaded.Version, models.LayoutVersion)
	}
	if len(loaded.Widgets) != 2 || loaded.Widgets[0].ID != "w1" || loaded.Widgets[1].ID != "w2" {
		t.Fatalf("widgets not preserved in order: %+v", loaded.Widgets)
	}
	if loaded.Widgets[0].Position.X != 10 || loaded.Widgets[0].Size.Width != 640 {
		t.Fatalf("widget rect not preserved: %+v", loaded.Widgets[0])
	}
}

func TestCacheLayoutStoreMissingBoard(t *testing.T) {
	s := newTestStore(t)

	loaded, err := s.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil for absent board, got %+v", loaded)
	}
}

func TestCacheLayoutStoreCorruptDocumentDiscarded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.cache.Set(ctx, layoutKey("main"), "{not json", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	loaded, err := s.Load(ctx, "main")
	if err != nil {
		t.Fatalf("corrupt document must not error: %v", err)
	}
	if loaded != nil {
		t.Fatalf("corrupt document must read as absent, got %+v", loaded)
	}
}

func TestCacheLayoutStoreDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, "main", models.NewLayout(nil)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(ctx, "main"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	loaded, err := s.Load(ctx, "main")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != nil {
		t.Fatal("layout should be gone after Delete")
	}
}

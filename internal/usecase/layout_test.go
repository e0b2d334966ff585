package usecase

import (
	"context"
	"testing"

	"TickerDeck/internal/domain/models"
	"TickerDeck/internal/repository"
	"TickerDeck/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordMessageSent(string, string)  {}
func (nopMetrics) RecordError(string)                {}
func (nopMetrics) RecordLastPrice(string, float64)   {}
func (nopMetrics) RecordLatency(string, float64)     {}
func (nopMetrics) RecordFanout(string, int)          {}
func (nopMetrics) RecordFeedState(string, string)    {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func newTestLayout(t *testing.T) (*LayoutService, *repository.MemoryLayoutStore) {
	t.Helper()
	store := repository.NewMemoryLayoutStore()
	svc := NewLayoutService(store, testLogger(t), nopMetrics{}, WithMinWidgetSize(200, 140))
	return svc, store
}

func TestAddWidgetCentered(t *testing.T) {
	svc, _ := newTestLayout(t)
	ctx := context.Background()

	w := svc.AddWidget(ctx, "main", models.KindChart, models.Size{Width: 1920, Height: 1080}, "")
	if w.ID == "" {
		t.Fatal("missing id")
	}
	if w.Title != "Price Chart" {
		t.Fatalf("title = %q", w.Title)
	}
	// chart template is 640x420
	if w.Position.X != 640 || w.Position.Y != 330 {
		t.Fatalf("position = %+v", w.Position)
	}

	if got := svc.Widgets(ctx, "main"); len(got) != 1 || got[0].ID != w.ID {
		t.Fatalf("widgets = %+v", got)
	}
}

func TestAddWidgetFallbackOffset(t *testing.T) {
	svc, _ := newTestLayout(t)

	w := svc.AddWidget(context.Background(), "main", models.KindNote, models.Size{}, "Ideas")
	if w.Position.X != 80 || w.Position.Y != 80 {
		t.Fatalf("position = %+v", w.Position)
	}
	if w.Title != "Ideas" {
		t.Fatalf("title override lost: %q", w.Title)
	}
}

func TestRemoveWidget(t *testing.T) {
	svc, _ := newTestLayout(t)
	ctx := context.Background()

	w := svc.AddWidget(ctx, "main", models.KindWatchlist, models.Size{Width: 1280, Height: 800}, "")
	svc.RemoveWidget(ctx, "main", w.ID)
	if got := svc.Widgets(ctx, "main"); len(got) != 0 {
		t.Fatalf("widgets = %+v", got)
	}

	// removing an unknown id is a no-op
	svc.RemoveWidget(ctx, "main", "nope")
}

func TestMoveClampsNegative(t *testing.T) {
	svc, _ := newTestLayout(t)
	ctx := context.Background()

	w := svc.AddWidget(ctx, "main", models.KindChart, models.Size{Width: 1280, Height: 800}, "")
	got, err := svc.MoveWidget(ctx, "main", w.ID, -40, 25)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if got.Position.X != 0 || got.Position.Y != 25 {
		t.Fatalf("position = %+v", got.Position)
	}
}

func TestMoveUnknownWidget(t *testing.T) {
	svc, _ := newTestLayout(t)
	if _, err := svc.MoveWidget(context.Background(), "main", "nope", 1, 1); err != ErrWidgetNotFound {
		t.Fatalf("err = %v", err)
	}
}

func TestMaximizeRestoresRect(t *testing.T) {
	svc, _ := newTestLayout(t)
	ctx := context.Background()

	w := svc.AddWidget(ctx, "main", models.KindChart, models.Size{Width: 1280, Height: 800}, "")
	before := w.Rect()

	got, err := svc.ToggleMaximize(ctx, "main", w.ID)
	if err != nil {
		t.Fatalf("maximize: %v", err)
	}
	if !got.Maximized {
		t.Fatal("not maximized")
	}
	if got.Rect() != before {
		t.Fatalf("stored rect changed: %+v", got.Rect())
	}

	// entering a gesture while maximized is rejected
	if err := svc.BeginDrag(ctx, "main", w.ID, models.Position{}); err != ErrMaximized {
		t.Fatalf("err = %v", err)
	}

	got, _ = svc.ToggleMaximize(ctx, "main", w.ID)
	if got.Maximized || got.Rect() != before {
		t.Fatalf("restore failed: %+v", got)
	}
}

func TestGestureSessionLifecycle(t *testing.T) {
	svc, _ := newTestLayout(t)
	ctx := context.Background()

	w := svc.AddWidget(ctx, "main", models.KindChart, models.Size{Width: 1280, Height: 800}, "")

	if _, err := svc.UpdateGesture(ctx, "main", w.ID, models.Position{}); err != ErrNoSession {
		t.Fatalf("err = %v", err)
	}

	if err := svc.BeginDrag(ctx, "main", w.ID, models.Position{X: 400, Y: 300}); err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	got, err := svc.UpdateGesture(ctx, "main", w.ID, models.Position{X: 410, Y: 320})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := models.Position{X: w.Position.X + 10, Y: w.Position.Y + 20}
	if got.Position != want {
		t.Fatalf("position = %+v want %+v", got.Position, want)
	}

	svc.EndGesture("main", w.ID)
	if _, err := svc.UpdateGesture(ctx, "main", w.ID, models.Position{}); err != ErrNoSession {
		t.Fatalf("session not closed: %v", err)
	}
}

func TestResizeGestureAppliesAnchoredRect(t *testing.T) {
	svc, _ := newTestLayout(t)
	ctx := context.Background()

	w := svc.AddWidget(ctx, "main", models.KindChart, models.Size{Width: 1280, Height: 800}, "")
	eastEdge := w.Position.X + w.Size.Width

	if err := svc.BeginResize(ctx, "main", w.ID, DirW, models.Position{X: w.Position.X, Y: 0}); err != nil {
		t.Fatalf("begin resize: %v", err)
	}
	got, err := svc.UpdateGesture(ctx, "main", w.ID, models.Position{X: w.Position.X + 100, Y: 0})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Position.X+got.Size.Width != eastEdge {
		t.Fatalf("east edge moved: %v", got.Position.X+got.Size.Width)
	}
	if got.Size.Width != w.Size.Width-100 {
		t.Fatalf("width = %v", got.Size.Width)
	}
}

func TestLayoutPersistsAcrossServices(t *testing.T) {
	store := repository.NewMemoryLayoutStore()
	log := testLogger(t)
	ctx := context.Background()

	first := NewLayoutService(store, log, nopMetrics{})
	w := first.AddWidget(ctx, "main", models.KindSnapshot, models.Size{Width: 1280, Height: 800}, "")
	if _, err := first.MoveWidget(ctx, "main", w.ID, 10, 20); err != nil {
		t.Fatalf("move: %v", err)
	}

	// a fresh service over the same store sees the persisted collection
	second := NewLayoutService(store, log, nopMetrics{})
	got := second.Widgets(ctx, "main")
	if len(got) != 1 {
		t.Fatalf("widgets = %+v", got)
	}
	if got[0].ID != w.ID || got[0].Position.X != 10 || got[0].Position.Y != 20 {
		t.Fatalf("restored = %+v", got[0])
	}
}

func TestEmptyLayoutPersists(t *testing.T) {
	store := repository.NewMemoryLayoutStore()
	log := testLogger(t)
	ctx := context.Background()

	first := NewLayoutService(store, log, nopMetrics{})
	w := first.AddWidget(ctx, "main", models.KindNote, models.Size{Width: 1280, Height: 800}, "")
	first.RemoveWidget(ctx, "main", w.ID)

	// removing the last widget is itself a persisted state, not absence
	layout, err := store.Load(ctx, "main")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if layout == nil || layout.Version != models.LayoutVersion || len(layout.Widgets) != 0 {
		t.Fatalf("layout = %+v", layout)
	}
}

func TestUnknownVersionDiscarded(t *testing.T) {
	store := repository.NewMemoryLayoutStore()
	ctx := context.Background()
	if err := store.Save(ctx, "main", &models.Layout{Version: 99, Widgets: []models.Widget{{ID: "x"}}}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := NewLayoutService(store, testLogger(t), nopMetrics{})
	if got := svc.Widgets(ctx, "main"); len(got) != 0 {
		t.Fatalf("expected discarded layout, got %+v", got)
	}
}

func TestReplaceLayout(t *testing.T) {
	svc, store := newTestLayout(t)
	ctx := context.Background()

	svc.AddWidget(ctx, "main", models.KindChart, models.Size{Width: 1280, Height: 800}, "")
	got := svc.ReplaceLayout(ctx, "main", []models.Widget{
		{Kind: models.KindNote, Title: "a", Position: models.Position{X: -5, Y: 3}, Size: models.Size{Width: 300, Height: 200}},
		{ID: "keep-me", Kind: models.KindChart, Title: "b", Size: models.Size{Width: 400, Height: 300}},
	})
	if len(got) != 2 {
		t.Fatalf("widgets = %+v", got)
	}
	if got[0].ID == "" {
		t.Fatal("replace must assign missing ids")
	}
	if got[0].Position.X != 0 {
		t.Fatalf("x not clamped: %v", got[0].Position.X)
	}
	if got[1].ID != "keep-me" {
		t.Fatalf("id rewritten: %q", got[1].ID)
	}

	layout, err := store.Load(ctx, "main")
	if err != nil || layout == nil || len(layout.Widgets) != 2 {
		t.Fatalf("persisted = %+v err = %v", layout, err)
	}
}

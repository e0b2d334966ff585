package usecase

import (
	"context"
	"errors"
	"sync"

	"TickerDeck/internal/domain/models"
	drepo "TickerDeck/internal/domain/repository"
	"TickerDeck/pkg/logger"
)

// ErrWidgetNotFound is returned by mutations targeting an unknown widget id.
var ErrWidgetNotFound = errors.New("widget not found")

// ErrNoSession is returned when a gesture update arrives without pointer-down.
var ErrNoSession = errors.New("no active gesture session")

// LayoutService tracks each board's widget collection and drives the
// drag/resize gesture sessions. Every mutation is written through to the
// layout store; persistence failures are logged and never fatal.
type LayoutService struct {
	store   drepo.LayoutStore
	log     *logger.Logger
	metrics drepo.Metrics

	minWidth  float64
	minHeight float64

	mu       sync.Mutex
	boards   map[string][]models.Widget
	sessions map[string]*Session // widget id → active gesture
}

// LayoutOption configures LayoutService.
type LayoutOption func(*LayoutService)

// WithMinWidgetSize sets the minimum width/height enforced during resize
// gestures.
func WithMinWidgetSize(w, h float64) LayoutOption {
	return func(s *LayoutService) {
		if w > 0 {
			s.minWidth = w
		}
		if h > 0 {
			s.minHeight = h
		}
	}
}

// NewLayoutService creates a layout service backed by store.
func NewLayoutService(store drepo.LayoutStore, log *logger.Logger, metrics drepo.Metrics, opts ...LayoutOption) *LayoutService {
	s := &LayoutService{
		store:   store,
		log:     log,
		metrics: metrics,

		minWidth:  200,
		minHeight: 140,

		boards:   make(map[string][]models.Widget),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Widgets returns the board's collection, loading it from the store on
// first access. A missing or malformed stored layout degrades to an empty
// collection.
func (s *LayoutService) Widgets(ctx context.Context, board string) []models.Widget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Widget(nil), s.loadLocked(ctx, board)...)
}

// AddWidget instantiates a widget from the template for kind, centered in
// the reported viewport, and appends it to the board.
func (s *LayoutService) AddWidget(ctx context.Context, board string, kind models.WidgetKind, viewport models.Size, title string) models.Widget {
	w := models.NewWidget(kind, viewport)
	if title != "" {
		w.Title = title
	}

	s.mu.Lock()
	widgets := append(s.loadLocked(ctx, board), w)
	s.boards[board] = widgets
	s.persistLocked(ctx, board)
	s.mu.Unlock()

	return w
}

// RemoveWidget deletes the widget with that id; no-op if absent.
func (s *LayoutService) RemoveWidget(ctx context.Context, board, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	widgets := s.loadLocked(ctx, board)
	for i, w := range widgets {
		if w.ID == id {
			s.boards[board] = append(widgets[:i:i], widgets[i+1:]...)
			delete(s.sessions, id)
			s.persistLocked(ctx, board)
			return
		}
	}
}

// MoveWidget replaces the widget's position, clamping both coordinates to
// be non-negative.
func (s *LayoutService) MoveWidget(ctx context.Context, board, id string, x, y float64) (models.Widget, error) {
	return s.mutate(ctx, board, id, func(w *models.Widget) {
		w.Position = models.Position{X: clampMin(x, 0), Y: clampMin(y, 0)}
	})
}

// ResizeWidget replaces the widget's size. Minimums are enforced earlier,
// during the gesture, not at this layer.
func (s *LayoutService) ResizeWidget(ctx context.Context, board, id string, width, height float64) (models.Widget, error) {
	return s.mutate(ctx, board, id, func(w *models.Widget) {
		w.Size = models.Size{Width: clampMin(width, 0), Height: clampMin(height, 0)}
	})
}

// ToggleMaximize flips the maximized flag. The stored rect is untouched so
// un-maximizing restores the previous position and size. Any active gesture
// on the widget is cancelled.
func (s *LayoutService) ToggleMaximize(ctx context.Context, board, id string) (models.Widget, error) {
	return s.mutate(ctx, board, id, func(w *models.Widget) {
		w.Maximized = !w.Maximized
		delete(s.sessions, w.ID)
	})
}

// ReplaceLayout swaps the whole collection, used by the bulk PUT endpoint.
func (s *LayoutService) ReplaceLayout(ctx context.Context, board string, widgets []models.Widget) []models.Widget {
	clean := make([]models.Widget, 0, len(widgets))
	for _, w := range widgets {
		w.Position.X = clampMin(w.Position.X, 0)
		w.Position.Y = clampMin(w.Position.Y, 0)
		if w.ID == "" {
			w.ID = models.NewWidgetID()
		}
		clean = append(clean, w)
	}

	s.mu.Lock()
	s.boards[board] = clean
	s.persistLocked(ctx, board)
	s.mu.Unlock()
	return clean
}

// BeginDrag opens a drag session for the widget; rejected while maximized.
func (s *LayoutService) BeginDrag(ctx context.Context, board, id string, pointer models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.findLocked(ctx, board, id)
	if w == nil {
		return ErrWidgetNotFound
	}
	sess, err := BeginDrag(w, pointer)
	if err != nil {
		return err
	}
	s.sessions[id] = sess
	return nil
}

// BeginResize opens a resize session tagged with direction.
func (s *LayoutService) BeginResize(ctx context.Context, board, id string, dir Direction, pointer models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.findLocked(ctx, board, id)
	if w == nil {
		return ErrWidgetNotFound
	}
	sess, err := BeginResize(w, dir, pointer, s.minWidth, s.minHeight)
	if err != nil {
		return err
	}
	s.sessions[id] = sess
	return nil
}

// UpdateGesture applies the current pointer position to the widget's active
// session. Updates arrive and apply in input-event order.
func (s *LayoutService) UpdateGesture(ctx context.Context, board, id string, pointer models.Position) (models.Widget, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return models.Widget{}, ErrNoSession
	}

	r := sess.Update(pointer)
	if sess.Kind == GestureDrag {
		return s.MoveWidget(ctx, board, id, r.X, r.Y)
	}
	return s.mutate(ctx, board, id, func(w *models.Widget) {
		w.Size = r.Size
		w.Position = models.Position{X: clampMin(r.X, 0), Y: clampMin(r.Y, 0)}
	})
}

// EndGesture closes the widget's session; no-op without one.
func (s *LayoutService) EndGesture(board, id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *LayoutService) mutate(ctx context.Context, board, id string, fn func(*models.Widget)) (models.Widget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.findLocked(ctx, board, id)
	if w == nil {
		return models.Widget{}, ErrWidgetNotFound
	}
	fn(w)
	s.persistLocked(ctx, board)
	return *w, nil
}

func (s *LayoutService) findLocked(ctx context.Context, board, id string) *models.Widget {
	widgets := s.loadLocked(ctx, board)
	for i := range widgets {
		if widgets[i].ID == id {
			return &widgets[i]
		}
	}
	return nil
}

func (s *LayoutService) loadLocked(ctx context.Context, board string) []models.Widget {
	if widgets, ok := s.boards[board]; ok {
		return widgets
	}
	layout, err := s.store.Load(ctx, board)
	if err != nil {
		// treated as "no saved layout": a corrupt document never takes
		// the dashboard down
		s.log.Warn("layout load failed", logger.String("board", board), logger.Error(err))
		s.metrics.RecordError("layout_load")
		layout = nil
	}
	widgets := []models.Widget{}
	if layout != nil && layout.Version == models.LayoutVersion {
		widgets = layout.Widgets
	}
	s.boards[board] = widgets
	return widgets
}

func (s *LayoutService) persistLocked(ctx context.Context, board string) {
	layout := models.NewLayout(s.boards[board])
	if err := s.store.Save(ctx, board, layout); err != nil {
		s.log.Warn("layout persist failed", logger.String("board", board), logger.Error(err))
		s.metrics.RecordError("layout_persist")
	}
}

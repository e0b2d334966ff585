package usecase

import (
	"fmt"

	"TickerDeck/internal/domain/models"
)

// Direction tags a resize gesture with the edge or corner being dragged.
type Direction int

const (
	DirN Direction = iota
	DirS
	DirE
	DirW
	DirNE
	DirNW
	DirSE
	DirSW
)

var directionNames = map[Direction]string{
	DirN: "n", DirS: "s", DirE: "e", DirW: "w",
	DirNE: "ne", DirNW: "nw", DirSE: "se", DirSW: "sw",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return "unknown"
}

// ParseDirection converts the wire encoding ("n", "sw", …) to a Direction.
func ParseDirection(s string) (Direction, error) {
	for d, name := range directionNames {
		if name == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown resize direction: %q", s)
}

// north/south/east/west report which edges the direction moves.
func (d Direction) north() bool { return d == DirN || d == DirNE || d == DirNW }
func (d Direction) south() bool { return d == DirS || d == DirSE || d == DirSW }
func (d Direction) east() bool  { return d == DirE || d == DirNE || d == DirSE }
func (d Direction) west() bool  { return d == DirW || d == DirNW || d == DirSW }

// GestureKind distinguishes drag from resize sessions.
type GestureKind int

const (
	GestureDrag GestureKind = iota
	GestureResize
)

// Session is the ephemeral state of one pointer-held gesture: the pointer's
// origin and the widget's pre-gesture rect. It exists from pointer-down to
// pointer-up and is never persisted.
type Session struct {
	Kind   GestureKind
	Dir    Direction
	origin models.Position
	start  models.Rect
	minW   float64
	minH   float64
}

// ErrMaximized rejects gesture entry on a maximized widget.
var ErrMaximized = fmt.Errorf("widget is maximized")

// BeginDrag opens a drag session. Maximized widgets reject all entry points.
func BeginDrag(w *models.Widget, pointer models.Position) (*Session, error) {
	if w.Maximized {
		return nil, ErrMaximized
	}
	return &Session{Kind: GestureDrag, origin: pointer, start: w.Rect()}, nil
}

// BeginResize opens a resize session tagged with a direction.
func BeginResize(w *models.Widget, dir Direction, pointer models.Position, minW, minH float64) (*Session, error) {
	if w.Maximized {
		return nil, ErrMaximized
	}
	return &Session{
		Kind:   GestureResize,
		Dir:    dir,
		origin: pointer,
		start:  w.Rect(),
		minW:   minW,
		minH:   minH,
	}, nil
}

// Update computes the widget rect for the current pointer position. Pure:
// callers apply the result through the layout service, which enforces the
// non-negative position invariant.
func (s *Session) Update(pointer models.Position) models.Rect {
	dx := pointer.X - s.origin.X
	dy := pointer.Y - s.origin.Y

	if s.Kind == GestureDrag {
		r := s.start
		r.X += dx
		r.Y += dy
		return r
	}
	return s.resize(dx, dy)
}

// resize moves only the edges the direction names. Dimensions clamp to the
// configured minimums; when the west or north edge moves, the opposing
// coordinate shifts by (old dimension − new dimension) so the fixed edge
// stays fixed.
func (s *Session) resize(dx, dy float64) models.Rect {
	r := s.start

	switch {
	case s.Dir.east():
		r.Width = clampMin(s.start.Width+dx, s.minW)
	case s.Dir.west():
		r.Width = clampMin(s.start.Width-dx, s.minW)
		r.X = s.start.X + (s.start.Width - r.Width)
	}

	switch {
	case s.Dir.south():
		r.Height = clampMin(s.start.Height+dy, s.minH)
	case s.Dir.north():
		r.Height = clampMin(s.start.Height-dy, s.minH)
		r.Y = s.start.Y + (s.start.Height - r.Height)
	}

	return r
}

func clampMin(v, min float64) float64 {
	if v < min {
		return min
	}
	return v
}

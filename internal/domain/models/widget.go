package models

import (
	"fmt"

	"github.com/google/uuid"
)

// WidgetKind identifies one of the fixed widget templates a board can host.
type WidgetKind string

const (
	KindChart     WidgetKind = "chart"
	KindWatchlist WidgetKind = "watchlist"
	KindSnapshot  WidgetKind = "snapshot"
	KindNote      WidgetKind = "note"
)

// ParseWidgetKind validates a kind string coming from the API.
func ParseWidgetKind(s string) (WidgetKind, error) {
	switch WidgetKind(s) {
	case KindChart, KindWatchlist, KindSnapshot, KindNote:
		return WidgetKind(s), nil
	}
	return "", fmt.Errorf("unknown widget kind: %q", s)
}

// Position is a widget's top-left corner in board pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a widget's rendered dimensions in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect combines position and size for gesture math.
type Rect struct {
	Position
	Size
}

// Widget is a single dashboard panel. Position and size are always
// non-negative; a maximized widget renders full-viewport but keeps its
// stored rect so un-maximizing restores it.
type Widget struct {
	ID          string     `json:"id"`
	Kind        WidgetKind `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Position    Position   `json:"position"`
	Size        Size       `json:"size"`
	Maximized   bool       `json:"maximized"`
}

// Rect returns the widget's stored rect.
func (w *Widget) Rect() Rect {
	return Rect{Position: w.Position, Size: w.Size}
}

// widgetTemplate holds the per-kind defaults applied on add.
type widgetTemplate struct {
	Title       string
	Description string
	Size        Size
}

var widgetTemplates = map[WidgetKind]widgetTemplate{
	KindChart:     {Title: "Price Chart", Description: "Live price chart", Size: Size{Width: 640, Height: 420}},
	KindWatchlist: {Title: "Watchlist", Size: Size{Width: 360, Height: 480}},
	KindSnapshot:  {Title: "Snapshot", Description: "Daily OHLC summary", Size: Size{Width: 420, Height: 260}},
	KindNote:      {Title: "Note", Size: Size{Width: 320, Height: 220}},
}

// fallbackOffset places a widget when the viewport is unknown.
var fallbackOffset = Position{X: 80, Y: 80}

// NewWidget instantiates a widget from the template for kind, centered in the
// given viewport. A zero viewport falls back to a fixed offset.
func NewWidget(kind WidgetKind, viewport Size) Widget {
	tpl, ok := widgetTemplates[kind]
	if !ok {
		tpl = widgetTemplate{Title: string(kind), Size: Size{Width: 400, Height: 300}}
	}

	pos := fallbackOffset
	if viewport.Width > 0 && viewport.Height > 0 {
		pos = Position{
			X: (viewport.Width - tpl.Size.Width) / 2,
			Y: (viewport.Height - tpl.Size.Height) / 2,
		}
		if pos.X < 0 {
			pos.X = 0
		}
		if pos.Y < 0 {
			pos.Y = 0
		}
	}

	return Widget{
		ID:          NewWidgetID(),
		Kind:        kind,
		Title:       tpl.Title,
		Description: tpl.Description,
		Position:    pos,
		Size:        tpl.Size,
	}
}

// NewWidgetID returns a fresh time-ordered opaque id.
func NewWidgetID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the entropy source does; fall back to v4.
		return uuid.NewString()
	}
	return id.String()
}

// LayoutVersion is bumped whenever the persisted layout schema changes.
const LayoutVersion = 1

// Layout is the persisted form of a board's widget collection. Documents with
// a version other than LayoutVersion are discarded wholesale on load.
type Layout struct {
	Version int      `json:"version"`
	Widgets []Widget `json:"widgets"`
}

// NewLayout wraps a widget collection in the current schema version.
func NewLayout(widgets []Widget) *Layout {
	if widgets == nil {
		widgets = []Widget{}
	}
	return &Layout{Version: LayoutVersion, Widgets: widgets}
}

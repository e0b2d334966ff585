package models

// Requests for the layout and market HTTP endpoints. Defined in domain for
// consistency and reuse.

type AddWidgetRequest struct {
	Kind     string `json:"kind" validate:"required,oneof=chart watchlist snapshot note"`
	Viewport *Size  `json:"viewport,omitempty"`
	Title    string `json:"title,omitempty" validate:"omitempty,max=120"`
	Symbol   string `json:"symbol,omitempty" validate:"omitempty,max=24"`
}

type MoveWidgetRequest struct {
	X float64 `json:"x" validate:"gte=-100000,lte=100000"`
	Y float64 `json:"y" validate:"gte=-100000,lte=100000"`
}

type ResizeWidgetRequest struct {
	Width  float64 `json:"width" validate:"gt=0,lte=100000"`
	Height float64 `json:"height" validate:"gt=0,lte=100000"`
}

type PutLayoutRequest struct {
	Version int      `json:"version" default:"1" validate:"gte=1"`
	Widgets []Widget `json:"widgets" validate:"required,dive"`
}

type GestureStartRequest struct {
	Gesture   string  `json:"gesture" validate:"required,oneof=drag resize"`
	Direction string  `json:"direction,omitempty" validate:"omitempty,oneof=n s e w ne nw se sw"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

type GestureMoveRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type SearchRequest struct {
	Query string `query:"q" json:"q" validate:"max=64"`
	Limit int    `query:"limit" json:"limit" default:"10" validate:"gte=1,lte=50"`
}

type SnapshotsRequest struct {
	Tickers string `query:"tickers" json:"tickers" validate:"required,max=512"`
}

type BarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m 1d"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=5000"`
}

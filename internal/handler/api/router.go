package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	xhttp "TickerDeck/pkg/http"
)

// Router composes the API surface into one registrable handler.
type Router struct {
	parts []xhttp.Handler
}

func NewRouter(layout *LayoutEchoHandler, market *MarketEchoHandler, stream *StreamEchoHandler) *Router {
	return &Router{parts: []xhttp.Handler{layout, market, stream}}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	for _, p := range r.parts {
		p.RegisterRoutes(e)
	}
}

package api

import (
	"errors"

	models "TickerDeck/internal/domain/models"
	"TickerDeck/internal/usecase"
	xhttp "TickerDeck/pkg/http"
	xlogger "TickerDeck/pkg/logger"

	"github.com/labstack/echo/v4"
)

// LayoutEchoHandler serves the board layout endpoints: the widget
// collection, per-widget mutations, and the gesture session endpoints.
type LayoutEchoHandler struct {
	logger  *xlogger.Logger
	layouts *usecase.LayoutService
}

func NewLayoutEchoHandler(logger *xlogger.Logger, layouts *usecase.LayoutService) *LayoutEchoHandler {
	return &LayoutEchoHandler{logger: logger, layouts: layouts}
}

func (h *LayoutEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/boards/:board")
	g.GET("/layout", h.GetLayout)
	g.PUT("/layout", h.PutLayout)
	g.POST("/widgets", h.AddWidget)
	g.DELETE("/widgets/:id", h.RemoveWidget)
	g.PATCH("/widgets/:id/position", h.MoveWidget)
	g.PATCH("/widgets/:id/size", h.ResizeWidget)
	g.POST("/widgets/:id/maximize", h.ToggleMaximize)
	g.POST("/widgets/:id/gesture", h.BeginGesture)
	g.PATCH("/widgets/:id/gesture", h.UpdateGesture)
	g.DELETE("/widgets/:id/gesture", h.EndGesture)
}

func (h *LayoutEchoHandler) GetLayout(c echo.Context) error {
	board := c.Param("board")
	widgets := h.layouts.Widgets(c.Request().Context(), board)
	return xhttp.SuccessResponse(c, models.NewLayout(widgets))
}

func (h *LayoutEchoHandler) PutLayout(c echo.Context) error {
	req := &models.PutLayoutRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Version != models.LayoutVersion {
		return xhttp.BadRequestResponse(c, echo.Map{"version": "unsupported layout version"})
	}

	widgets := h.layouts.ReplaceLayout(c.Request().Context(), c.Param("board"), req.Widgets)
	return xhttp.SuccessResponse(c, models.NewLayout(widgets))
}

func (h *LayoutEchoHandler) AddWidget(c echo.Context) error {
	req := &models.AddWidgetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	kind, err := models.ParseWidgetKind(req.Kind)
	if err != nil {
		return xhttp.BadRequestResponse(c, echo.Map{"kind": err.Error()})
	}

	var viewport models.Size
	if req.Viewport != nil {
		viewport = *req.Viewport
	}
	title := req.Title
	if title == "" && req.Symbol != "" {
		title = req.Symbol
	}

	w := h.layouts.AddWidget(c.Request().Context(), c.Param("board"), kind, viewport, title)
	return xhttp.CreatedResponse(c, w)
}

func (h *LayoutEchoHandler) RemoveWidget(c echo.Context) error {
	h.layouts.RemoveWidget(c.Request().Context(), c.Param("board"), c.Param("id"))
	return xhttp.NoContentResponse(c)
}

func (h *LayoutEchoHandler) MoveWidget(c echo.Context) error {
	req := &models.MoveWidgetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	w, err := h.layouts.MoveWidget(c.Request().Context(), c.Param("board"), c.Param("id"), req.X, req.Y)
	if err != nil {
		return h.layoutError(c, err)
	}
	return xhttp.SuccessResponse(c, w)
}

func (h *LayoutEchoHandler) ResizeWidget(c echo.Context) error {
	req := &models.ResizeWidgetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	w, err := h.layouts.ResizeWidget(c.Request().Context(), c.Param("board"), c.Param("id"), req.Width, req.Height)
	if err != nil {
		return h.layoutError(c, err)
	}
	return xhttp.SuccessResponse(c, w)
}

func (h *LayoutEchoHandler) ToggleMaximize(c echo.Context) error {
	w, err := h.layouts.ToggleMaximize(c.Request().Context(), c.Param("board"), c.Param("id"))
	if err != nil {
		return h.layoutError(c, err)
	}
	return xhttp.SuccessResponse(c, w)
}

func (h *LayoutEchoHandler) BeginGesture(c echo.Context) error {
	req := &models.GestureStartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	board, id := c.Param("board"), c.Param("id")
	pointer := models.Position{X: req.X, Y: req.Y}

	var err error
	switch req.Gesture {
	case "drag":
		err = h.layouts.BeginDrag(c.Request().Context(), board, id, pointer)
	case "resize":
		var dir usecase.Direction
		dir, err = usecase.ParseDirection(req.Direction)
		if err != nil {
			return xhttp.BadRequestResponse(c, echo.Map{"direction": err.Error()})
		}
		err = h.layouts.BeginResize(c.Request().Context(), board, id, dir, pointer)
	}
	if err != nil {
		return h.layoutError(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func (h *LayoutEchoHandler) UpdateGesture(c echo.Context) error {
	req := &models.GestureMoveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	w, err := h.layouts.UpdateGesture(c.Request().Context(), c.Param("board"), c.Param("id"), models.Position{X: req.X, Y: req.Y})
	if err != nil {
		return h.layoutError(c, err)
	}
	return xhttp.SuccessResponse(c, w)
}

func (h *LayoutEchoHandler) EndGesture(c echo.Context) error {
	h.layouts.EndGesture(c.Param("board"), c.Param("id"))
	return xhttp.NoContentResponse(c)
}

func (h *LayoutEchoHandler) layoutError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrWidgetNotFound):
		return xhttp.NotFoundResponse(c, echo.Map{"error": err.Error()})
	case errors.Is(err, usecase.ErrMaximized), errors.Is(err, usecase.ErrNoSession):
		return xhttp.BadRequestResponse(c, echo.Map{"error": err.Error()})
	default:
		h.logger.Error("layout usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}

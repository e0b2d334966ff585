package api

import (
	"strings"
	"time"

	models "TickerDeck/internal/domain/models"
	domrepo "TickerDeck/internal/domain/repository"
	"TickerDeck/internal/service/search"
	"TickerDeck/internal/usecase"
	xhttp "TickerDeck/pkg/http"
	xlogger "TickerDeck/pkg/logger"
	"TickerDeck/pkg/util"

	"github.com/labstack/echo/v4"
)

// MarketEchoHandler serves ticker search, daily snapshots, and chart bars.
type MarketEchoHandler struct {
	logger    *xlogger.Logger
	search    *search.Service
	market    domrepo.MarketData
	bars      *usecase.BarsUseCase
	normalize func(string) string
}

func NewMarketEchoHandler(
	logger *xlogger.Logger,
	searchSvc *search.Service,
	market domrepo.MarketData,
	bars *usecase.BarsUseCase,
	normalize func(string) string,
) *MarketEchoHandler {
	if normalize == nil {
		normalize = func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
	}
	return &MarketEchoHandler{
		logger:    logger,
		search:    searchSvc,
		market:    market,
		bars:      bars,
		normalize: normalize,
	}
}

func (h *MarketEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/search", h.Search)
	g.GET("/snapshots", h.Snapshots)
	g.GET("/bars", h.Bars)
}

func (h *MarketEchoHandler) Search(c echo.Context) error {
	req := &models.SearchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	results := h.search.Search(req.Query, req.Limit)
	return xhttp.SuccessResponse(c, results)
}

func (h *MarketEchoHandler) Snapshots(c echo.Context) error {
	req := &models.SnapshotsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var tickers []string
	for _, raw := range strings.Split(req.Tickers, ",") {
		if t := h.normalize(raw); t != "" {
			tickers = append(tickers, t)
		}
	}
	if len(tickers) == 0 {
		return xhttp.BadRequestResponse(c, echo.Map{"tickers": "no valid tickers"})
	}

	snaps, err := h.market.Snapshots(c.Request().Context(), tickers)
	if err != nil {
		h.logger.Error("snapshots error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snaps)
}

func (h *MarketEchoHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	now := time.Now().UTC()
	to := util.ParseTimeDefault(req.To, now)
	from := util.ParseTimeDefault(req.From, to.Add(-24*time.Hour))
	tf := domrepo.NormalizeTimeframe(req.TF)
	from, to = util.AlignFromTo(from, to, string(tf))

	res, err := h.bars.GetBars(c.Request().Context(), usecase.GetBarsParams{
		Symbol:    h.normalize(req.Symbol),
		From:      from,
		To:        to,
		Timeframe: tf,
		Limit:     req.Limit,
	})
	if err != nil {
		h.logger.Error("bars error", xlogger.Error(err), xlogger.String("symbol", req.Symbol))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "YieldScope/internal/domain/models"
	drepo "YieldScope/internal/domain/repository"
	"YieldScope/internal/usecase"
	xhttp "YieldScope/pkg/http"
	xlogger "YieldScope/pkg/logger"
)

// MarketsEchoHandler serves the latest engine outputs and their history.
type MarketsEchoHandler struct {
	logger *xlogger.Logger
	query  *usecase.MarketQuery
}

func NewMarketsEchoHandler(logger *xlogger.Logger, query *usecase.MarketQuery) *MarketsEchoHandler {
	return &MarketsEchoHandler{logger: logger, query: query}
}

func (h *MarketsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api/v1/markets")
	g.GET("", h.Markets)
	g.GET("/:marketId/:asset", h.Market)
	g.GET("/:marketId/:asset/history", h.History)
}

func (h *MarketsEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

func (h *MarketsEchoHandler) Markets(c echo.Context) error {
	idx, err := h.query.Markets(c.Request().Context())
	if err != nil {
		h.logger.Error("list markets", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, idx)
}

func (h *MarketsEchoHandler) Market(c echo.Context) error {
	req := &models.MarketRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	out, err := h.query.Market(c.Request().Context(), req.MarketID, req.Asset)
	if errors.Is(err, drepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no output for %s/%s", req.MarketID, req.Asset))
	}
	if err != nil {
		h.logger.Error("get market", xlogger.String("market_id", req.MarketID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *MarketsEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	from := xhttp.ParseTimeDefault(req.From, time.Time{})
	to := xhttp.ParseTimeDefault(req.To, time.Time{})

	rows, err := h.query.History(c.Request().Context(), req.MarketID, req.Asset, from, to, req.Limit)
	if errors.Is(err, usecase.ErrHistoryDisabled) {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError(err.Error()))
	}
	if err != nil {
		h.logger.Error("market history", xlogger.String("market_id", req.MarketID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domrepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	"github.com/sourav-625/market-regime-radar/internal/service/ratelimit"
	"github.com/sourav-625/market-regime-radar/internal/services/charts"
	"github.com/sourav-625/market-regime-radar/internal/usecase"
	xhttp "github.com/sourav-625/market-regime-radar/pkg/http"
	xlogger "github.com/sourav-625/market-regime-radar/pkg/logger"
)

// RegimesEchoHandler serves the JSON and chart endpoints.
type RegimesEchoHandler struct {
	logger      *xlogger.Logger
	analyzer    usecase.Analyzer
	history     *usecase.History
	limiter     *ratelimit.Limiter
	includePath bool
}

func NewRegimesEchoHandler(logger *xlogger.Logger, analyzer usecase.Analyzer, history *usecase.History, limiter *ratelimit.Limiter, includePath bool) *RegimesEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &RegimesEchoHandler{
		logger:      logger,
		analyzer:    analyzer,
		history:     history,
		limiter:     limiter,
		includePath: includePath,
	}
}

func (h *RegimesEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/regimes", h.Regimes, RateLimit(h.limiter))
	g.GET("/regimes/chart.png", h.Chart, RateLimit(h.limiter))
	g.GET("/history", h.History)
}

// Regimes runs an analysis and returns the report.
func (h *RegimesEchoHandler) Regimes(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	report, err := h.analyzer.Analyze(c.Request().Context(), usecase.AnalysisParams{
		Symbol:  req.Symbol,
		Period:  domrepo.Period(req.Period),
		Regimes: req.RegimeCount(),
	})
	if err != nil {
		return h.fail(c, "regimes", err)
	}
	if !h.includePath {
		report.Path = nil
	}
	return xhttp.SuccessResponse(c, report)
}

// Chart runs an analysis and renders the price path coloured by state.
func (h *RegimesEchoHandler) Chart(c echo.Context) error {
	req := &models.ChartRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}

	report, err := h.analyzer.Analyze(c.Request().Context(), usecase.AnalysisParams{
		Symbol:  req.Symbol,
		Period:  domrepo.Period(req.Period),
		Regimes: req.RegimeCount(),
	})
	if err != nil {
		return h.fail(c, "chart", err)
	}
	png, err := charts.RenderRegimePNGBytes(report, req.Width, req.Height)
	if err != nil {
		return h.fail(c, "chart", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return c.Blob(http.StatusOK, "image/png", png)
}

// History lists recent runs.
func (h *RegimesEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.ValidationResponse(c, verr)
	}
	recs, err := h.history.Recent(c.Request().Context(), req.Symbol, req.LimitCount())
	if err != nil {
		return h.fail(c, "history", err)
	}
	return xhttp.ListResponse(c, recs, len(recs))
}

func (h *RegimesEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	appErr := ToAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Debug(endpoint+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

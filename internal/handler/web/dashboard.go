// Package web serves the HTML dashboard.
package web

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domrepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	"github.com/sourav-625/market-regime-radar/internal/handler/api"
	"github.com/sourav-625/market-regime-radar/internal/service/ratelimit"
	"github.com/sourav-625/market-regime-radar/internal/services/charts"
	"github.com/sourav-625/market-regime-radar/internal/usecase"
	xhttp "github.com/sourav-625/market-regime-radar/pkg/http"
	xlogger "github.com/sourav-625/market-regime-radar/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.2f%%", v*100) },
	"steps": func(v *float64) string {
		if v == nil {
			return "absorbing (the model never leaves this regime)"
		}
		return fmt.Sprintf("%.1f trading days", *v)
	},
}

func parsePage(name string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
}

type formData struct {
	Symbol        string
	Period        string
	Regimes       int
	Periods       []domrepo.Period
	RegimeChoices []int
}

type explainerEntry struct {
	Label       models.RegimeLabel
	Description string
}

type pageData struct {
	Title     string
	Form      formData
	Explainer []explainerEntry
	Errors    []string
	Failure   string
	Report    *models.Report
	Chart     template.URL
}

// DashboardHandler renders the analysis form and the HTML report.
type DashboardHandler struct {
	logger   *xlogger.Logger
	analyzer usecase.Analyzer
	limiter  *ratelimit.Limiter
	defaults models.AnalysisRequest
	index    *template.Template
	report   *template.Template
}

func NewDashboardHandler(logger *xlogger.Logger, analyzer usecase.Analyzer, limiter *ratelimit.Limiter, defaults models.AnalysisRequest) *DashboardHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &DashboardHandler{
		logger:   logger,
		analyzer: analyzer,
		limiter:  limiter,
		defaults: defaults,
		index:    parsePage("index"),
		report:   parsePage("report"),
	}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	e.GET("/analyze", h.Analyze, api.RateLimit(h.limiter))
}

func (h *DashboardHandler) page(form models.AnalysisRequest) pageData {
	explainer := make([]explainerEntry, 0, 4)
	for _, l := range models.AllLabels() {
		explainer = append(explainer, explainerEntry{Label: l, Description: l.Description()})
	}
	return pageData{
		Form: formData{
			Symbol:        form.Symbol,
			Period:        form.Period,
			Regimes:       form.RegimeCount(),
			Periods:       domrepo.SupportedPeriods(),
			RegimeChoices: []int{2, 3, 4, 5},
		},
		Explainer: explainer,
	}
}

// Index renders the empty form.
func (h *DashboardHandler) Index(c echo.Context) error {
	return h.render(c, http.StatusOK, h.index, h.page(h.defaults))
}

// Analyze runs the analysis and renders the report with an inline chart.
func (h *DashboardHandler) Analyze(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		data := h.page(h.withDefaults(*req))
		for _, e := range verr {
			data.Errors = append(data.Errors, e.Message)
		}
		return h.render(c, http.StatusBadRequest, h.index, data)
	}

	data := h.page(*req)
	data.Title = req.Symbol
	report, err := h.analyzer.Analyze(c.Request().Context(), usecase.AnalysisParams{
		Symbol:  req.Symbol,
		Period:  domrepo.Period(req.Period),
		Regimes: req.RegimeCount(),
	})
	if err != nil {
		appErr := api.ToAppError(err)
		if appErr.Status >= http.StatusInternalServerError {
			h.logger.Error("dashboard analysis failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		}
		data.Failure = failureNotice(appErr)
		return h.render(c, appErr.Status, h.index, data)
	}

	data.Report = report
	data.Form.Symbol = report.Symbol
	if png, err := charts.RenderRegimePNGBytes(report, charts.DefaultWidth, charts.DefaultHeight); err == nil {
		data.Chart = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	} else {
		h.logger.Warn("dashboard chart failed", xlogger.String("symbol", report.Symbol), xlogger.Error(err))
	}
	return h.render(c, http.StatusOK, h.report, data)
}

// withDefaults fills form fields left blank after a failed bind.
func (h *DashboardHandler) withDefaults(req models.AnalysisRequest) models.AnalysisRequest {
	if req.Period == "" {
		req.Period = h.defaults.Period
	}
	if req.Regimes == nil {
		req.Regimes = h.defaults.Regimes
	}
	return req
}

func failureNotice(e *xhttp.AppError) string {
	switch e.Code {
	case "ERR_DATA_UNAVAILABLE":
		return "No price data was found for this symbol. Check the ticker and try again."
	case "ERR_INSUFFICIENT_DATA", "ERR_INVALID_PRICE", "ERR_NUMERIC_DEGENERACY":
		return "The price history could not support a model with these settings. Try a longer period or fewer regimes."
	default:
		return "Something went wrong while analyzing this symbol. Please try again later."
	}
}

func (h *DashboardHandler) render(c echo.Context, status int, t *template.Template, data pageData) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error("render page", xlogger.Error(err))
		return c.String(http.StatusInternalServerError, "Internal Server Error")
	}
	return c.HTMLBlob(status, buf.Bytes())
}

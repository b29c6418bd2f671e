package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	"github.com/sourav-625/market-regime-radar/internal/service/ratelimit"
	"github.com/sourav-625/market-regime-radar/internal/usecase"
)

type stubAnalyzer struct {
	report *models.Report
	err    error
	got    usecase.AnalysisParams
}

func (s *stubAnalyzer) Analyze(_ context.Context, p usecase.AnalysisParams) (*models.Report, error) {
	s.got = p
	if s.err != nil {
		return nil, s.err
	}
	r := *s.report
	return &r, nil
}

type listStore struct{ recs []models.RunRecord }

func (s *listStore) Save(context.Context, *models.Report) error { return nil }

func (s *listStore) Recent(_ context.Context, _ string, limit int) ([]models.RunRecord, error) {
	if limit < len(s.recs) {
		return s.recs[:limit], nil
	}
	return s.recs, nil
}

func sampleReport() *models.Report {
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	path := make([]models.StatePoint, 10)
	for i := range path {
		path[i] = models.StatePoint{Time: t0.AddDate(0, 0, i), Price: 100 + float64(i%3), State: i % 2}
	}
	return &models.Report{
		RunID:   "run-1",
		Symbol:  "AAPL",
		Period:  "2y",
		Regimes: 2,
		Current: models.CurrentRegime{State: 1, Label: models.LabelBullish, Confidence: 0.9},
		States: []models.RegimeSummary{
			{State: 0, Label: models.LabelBearish},
			{State: 1, Label: models.LabelBullish},
		},
		Path: path,
	}
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func serve(t *testing.T, h *RegimesEchoHandler, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var env envelope
	if rec.Header().Get(echo.HeaderContentType) != "image/png" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestRegimes_OK(t *testing.T) {
	an := &stubAnalyzer{report: sampleReport()}
	h := NewRegimesEchoHandler(nil, an, nil, nil, true)

	rec, env := serve(t, h, "/api/regimes?symbol=aapl&period=1y&regimes=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, env.Status)
	assert.Equal(t, usecase.AnalysisParams{Symbol: "aapl", Period: "1y", Regimes: 2}, an.got)

	var report models.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, models.LabelBullish, report.Current.Label)
	assert.Len(t, report.Path, 10)
}

func TestRegimes_DefaultsAndPathToggle(t *testing.T) {
	an := &stubAnalyzer{report: sampleReport()}
	h := NewRegimesEchoHandler(nil, an, nil, nil, false)

	rec, env := serve(t, h, "/api/regimes?symbol=MSFT")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.AnalysisParams{Symbol: "MSFT", Period: "2y", Regimes: 3}, an.got)

	var report models.Report
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Empty(t, report.Path)
}

func TestRegimes_ValidationErrors(t *testing.T) {
	h := NewRegimesEchoHandler(nil, &stubAnalyzer{report: sampleReport()}, nil, nil, true)

	for _, target := range []string{
		"/api/regimes",
		"/api/regimes?symbol=AAPL&regimes=6",
		"/api/regimes?symbol=AAPL&regimes=1",
		"/api/regimes?symbol=AAPL&period=10y",
	} {
		rec, env := serve(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, http.StatusBadRequest, env.Status, target)
	}
}

func TestRegimes_ExplicitZeroRejected(t *testing.T) {
	an := &stubAnalyzer{report: sampleReport()}
	h := NewRegimesEchoHandler(nil, an, usecase.NewHistory(&listStore{}), nil, true)

	for _, target := range []string{
		"/api/regimes?symbol=AAPL&regimes=0",
		"/api/regimes/chart.png?symbol=AAPL&regimes=0",
		"/api/history?limit=0",
	} {
		rec, _ := serve(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.Empty(t, an.got.Symbol, "analyzer must not run")
}

func TestRegimes_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("fetch: %w", models.ErrDataUnavailable), http.StatusNotFound, "ERR_DATA_UNAVAILABLE"},
		{fmt.Errorf("transform: %w", models.ErrInsufficientData), http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_DATA"},
		{models.ErrInvalidPrice, http.StatusUnprocessableEntity, "ERR_INVALID_PRICE"},
		{models.ErrNumericDegeneracy, http.StatusUnprocessableEntity, "ERR_NUMERIC_DEGENERACY"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := NewRegimesEchoHandler(nil, &stubAnalyzer{err: tt.err}, nil, nil, true)
			rec, env := serve(t, h, "/api/regimes?symbol=AAPL")
			assert.Equal(t, tt.status, rec.Code)

			var errs []struct {
				Code string `json:"code"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &errs))
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
		})
	}
}

func TestChart_PNG(t *testing.T) {
	h := NewRegimesEchoHandler(nil, &stubAnalyzer{report: sampleReport()}, nil, nil, true)

	rec, _ := serve(t, h, "/api/regimes/chart.png?symbol=AAPL&width=400&height=200")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestChart_TooFewPoints(t *testing.T) {
	report := sampleReport()
	report.Path = report.Path[:1]
	h := NewRegimesEchoHandler(nil, &stubAnalyzer{report: report}, nil, nil, true)

	rec, _ := serve(t, h, "/api/regimes/chart.png?symbol=AAPL")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHistory(t *testing.T) {
	disabled := NewRegimesEchoHandler(nil, &stubAnalyzer{}, usecase.NewHistory(nil), nil, true)
	rec, _ := serve(t, disabled, "/api/history")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	store := &listStore{recs: []models.RunRecord{{RunID: "a"}, {RunID: "b"}, {RunID: "c"}}}
	enabled := NewRegimesEchoHandler(nil, &stubAnalyzer{}, usecase.NewHistory(store), nil, true)
	rec, env := serve(t, enabled, "/api/history?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Rows  []models.RunRecord `json:"rows"`
		Total int64              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Rows, 2)
	assert.EqualValues(t, 2, list.Total)

	rec, _ = serve(t, enabled, "/api/history?limit=500")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := NewRegimesEchoHandler(nil, &stubAnalyzer{report: sampleReport()}, nil, ratelimit.New(0.001, 1), true)
	e := echo.New()
	h.RegisterRoutes(e)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/regimes?symbol=AAPL", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

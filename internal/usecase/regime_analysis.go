package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domrepo "github.com/sourav-625/market-regime-radar/internal/domain/repository"
	domsvc "github.com/sourav-625/market-regime-radar/internal/domain/service"
	"github.com/sourav-625/market-regime-radar/internal/services/analytics"
	"github.com/sourav-625/market-regime-radar/internal/services/features"
	"github.com/sourav-625/market-regime-radar/pkg/config"
	applogger "github.com/sourav-625/market-regime-radar/pkg/logger"
	"github.com/sourav-625/market-regime-radar/pkg/util"
)

// Stage names a step of an analysis run.
type Stage string

const (
	StageFetching     Stage = "fetching"
	StageTransforming Stage = "transforming"
	StageFitting      Stage = "fitting"
	StageAnalyzing    Stage = "analyzing"
	StageDone         Stage = "done"
)

// ProgressFunc is told when a stage starts. It may be nil.
type ProgressFunc func(Stage)

// AnalysisParams selects what to analyze. Zero values take the configured defaults.
type AnalysisParams struct {
	Symbol  string
	Period  domrepo.Period
	Regimes int
}

// RegimeAnalysis runs fetch, transform, fit and analyze for one symbol and
// hands the report to the optional history store and publisher.
type RegimeAnalysis struct {
	source    domrepo.PriceSource
	estimator domsvc.RegimeEstimator
	store     domrepo.RunStore
	publisher domrepo.ReportPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger

	defaultRegimes int
	defaultPeriod  domrepo.Period
	sinkTimeout    time.Duration
	now            func() time.Time
	newID          func() string
}

// NewRegimeAnalysis wires the pipeline. store and publisher may be nil.
func NewRegimeAnalysis(
	cfg *config.Config,
	source domrepo.PriceSource,
	estimator domsvc.RegimeEstimator,
	store domrepo.RunStore,
	publisher domrepo.ReportPublisher,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *RegimeAnalysis {
	if l == nil {
		l = applogger.NewNop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &RegimeAnalysis{
		source:         source,
		estimator:      estimator,
		store:          store,
		publisher:      publisher,
		metrics:        metrics,
		l:              l.With(applogger.String("component", "regime_analysis")),
		defaultRegimes: cfg.Analysis.DefaultRegimes,
		defaultPeriod:  domrepo.NormalizePeriod(cfg.Analysis.DefaultPeriod),
		sinkTimeout:    10 * time.Second,
		now:            time.Now,
		newID:          uuid.NewString,
	}
}

// Analyze runs the pipeline without progress reporting.
func (a *RegimeAnalysis) Analyze(ctx context.Context, p AnalysisParams) (*models.Report, error) {
	return a.Run(ctx, p, nil)
}

// Run executes one analysis. Any stage failure aborts the run; sink
// failures after a successful run are only logged.
func (a *RegimeAnalysis) Run(ctx context.Context, p AnalysisParams, progress ProgressFunc) (*models.Report, error) {
	p = a.normalize(p)
	if progress == nil {
		progress = func(Stage) {}
	}

	report, err := a.run(ctx, p, progress)
	if err != nil {
		kind := ErrorKind(err)
		a.metrics.RecordError(kind)
		a.l.Warn("analysis failed",
			applogger.String("symbol", p.Symbol),
			applogger.String("period", string(p.Period)),
			applogger.Int("regimes", p.Regimes),
			applogger.String("kind", kind),
			applogger.Error(err))
		return nil, err
	}

	a.metrics.RecordRun(report.Regimes)
	a.metrics.RecordCurrentRegime(report.Symbol, report.Current.State, report.Current.Confidence)
	a.deliver(ctx, report)
	progress(StageDone)

	a.l.Info("analysis complete",
		applogger.String("run_id", report.RunID),
		applogger.String("symbol", report.Symbol),
		applogger.Int("regimes", report.Regimes),
		applogger.String("current", string(report.Current.Label)),
		applogger.Float64("confidence", report.Current.Confidence))
	return report, nil
}

func (a *RegimeAnalysis) normalize(p AnalysisParams) AnalysisParams {
	p.Symbol = util.NormalizeSymbol(p.Symbol)
	if p.Period == "" {
		p.Period = a.defaultPeriod
	} else {
		p.Period = domrepo.NormalizePeriod(string(p.Period))
	}
	if p.Regimes == 0 {
		p.Regimes = a.defaultRegimes
	}
	return p
}

func (a *RegimeAnalysis) run(ctx context.Context, p AnalysisParams, progress ProgressFunc) (*models.Report, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", models.ErrInvalidRequest)
	}
	if p.Regimes < analytics.MinStates || p.Regimes > analytics.MaxStates {
		return nil, fmt.Errorf("%w: regimes must be between %d and %d", models.ErrInvalidRequest, analytics.MinStates, analytics.MaxStates)
	}

	var series models.PriceSeries
	err := a.stage(StageFetching, progress, func() (err error) {
		series, err = a.source.Fetch(ctx, p.Symbol, p.Period)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", p.Symbol, err)
	}

	var returns models.ReturnSeries
	err = a.stage(StageTransforming, progress, func() (err error) {
		returns, err = features.ComputeLogReturns(series)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", p.Symbol, err)
	}

	var model domsvc.FittedModel
	err = a.stage(StageFitting, progress, func() (err error) {
		model, err = a.estimator.Fit(ctx, returns, p.Regimes)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", p.Symbol, err)
	}
	if model.NumStates() != p.Regimes {
		return nil, fmt.Errorf("fit %s: model has %d states, want %d: %w", p.Symbol, model.NumStates(), p.Regimes, models.ErrNumericDegeneracy)
	}

	var report *models.Report
	err = a.stage(StageAnalyzing, progress, func() (err error) {
		report, err = a.analyze(p, series, returns, model)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", p.Symbol, err)
	}
	return report, nil
}

func (a *RegimeAnalysis) stage(s Stage, progress ProgressFunc, fn func() error) error {
	progress(s)
	start := time.Now()
	err := fn()
	a.metrics.RecordStage(string(s), time.Since(start).Seconds())
	return err
}

func (a *RegimeAnalysis) analyze(p AnalysisParams, series models.PriceSeries, returns models.ReturnSeries, model domsvc.FittedModel) (*models.Report, error) {
	current, err := analytics.CurrentRegimeInfo(model, returns)
	if err != nil {
		return nil, err
	}
	duration, path, err := analytics.RegimeDuration(model, returns)
	if err != nil {
		return nil, err
	}
	transitions, err := analytics.RegimeTransitionInfo(model)
	if err != nil {
		return nil, err
	}
	states, approximate := analytics.Summarize(model)
	applyLabels(states, &current, &duration, &transitions)

	// returns are aligned with Points[1:]
	points := make([]models.StatePoint, len(path))
	for i, st := range path {
		pt := series.Points[i+1]
		points[i] = models.StatePoint{Time: pt.Time, Price: pt.Price, State: st}
	}

	return &models.Report{
		RunID:              a.newID(),
		Symbol:             p.Symbol,
		Period:             string(p.Period),
		Regimes:            p.Regimes,
		GeneratedAt:        a.now().UTC(),
		Observations:       returns.Len(),
		RealizedVolatility: features.RealizedVolatility(returns.Values, features.TradingDaysPerYear),
		Fit:                model.Diagnostics(),
		Current:            current,
		Duration:           duration,
		Transitions:        transitions,
		States:             states,
		LabelsApproximate:  approximate,
		Path:               points,
	}, nil
}

func applyLabels(states []models.RegimeSummary, current *models.CurrentRegime, duration *models.RegimeDuration, transitions *models.TransitionInfo) {
	label := func(i int) models.RegimeLabel {
		if i >= 0 && i < len(states) {
			return states[i].Label
		}
		return ""
	}
	current.Label = label(current.State)
	duration.CurrentLabel = label(duration.CurrentRegime)
	if duration.PreviousRegime != nil {
		duration.PreviousLabel = label(*duration.PreviousRegime)
	}
	for i := range transitions.ExpectedDurations {
		ed := &transitions.ExpectedDurations[i]
		ed.Label = label(ed.State)
	}
	for i := range transitions.MostLikely {
		tr := &transitions.MostLikely[i]
		tr.FromLabel = label(tr.From)
		tr.ToLabel = label(tr.To)
	}
}

// deliver saves and publishes the report. The request may already be done,
// so the sinks get their own deadline.
func (a *RegimeAnalysis) deliver(ctx context.Context, report *models.Report) {
	if a.store == nil && a.publisher == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.sinkTimeout)
	defer cancel()

	if a.store != nil {
		if err := a.store.Save(sctx, report); err != nil {
			a.metrics.RecordError("history_save")
			a.l.Error("save run failed", applogger.String("run_id", report.RunID), applogger.Error(err))
		}
	}
	if a.publisher != nil {
		if err := a.publisher.PublishReport(sctx, report); err != nil {
			a.metrics.RecordError("report_publish")
			a.l.Error("publish report failed", applogger.String("run_id", report.RunID), applogger.Error(err))
		}
	}
}

// ErrorKind classifies err for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, models.ErrDataUnavailable):
		return "data_unavailable"
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, models.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, models.ErrNumericDegeneracy):
		return "numeric_degeneracy"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordStage(string, float64)              {}
func (nopMetrics) RecordError(string)                       {}
func (nopMetrics) RecordRun(int)                            {}
func (nopMetrics) RecordCurrentRegime(string, int, float64) {}

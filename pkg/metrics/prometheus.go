package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "regimeradar"

// MaxRegimeSymbols bounds the symbol label on the current regime gauges.
// Symbols come from callers, so later symbols past the cap are not exported.
const MaxRegimeSymbols = 100

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	stageLatency  *prometheus.HistogramVec
	currentState  *prometheus.GaugeVec
	currentConfid *prometheus.GaugeVec

	mu      sync.Mutex
	symbols map[string]struct{}
}

// New creates a recorder registered on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		symbols: make(map[string]struct{}),
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analysis_runs_total",
				Help:      "Completed regime analyses",
			},
			[]string{"regimes"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Failed analyses by error kind",
			},
			[]string{"kind"},
		),
		stageLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		currentState: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "current_regime_state",
				Help:      "Most probable state index at the last observation",
			},
			[]string{"symbol"},
		),
		currentConfid: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "current_regime_confidence",
				Help:      "Posterior probability of the current state",
			},
			[]string{"symbol"},
		),
	}
}

// RecordStage records a pipeline stage latency in seconds.
func (r *Recorder) RecordStage(stage string, seconds float64) {
	r.stageLatency.WithLabelValues(stage).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordRun counts a completed analysis.
func (r *Recorder) RecordRun(regimes int) {
	r.runsTotal.WithLabelValues(strconv.Itoa(regimes)).Inc()
}

// RecordCurrentRegime sets the latest state and confidence for a symbol.
func (r *Recorder) RecordCurrentRegime(symbol string, state int, confidence float64) {
	if !r.track(symbol) {
		return
	}
	r.currentState.WithLabelValues(symbol).Set(float64(state))
	r.currentConfid.WithLabelValues(symbol).Set(confidence)
}

func (r *Recorder) track(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.symbols[symbol]; ok {
		return true
	}
	if len(r.symbols) >= MaxRegimeSymbols {
		return false
	}
	r.symbols[symbol] = struct{}{}
	return true
}

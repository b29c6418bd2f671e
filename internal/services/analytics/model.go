package analytics

import (
	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domsvc "github.com/sourav-625/market-regime-radar/internal/domain/service"
	"github.com/sourav-625/market-regime-radar/pkg/hmm"
)

// fittedModel exposes an hmm.Model through the read-only FittedModel view.
// Accessors return copies.
type fittedModel struct {
	m         *hmm.Model
	estimator string
}

// NewFittedModel wraps m. estimator names the backend that produced it.
func NewFittedModel(m *hmm.Model, estimator string) domsvc.FittedModel {
	return &fittedModel{m: m, estimator: estimator}
}

func (f *fittedModel) NumStates() int { return f.m.NumStates() }

func (f *fittedModel) Means() []float64 { return append([]float64(nil), f.m.Means...) }

func (f *fittedModel) Variances() []float64 { return append([]float64(nil), f.m.Variances...) }

func (f *fittedModel) TransitionMatrix() [][]float64 {
	out := make([][]float64, len(f.m.TransMat))
	for i, row := range f.m.TransMat {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

func (f *fittedModel) PredictProba(obs []float64) ([][]float64, error) {
	return f.m.PredictProba(obs)
}

func (f *fittedModel) Decode(obs []float64) ([]int, error) {
	return f.m.Decode(obs)
}

func (f *fittedModel) Diagnostics() models.FitDiagnostics {
	return models.FitDiagnostics{
		Estimator:     f.estimator,
		Iterations:    f.m.Iterations,
		Converged:     f.m.Converged,
		LogLikelihood: f.m.LogLikelihood,
	}
}

package service

import (
	"context"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
)

// FittedModel is a read-only Gaussian HMM with K states.
type FittedModel interface {
	NumStates() int
	Means() []float64
	Variances() []float64
	TransitionMatrix() [][]float64
	PredictProba(obs []float64) ([][]float64, error)
	Decode(obs []float64) ([]int, error)
	Diagnostics() models.FitDiagnostics
}

// RegimeEstimator fits a model with the requested number of states to a return series.
type RegimeEstimator interface {
	Fit(ctx context.Context, returns models.ReturnSeries, states int) (FittedModel, error)
}

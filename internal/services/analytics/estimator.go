package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domsvc "github.com/sourav-625/market-regime-radar/internal/domain/service"
	"github.com/sourav-625/market-regime-radar/pkg/config"
	"github.com/sourav-625/market-regime-radar/pkg/hmm"
)

const (
	MinStates = 2
	MaxStates = 5
)

// HMMEstimator fits Gaussian HMMs in-process.
type HMMEstimator struct {
	opts []hmm.FitOption
}

func NewHMMEstimator(cfg *config.Config) *HMMEstimator {
	a := cfg.Analysis
	return &HMMEstimator{opts: []hmm.FitOption{
		hmm.WithMaxIter(a.MaxIter),
		hmm.WithTolerance(a.Tolerance),
		hmm.WithSeed(a.Seed),
		hmm.WithMinVariance(a.MinVariance),
	}}
}

func (e *HMMEstimator) Fit(ctx context.Context, returns models.ReturnSeries, states int) (domsvc.FittedModel, error) {
	if err := validateFitInput(returns, states); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := hmm.Fit(returns.Values, states, e.opts...)
	if err != nil {
		return nil, mapHMMError(err)
	}
	return NewFittedModel(m, config.EstimatorLocal), nil
}

func validateFitInput(returns models.ReturnSeries, states int) error {
	if states < MinStates || states > MaxStates {
		return fmt.Errorf("%w: regime count %d outside [%d, %d]", models.ErrInvalidRequest, states, MinStates, MaxStates)
	}
	if returns.Len() < states {
		return fmt.Errorf("%d returns for %d regimes: %w", returns.Len(), states, models.ErrInsufficientData)
	}
	return nil
}

func mapHMMError(err error) error {
	switch {
	case errors.Is(err, hmm.ErrNoObservations), errors.Is(err, hmm.ErrTooFewObservations):
		return fmt.Errorf("fit: %v: %w", err, models.ErrInsufficientData)
	case errors.Is(err, hmm.ErrNonFinite), errors.Is(err, hmm.ErrInvalidModel):
		return fmt.Errorf("fit: %v: %w", err, models.ErrNumericDegeneracy)
	default:
		return fmt.Errorf("fit: %w", err)
	}
}

var _ domsvc.RegimeEstimator = (*HMMEstimator)(nil)

package analytics

import (
	"context"
	"fmt"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domsvc "github.com/sourav-625/market-regime-radar/internal/domain/service"
	"github.com/sourav-625/market-regime-radar/pkg/config"
	"github.com/sourav-625/market-regime-radar/pkg/hmm"
)

const fitPath = "/hmm/fit"

// RemoteEstimator delegates Baum-Welch to an external model service and
// rebuilds the returned parameters locally, so inference never leaves the
// process.
type RemoteEstimator struct {
	base *HTTPServiceBase
	cfg  config.AnalysisConfig
}

func NewRemoteEstimator(cfg *config.Config, base *HTTPServiceBase) *RemoteEstimator {
	if base == nil {
		base = NewHTTPServiceBase(cfg)
	}
	return &RemoteEstimator{base: base, cfg: cfg.Analysis}
}

type fitRequest struct {
	Symbol  string    `json:"symbol"`
	Returns []float64 `json:"returns"`
	States  int       `json:"n_components"`
	MaxIter int       `json:"n_iter"`
	Tol     float64   `json:"tol"`
	Seed    int64     `json:"random_state"`
}

type fitResponse struct {
	StartProb     []float64   `json:"startprob"`
	TransMat      [][]float64 `json:"transmat"`
	Means         []float64   `json:"means"`
	Variances     []float64   `json:"variances"`
	Iterations    int         `json:"n_iter"`
	Converged     bool        `json:"converged"`
	LogLikelihood float64     `json:"log_likelihood"`
}

func (e *RemoteEstimator) Fit(ctx context.Context, returns models.ReturnSeries, states int) (domsvc.FittedModel, error) {
	if err := validateFitInput(returns, states); err != nil {
		return nil, err
	}

	var resp fitResponse
	err := e.base.PostJSONWithRetry(ctx, fitPath, fitRequest{
		Symbol:  returns.Symbol,
		Returns: returns.Values,
		States:  states,
		MaxIter: e.cfg.MaxIter,
		Tol:     e.cfg.Tolerance,
		Seed:    e.cfg.Seed,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("remote fit: %w", err)
	}

	m, err := hmm.New(resp.StartProb, resp.TransMat, resp.Means, resp.Variances)
	if err != nil {
		return nil, fmt.Errorf("remote fit: %v: %w", err, models.ErrNumericDegeneracy)
	}
	if m.NumStates() != states {
		return nil, fmt.Errorf("remote fit returned %d states, want %d: %w", m.NumStates(), states, models.ErrNumericDegeneracy)
	}
	m.Iterations = resp.Iterations
	m.Converged = resp.Converged
	m.LogLikelihood = resp.LogLikelihood
	return NewFittedModel(m, config.EstimatorRemote), nil
}

// NewEstimator selects the backend named by cfg.Analysis.Estimator.
func NewEstimator(cfg *config.Config) domsvc.RegimeEstimator {
	if cfg.Analysis.Estimator == config.EstimatorRemote {
		return NewRemoteEstimator(cfg, nil)
	}
	return NewHMMEstimator(cfg)
}

var _ domsvc.RegimeEstimator = (*RemoteEstimator)(nil)

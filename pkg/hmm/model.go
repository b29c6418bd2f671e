// Package hmm implements a one-dimensional hidden Markov model with Gaussian
// emissions. Models are fitted with Baum-Welch and decoded with Viterbi; all
// recursions run in log space.
package hmm

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrNoObservations     = errors.New("hmm: no observations")
	ErrTooFewObservations = errors.New("hmm: fewer observations than states")
	ErrNonFinite          = errors.New("hmm: non-finite observation")
	ErrInvalidModel       = errors.New("hmm: invalid model")
)

// probability vectors may drift from 1 by accumulated rounding
const sumTolerance = 1e-6

// Model is a Gaussian HMM with one scalar emission per step.
type Model struct {
	StartProb []float64   `json:"start_prob"`
	TransMat  [][]float64 `json:"trans_mat"`
	Means     []float64   `json:"means"`
	Variances []float64   `json:"variances"`

	// Fit diagnostics. Zero for models built with New.
	Iterations    int     `json:"iterations"`
	Converged     bool    `json:"converged"`
	LogLikelihood float64 `json:"log_likelihood"`
}

// New builds a model from explicit parameters. Inputs are copied.
func New(startProb []float64, transMat [][]float64, means, variances []float64) (*Model, error) {
	m := &Model{
		StartProb: cloneVector(startProb),
		TransMat:  cloneMatrix(transMat),
		Means:     cloneVector(means),
		Variances: cloneVector(variances),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks dimensions and that every probability vector is a distribution.
func (m *Model) Validate() error {
	k := len(m.Means)
	if k == 0 {
		return fmt.Errorf("%w: no states", ErrInvalidModel)
	}
	if len(m.Variances) != k || len(m.StartProb) != k || len(m.TransMat) != k {
		return fmt.Errorf("%w: inconsistent dimensions for %d states", ErrInvalidModel, k)
	}
	if !isDistribution(m.StartProb) {
		return fmt.Errorf("%w: start probabilities must sum to 1", ErrInvalidModel)
	}
	for i, row := range m.TransMat {
		if len(row) != k {
			return fmt.Errorf("%w: transition row %d has %d entries", ErrInvalidModel, i, len(row))
		}
		if !isDistribution(row) {
			return fmt.Errorf("%w: transition row %d must sum to 1", ErrInvalidModel, i)
		}
	}
	for i := 0; i < k; i++ {
		if math.IsNaN(m.Means[i]) || math.IsInf(m.Means[i], 0) {
			return fmt.Errorf("%w: mean of state %d is not finite", ErrInvalidModel, i)
		}
		if !(m.Variances[i] > 0) || math.IsInf(m.Variances[i], 0) {
			return fmt.Errorf("%w: variance of state %d must be positive", ErrInvalidModel, i)
		}
	}
	return nil
}

// NumStates returns K.
func (m *Model) NumStates() int { return len(m.Means) }

// Score returns the log-likelihood of obs under the model.
func (m *Model) Score(obs []float64) (float64, error) {
	if err := checkObservations(obs); err != nil {
		return 0, err
	}
	logStart, logTrans := m.logParams()
	_, ll := forward(logStart, logTrans, m.logEmissions(obs))
	return ll, nil
}

// PredictProba returns the posterior state probabilities for every step.
// Each row sums to 1.
func (m *Model) PredictProba(obs []float64) ([][]float64, error) {
	if err := checkObservations(obs); err != nil {
		return nil, err
	}
	logStart, logTrans := m.logParams()
	logB := m.logEmissions(obs)
	alpha, _ := forward(logStart, logTrans, logB)
	beta := backward(logTrans, logB)
	return posteriors(alpha, beta), nil
}

// Sample draws n observations and the hidden path that produced them.
func (m *Model) Sample(n int, rng *rand.Rand) ([]float64, []int) {
	obs := make([]float64, n)
	states := make([]int, n)
	s := 0
	for t := 0; t < n; t++ {
		if t == 0 {
			s = draw(m.StartProb, rng)
		} else {
			s = draw(m.TransMat[s], rng)
		}
		states[t] = s
		obs[t] = m.Means[s] + math.Sqrt(m.Variances[s])*rng.NormFloat64()
	}
	return obs, states
}

func (m *Model) logParams() ([]float64, [][]float64) {
	logStart := logVector(m.StartProb)
	logTrans := make([][]float64, len(m.TransMat))
	for i, row := range m.TransMat {
		logTrans[i] = logVector(row)
	}
	return logStart, logTrans
}

// logEmissions returns log N(x_t; mu_k, var_k) indexed [t][k].
func (m *Model) logEmissions(obs []float64) [][]float64 {
	k := m.NumStates()
	dists := make([]distuv.Normal, k)
	for i := range dists {
		dists[i] = distuv.Normal{Mu: m.Means[i], Sigma: math.Sqrt(m.Variances[i])}
	}
	out := newMatrix(len(obs), k)
	for t, x := range obs {
		for i := range dists {
			out[t][i] = dists[i].LogProb(x)
		}
	}
	return out
}

func checkObservations(obs []float64) error {
	if len(obs) == 0 {
		return ErrNoObservations
	}
	for i, x := range obs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w at index %d", ErrNonFinite, i)
		}
	}
	return nil
}

func isDistribution(p []float64) bool {
	for _, v := range p {
		if v < 0 || math.IsNaN(v) {
			return false
		}
	}
	return math.Abs(floats.Sum(p)-1) <= sumTolerance
}

func draw(p []float64, rng *rand.Rand) int {
	u := rng.Float64()
	for i, v := range p {
		u -= v
		if u < 0 {
			return i
		}
	}
	return len(p) - 1
}

func logVector(p []float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = math.Log(v)
	}
	return out
}

func newMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func cloneVector(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = cloneVector(row)
	}
	return out
}

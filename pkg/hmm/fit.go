package hmm

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultMaxIter     = 1000
	DefaultTolerance   = 1e-2
	DefaultSeed        = 42
	DefaultMinVariance = 1e-8
)

// FitOptions controls Baum-Welch.
type FitOptions struct {
	MaxIter     int
	Tolerance   float64
	Seed        int64
	MinVariance float64
}

// FitOption configures FitOptions.
type FitOption func(*FitOptions)

// WithMaxIter caps the number of EM iterations.
func WithMaxIter(n int) FitOption {
	return func(o *FitOptions) {
		if n > 0 {
			o.MaxIter = n
		}
	}
}

// WithTolerance sets the minimum log-likelihood gain that keeps EM running.
func WithTolerance(tol float64) FitOption {
	return func(o *FitOptions) {
		if tol > 0 {
			o.Tolerance = tol
		}
	}
}

// WithSeed sets the seed used for initialization.
func WithSeed(seed int64) FitOption {
	return func(o *FitOptions) { o.Seed = seed }
}

// WithMinVariance sets the floor applied to every state variance.
func WithMinVariance(v float64) FitOption {
	return func(o *FitOptions) {
		if v > 0 {
			o.MinVariance = v
		}
	}
}

// Fit estimates a model with the given number of states from obs.
//
// Means are initialized by seeded k-means++, variances by the sample variance
// of obs, and start and transition probabilities uniformly. EM stops when the
// log-likelihood gain drops below the tolerance or after MaxIter iterations;
// hitting the cap is reported through Converged, not as an error.
func Fit(obs []float64, states int, opts ...FitOption) (*Model, error) {
	o := FitOptions{
		MaxIter:     DefaultMaxIter,
		Tolerance:   DefaultTolerance,
		Seed:        DefaultSeed,
		MinVariance: DefaultMinVariance,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if states < 1 {
		return nil, fmt.Errorf("%w: state count %d", ErrInvalidModel, states)
	}
	if err := checkObservations(obs); err != nil {
		return nil, err
	}
	if len(obs) < states {
		return nil, fmt.Errorf("%w: %d observations for %d states", ErrTooFewObservations, len(obs), states)
	}

	m := initialModel(obs, states, o)
	prev := math.Inf(-1)
	for iter := 1; iter <= o.MaxIter; iter++ {
		ll := m.emStep(obs, o.MinVariance)
		m.Iterations = iter
		if iter > 1 && ll-prev < o.Tolerance {
			m.Converged = true
			break
		}
		prev = ll
	}

	logStart, logTrans := m.logParams()
	_, m.LogLikelihood = forward(logStart, logTrans, m.logEmissions(obs))
	return m, nil
}

func initialModel(obs []float64, k int, o FitOptions) *Model {
	rng := rand.New(rand.NewSource(o.Seed))
	means := kmeans(obs, k, rng)

	variance := 0.0
	if len(obs) > 1 {
		_, variance = stat.MeanVariance(obs, nil)
	}
	if math.IsNaN(variance) || variance < o.MinVariance {
		variance = o.MinVariance
	}

	m := &Model{
		StartProb: make([]float64, k),
		TransMat:  newMatrix(k, k),
		Means:     means,
		Variances: make([]float64, k),
	}
	for i := 0; i < k; i++ {
		m.StartProb[i] = 1 / float64(k)
		m.Variances[i] = variance
		for j := 0; j < k; j++ {
			m.TransMat[i][j] = 1 / float64(k)
		}
	}
	return m
}

// emStep runs one E and M step in place and returns the log-likelihood of
// the parameters it started from.
func (m *Model) emStep(obs []float64, minVariance float64) float64 {
	n, k := len(obs), m.NumStates()
	logStart, logTrans := m.logParams()
	logB := m.logEmissions(obs)
	alpha, ll := forward(logStart, logTrans, logB)
	beta := backward(logTrans, logB)
	gamma := posteriors(alpha, beta)

	xi := newMatrix(k, k)
	for t := 0; t < n-1; t++ {
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				xi[i][j] += math.Exp(alpha[t][i] + logTrans[i][j] + logB[t+1][j] + beta[t+1][j] - ll)
			}
		}
	}

	copy(m.StartProb, gamma[0])
	floats.Scale(1/floats.Sum(m.StartProb), m.StartProb)

	for i := 0; i < k; i++ {
		total := floats.Sum(xi[i])
		if total <= 0 || math.IsNaN(total) {
			continue
		}
		for j := 0; j < k; j++ {
			m.TransMat[i][j] = xi[i][j] / total
		}
	}

	weights := make([]float64, n)
	for i := 0; i < k; i++ {
		for t := range gamma {
			weights[t] = gamma[t][i]
		}
		// a state that explains no observation keeps its previous emission
		if floats.Sum(weights) < 1e-300 {
			continue
		}
		mean, variance := stat.PopMeanVariance(obs, weights)
		if math.IsNaN(mean) || math.IsNaN(variance) {
			continue
		}
		m.Means[i] = mean
		m.Variances[i] = math.Max(variance, minVariance)
	}
	return ll
}

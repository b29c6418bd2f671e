package hmm

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// forward returns log alpha indexed [t][k] and the sequence log-likelihood.
func forward(logStart []float64, logTrans, logB [][]float64) ([][]float64, float64) {
	n, k := len(logB), len(logStart)
	alpha := newMatrix(n, k)
	buf := make([]float64, k)
	for j := 0; j < k; j++ {
		alpha[0][j] = logStart[j] + logB[0][j]
	}
	for t := 1; t < n; t++ {
		for j := 0; j < k; j++ {
			for i := 0; i < k; i++ {
				buf[i] = alpha[t-1][i] + logTrans[i][j]
			}
			alpha[t][j] = floats.LogSumExp(buf) + logB[t][j]
		}
	}
	return alpha, floats.LogSumExp(alpha[n-1])
}

// backward returns log beta indexed [t][k]. The last row is zero.
func backward(logTrans, logB [][]float64) [][]float64 {
	n, k := len(logB), len(logTrans)
	beta := newMatrix(n, k)
	buf := make([]float64, k)
	for t := n - 2; t >= 0; t-- {
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				buf[j] = logTrans[i][j] + logB[t+1][j] + beta[t+1][j]
			}
			beta[t][i] = floats.LogSumExp(buf)
		}
	}
	return beta
}

// posteriors normalizes alpha*beta per step into state probabilities.
func posteriors(alpha, beta [][]float64) [][]float64 {
	gamma := newMatrix(len(alpha), len(alpha[0]))
	for t := range alpha {
		row := gamma[t]
		for i := range row {
			row[i] = alpha[t][i] + beta[t][i]
		}
		norm := floats.LogSumExp(row)
		for i := range row {
			row[i] = math.Exp(row[i] - norm)
		}
	}
	return gamma
}

// Decode returns the single most likely state path (Viterbi). Ties resolve
// to the lowest state index.
func (m *Model) Decode(obs []float64) ([]int, error) {
	if err := checkObservations(obs); err != nil {
		return nil, err
	}
	logStart, logTrans := m.logParams()
	logB := m.logEmissions(obs)
	n, k := len(obs), m.NumStates()

	delta := make([]float64, k)
	for j := 0; j < k; j++ {
		delta[j] = logStart[j] + logB[0][j]
	}
	psi := make([][]int, n)
	for t := 1; t < n; t++ {
		next := make([]float64, k)
		psi[t] = make([]int, k)
		for j := 0; j < k; j++ {
			best, arg := math.Inf(-1), 0
			for i := 0; i < k; i++ {
				if v := delta[i] + logTrans[i][j]; v > best {
					best, arg = v, i
				}
			}
			next[j] = best + logB[t][j]
			psi[t][j] = arg
		}
		delta = next
	}

	path := make([]int, n)
	path[n-1] = floats.MaxIdx(delta)
	for t := n - 1; t > 0; t-- {
		path[t-1] = psi[t][path[t]]
	}
	return path, nil
}

package analytics

import (
	"math"
	"testing"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	"github.com/sourav-625/market-regime-radar/pkg/hmm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separated(t *testing.T, trans [][]float64) *fittedModel {
	t.Helper()
	m, err := hmm.New([]float64{0.5, 0.5}, trans, []float64{-1, 1}, []float64{0.01, 0.04})
	require.NoError(t, err)
	return &fittedModel{m: m, estimator: "local"}
}

func series(values ...float64) models.ReturnSeries {
	return models.ReturnSeries{Symbol: "TEST", Values: values}
}

func TestCurrentRegimeInfo(t *testing.T) {
	m := separated(t, [][]float64{{0.9, 0.1}, {0.1, 0.9}})

	cur, err := CurrentRegimeInfo(m, series(-1, -1.1, 0.9, 1.05))
	require.NoError(t, err)
	assert.Equal(t, 1, cur.State)
	assert.Greater(t, cur.Confidence, 0.99)
	assert.LessOrEqual(t, cur.Confidence, 1.0)
	assert.Equal(t, 1.0, cur.MeanReturn)
	assert.InDelta(t, 0.2, cur.Volatility, 1e-12)

	_, err = CurrentRegimeInfo(m, series())
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestRegimeDuration(t *testing.T) {
	m := separated(t, [][]float64{{0.9, 0.1}, {0.1, 0.9}})

	d, path, err := RegimeDuration(m, series(1, 1, -1, -1, -1))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 0, 0, 0}, path)
	assert.Equal(t, 0, d.CurrentRegime)
	assert.Equal(t, 3, d.DurationSteps)
	require.NotNil(t, d.PreviousRegime)
	assert.Equal(t, 1, *d.PreviousRegime)
}

func TestDurationFromPath(t *testing.T) {
	tests := []struct {
		name  string
		path  []int
		steps int
		prev  *int
	}{
		{"single step", []int{2}, 1, nil},
		{"whole path one run", []int{1, 1, 1}, 3, nil},
		{"switch at end", []int{0, 0, 0, 1}, 1, intPtr(0)},
		{"trailing run", []int{2, 0, 1, 1}, 2, intPtr(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DurationFromPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.path[len(tt.path)-1], d.CurrentRegime)
			assert.Equal(t, tt.steps, d.DurationSteps)
			assert.GreaterOrEqual(t, d.DurationSteps, 1)
			assert.LessOrEqual(t, d.DurationSteps, len(tt.path))
			assert.Equal(t, tt.prev, d.PreviousRegime)
		})
	}

	_, err := DurationFromPath(nil)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestExpectedDuration(t *testing.T) {
	d, err := ExpectedDuration(0.9)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, d, 1e-9)

	d, err = ExpectedDuration(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)

	d, err = ExpectedDuration(1 - 1e-13)
	require.NoError(t, err)
	assert.False(t, math.IsInf(d, 0))
	assert.Greater(t, d, 1e12)

	for _, p := range []float64{1, 1.0000001, math.NaN()} {
		_, err := ExpectedDuration(p)
		assert.ErrorIs(t, err, models.ErrNumericDegeneracy, "p=%v", p)
	}
}

func TestRegimeTransitionInfo(t *testing.T) {
	m, err := hmm.New(
		[]float64{1, 0, 0},
		[][]float64{{0.5, 0.25, 0.25}, {0.1, 0.8, 0.1}, {0.3, 0.6, 0.1}},
		[]float64{0, 1, 2},
		[]float64{1, 1, 1},
	)
	require.NoError(t, err)

	info, err := RegimeTransitionInfo(NewFittedModel(m, "local"))
	require.NoError(t, err)
	assert.Equal(t, m.TransMat, info.Matrix)

	require.Len(t, info.ExpectedDurations, 3)
	assert.InDelta(t, 2.0, *info.ExpectedDurations[0].Steps, 1e-9)
	assert.InDelta(t, 5.0, *info.ExpectedDurations[1].Steps, 1e-9)

	require.Len(t, info.MostLikely, 3)
	// 0 -> 1 and 0 -> 2 tie, lowest index wins
	assert.Equal(t, models.Transition{From: 0, To: 1, Probability: 0.25}, info.MostLikely[0])
	assert.Equal(t, 0, info.MostLikely[1].To)
	assert.Equal(t, 1, info.MostLikely[2].To)
	for _, tr := range info.MostLikely {
		assert.NotEqual(t, tr.From, tr.To)
	}
}

func TestRegimeTransitionInfo_AbsorbingState(t *testing.T) {
	m := separated(t, [][]float64{{1, 0}, {0.3, 0.7}})

	info, err := RegimeTransitionInfo(m)
	require.NoError(t, err)
	assert.True(t, info.ExpectedDurations[0].Absorbing)
	assert.Nil(t, info.ExpectedDurations[0].Steps)
	assert.False(t, info.ExpectedDurations[1].Absorbing)
	assert.Equal(t, models.Transition{From: 0, To: 1, Probability: 0}, info.MostLikely[0])
}

func TestFittedModel_ReturnsCopies(t *testing.T) {
	m := separated(t, [][]float64{{0.9, 0.1}, {0.1, 0.9}})
	m.TransitionMatrix()[0][0] = 42
	m.Means()[0] = 42
	assert.Equal(t, 0.9, m.m.TransMat[0][0])
	assert.Equal(t, -1.0, m.m.Means[0])
}

func intPtr(v int) *int { return &v }

package analytics

import (
	"testing"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	"github.com/sourav-625/market-regime-radar/pkg/hmm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaries(pairs ...[2]float64) []models.RegimeSummary {
	out := make([]models.RegimeSummary, len(pairs))
	for i, p := range pairs {
		out[i] = models.RegimeSummary{State: i, MeanReturn: p[0], Volatility: p[1]}
	}
	return out
}

func TestLabelRegimes_FourStates(t *testing.T) {
	labels, approx := LabelRegimes(summaries(
		[2]float64{0.002, 0.010},
		[2]float64{-0.003, 0.030},
		[2]float64{0.0001, 0.005},
		[2]float64{0.0002, 0.020},
	))
	assert.False(t, approx)
	assert.Equal(t, []models.RegimeLabel{
		models.LabelBullish, models.LabelBearish, models.LabelCalm, models.LabelVolatile,
	}, labels)
	assert.ElementsMatch(t, models.AllLabels(), labels)
}

func TestLabelRegimes_OtherCounts(t *testing.T) {
	labels, approx := LabelRegimes(summaries([2]float64{-0.01, 0.02}, [2]float64{0.01, 0.01}))
	assert.True(t, approx)
	assert.Equal(t, []models.RegimeLabel{models.LabelBearish, models.LabelBullish}, labels)

	labels, approx = LabelRegimes(summaries(
		[2]float64{0, 0.01}, [2]float64{0.01, 0.02}, [2]float64{-0.01, 0.03},
	))
	assert.True(t, approx)
	assert.Equal(t, []models.RegimeLabel{models.LabelCalm, models.LabelBullish, models.LabelBearish}, labels)

	labels, _ = LabelRegimes(summaries(
		[2]float64{0.003, 0.01}, [2]float64{0.001, 0.04}, [2]float64{0.0, 0.005},
		[2]float64{0.002, 0.02}, [2]float64{-0.002, 0.05},
	))
	assert.Equal(t, []models.RegimeLabel{
		models.LabelBullish, models.LabelVolatile, models.LabelCalm, models.LabelVolatile, models.LabelBearish,
	}, labels)
}

func TestLabelRegimes_EqualMeansPreferLowerVolatility(t *testing.T) {
	labels, _ := LabelRegimes(summaries([2]float64{0, 0.02}, [2]float64{0, 0.01}))
	assert.Equal(t, []models.RegimeLabel{models.LabelBearish, models.LabelBullish}, labels)

	labels, _ = LabelRegimes(summaries([2]float64{0, 0.01}, [2]float64{0, 0.01}))
	assert.Equal(t, []models.RegimeLabel{models.LabelBullish, models.LabelBearish}, labels)
}

func TestSummarize(t *testing.T) {
	m, err := hmm.New([]float64{0.5, 0.5}, [][]float64{{0.9, 0.1}, {0.2, 0.8}}, []float64{0.001, -0.002}, []float64{1e-4, 4e-4})
	require.NoError(t, err)

	out, approx := Summarize(NewFittedModel(m, "local"))
	assert.True(t, approx)
	require.Len(t, out, 2)
	assert.Equal(t, 0, out[0].State)
	assert.Equal(t, 0.001, out[0].MeanReturn)
	assert.InDelta(t, 0.01, out[0].Volatility, 1e-12)
	assert.Equal(t, models.LabelBullish, out[0].Label)
	assert.InDelta(t, 0.02, out[1].Volatility, 1e-12)
	assert.Equal(t, models.LabelBearish, out[1].Label)
}

package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
)

func series(prices ...float64) models.PriceSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := models.PriceSeries{Symbol: "TEST"}
	for i, p := range prices {
		s.Points = append(s.Points, models.PricePoint{Time: start.AddDate(0, 0, i), Price: p})
	}
	return s
}

func TestComputeLogReturns_LengthIsNMinusOne(t *testing.T) {
	for n := 2; n <= 40; n++ {
		prices := make([]float64, n)
		for i := range prices {
			prices[i] = 100 + float64(i%7)
		}
		r, err := ComputeLogReturns(series(prices...))
		require.NoError(t, err)
		assert.Equal(t, n-1, r.Len())
		assert.Len(t, r.Times, n-1)
	}
}

func TestComputeLogReturns_Values(t *testing.T) {
	s := series(100, 110, 99)
	r, err := ComputeLogReturns(s)
	require.NoError(t, err)
	assert.Equal(t, "TEST", r.Symbol)
	assert.InDelta(t, math.Log(1.1), r.Values[0], 1e-12)
	assert.InDelta(t, math.Log(0.9), r.Values[1], 1e-12)
	assert.Equal(t, s.Points[1].Time, r.Times[0])
	assert.Equal(t, s.Points[2].Time, r.Times[1])
}

func TestComputeLogReturns_InsufficientData(t *testing.T) {
	_, err := ComputeLogReturns(series(100))
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = ComputeLogReturns(models.PriceSeries{})
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestComputeLogReturns_NonPositivePrice(t *testing.T) {
	_, err := ComputeLogReturns(series(100, 0, 101))
	assert.ErrorIs(t, err, models.ErrInvalidPrice)

	_, err = ComputeLogReturns(series(100, -5))
	assert.ErrorIs(t, err, models.ErrInvalidPrice)
}

func TestRealizedVolatility(t *testing.T) {
	assert.Zero(t, RealizedVolatility(nil, TradingDaysPerYear))
	assert.Zero(t, RealizedVolatility([]float64{0.01}, TradingDaysPerYear))

	// sample sd of {0.01, -0.01} is sqrt(2)*0.01
	got := RealizedVolatility([]float64{0.01, -0.01}, TradingDaysPerYear)
	assert.InDelta(t, math.Sqrt2*0.01*math.Sqrt(TradingDaysPerYear), got, 1e-12)
}

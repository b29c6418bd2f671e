package features

import (
	"fmt"
	"math"
	"time"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualizes daily returns.
const TradingDaysPerYear = 252

// ComputeLogReturns computes r_t = ln(P_t / P_{t-1}).
// The result has len(series)-1 entries, timestamped with the later price.
func ComputeLogReturns(series models.PriceSeries) (models.ReturnSeries, error) {
	n := series.Len()
	if n < 2 {
		return models.ReturnSeries{}, fmt.Errorf("%w: %d prices, need at least 2", models.ErrInsufficientData, n)
	}
	out := models.ReturnSeries{
		Symbol: series.Symbol,
		Times:  make([]time.Time, 0, n-1),
		Values: make([]float64, 0, n-1),
	}
	for i := 1; i < n; i++ {
		prev := series.Points[i-1].Price
		cur := series.Points[i].Price
		if !(prev > 0) || !(cur > 0) {
			return models.ReturnSeries{}, fmt.Errorf("%w: non-positive price near index %d", models.ErrInvalidPrice, i)
		}
		out.Times = append(out.Times, series.Points[i].Time)
		out.Values = append(out.Values, math.Log(cur/prev))
	}
	return out, nil
}

// RealizedVolatility returns the annualized sample standard deviation of
// logReturns. Fewer than two returns yield 0.
func RealizedVolatility(logReturns []float64, barsPerYear float64) float64 {
	if len(logReturns) < 2 {
		return 0
	}
	return stat.StdDev(logReturns, nil) * math.Sqrt(barsPerYear)
}

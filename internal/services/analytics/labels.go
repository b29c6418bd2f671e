package analytics

import (
	"math"
	"sort"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domsvc "github.com/sourav-625/market-regime-radar/internal/domain/service"
)

// labelledStates is the state count the four labels were designed for.
const labelledStates = 4

// Summarize lists each state's mean, volatility and label.
func Summarize(m domsvc.FittedModel) ([]models.RegimeSummary, bool) {
	means := m.Means()
	vars := m.Variances()
	out := make([]models.RegimeSummary, len(means))
	for i := range means {
		out[i] = models.RegimeSummary{
			State:      i,
			MeanReturn: means[i],
			Volatility: math.Sqrt(vars[i]),
		}
	}
	labels, approximate := LabelRegimes(out)
	for i := range out {
		out[i].Label = labels[i]
	}
	return out, approximate
}

// LabelRegimes names states by rank. The highest mean is Bullish and the
// lowest is Bearish. The remaining states go by volatility: the calmest is
// Calm and any others are High Volatility. Equal means rank the lower
// volatility first, then the lower index. The result is indexed by state
// and flagged approximate unless there are exactly four states.
func LabelRegimes(states []models.RegimeSummary) ([]models.RegimeLabel, bool) {
	n := len(states)
	labels := make([]models.RegimeLabel, n)
	if n == 0 {
		return labels, true
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := states[order[a]], states[order[b]]
		if sa.MeanReturn != sb.MeanReturn {
			return sa.MeanReturn > sb.MeanReturn
		}
		if sa.Volatility != sb.Volatility {
			return sa.Volatility < sb.Volatility
		}
		return sa.State < sb.State
	})

	labels[order[0]] = models.LabelBullish
	if n == 1 {
		return labels, true
	}
	labels[order[n-1]] = models.LabelBearish

	middle := append([]int(nil), order[1:n-1]...)
	sort.SliceStable(middle, func(a, b int) bool {
		va, vb := states[middle[a]].Volatility, states[middle[b]].Volatility
		if va != vb {
			return va < vb
		}
		return states[middle[a]].State < states[middle[b]].State
	})
	for i, idx := range middle {
		if i == 0 {
			labels[idx] = models.LabelCalm
		} else {
			labels[idx] = models.LabelVolatile
		}
	}
	return labels, n != labelledStates
}

package analytics

import (
	"fmt"
	"math"

	"github.com/sourav-625/market-regime-radar/internal/domain/models"
	domsvc "github.com/sourav-625/market-regime-radar/internal/domain/service"

	"gonum.org/v1/gonum/floats"
)

// CurrentRegimeInfo reports the most probable state at the last return.
// Ties go to the lowest state index.
func CurrentRegimeInfo(m domsvc.FittedModel, returns models.ReturnSeries) (models.CurrentRegime, error) {
	var out models.CurrentRegime
	if returns.Len() == 0 {
		return out, fmt.Errorf("current regime: %w", models.ErrInsufficientData)
	}
	post, err := m.PredictProba(returns.Values)
	if err != nil {
		return out, fmt.Errorf("current regime: %w", err)
	}
	last := post[len(post)-1]
	state := floats.MaxIdx(last)

	out.State = state
	out.Confidence = last[state]
	out.MeanReturn = m.Means()[state]
	out.Volatility = math.Sqrt(m.Variances()[state])
	return out, nil
}

// RegimeDuration decodes the most likely state path and measures how long
// the final state has persisted.
func RegimeDuration(m domsvc.FittedModel, returns models.ReturnSeries) (models.RegimeDuration, []int, error) {
	if returns.Len() == 0 {
		return models.RegimeDuration{}, nil, fmt.Errorf("regime duration: %w", models.ErrInsufficientData)
	}
	path, err := m.Decode(returns.Values)
	if err != nil {
		return models.RegimeDuration{}, nil, fmt.Errorf("regime duration: %w", err)
	}
	d, err := DurationFromPath(path)
	return d, path, err
}

// DurationFromPath measures the trailing run of path. PreviousRegime is the
// state immediately before that run, or nil when the whole path is one run.
func DurationFromPath(path []int) (models.RegimeDuration, error) {
	if len(path) == 0 {
		return models.RegimeDuration{}, models.ErrInsufficientData
	}
	last := len(path) - 1
	current := path[last]
	steps := 1
	for i := last - 1; i >= 0 && path[i] == current; i-- {
		steps++
	}

	d := models.RegimeDuration{CurrentRegime: current, DurationSteps: steps}
	if steps < len(path) {
		prev := path[last-steps]
		d.PreviousRegime = &prev
	}
	return d, nil
}

// ExpectedDuration is the mean sojourn 1/(1-p) of a state whose
// self-transition probability is p. Only p >= 1 (or NaN) is absorbing;
// values just below 1 give a large but finite duration.
func ExpectedDuration(p float64) (float64, error) {
	if math.IsNaN(p) || p >= 1 {
		return 0, fmt.Errorf("expected duration for self-transition %v: %w", p, models.ErrNumericDegeneracy)
	}
	return 1 / (1 - p), nil
}

// RegimeTransitionInfo summarizes the transition matrix. Absorbing states
// are flagged rather than failing the whole summary.
func RegimeTransitionInfo(m domsvc.FittedModel) (models.TransitionInfo, error) {
	trans := m.TransitionMatrix()
	k := len(trans)
	if k == 0 {
		return models.TransitionInfo{}, fmt.Errorf("transition info: %w", models.ErrInsufficientData)
	}

	info := models.TransitionInfo{
		Matrix:            trans,
		ExpectedDurations: make([]models.ExpectedDuration, k),
		MostLikely:        make([]models.Transition, 0, k),
	}
	for i, row := range trans {
		ed := models.ExpectedDuration{State: i}
		if steps, err := ExpectedDuration(row[i]); err == nil {
			ed.Steps = &steps
		} else {
			ed.Absorbing = true
		}
		info.ExpectedDurations[i] = ed

		if to, ok := mostLikelyNext(row, i); ok {
			info.MostLikely = append(info.MostLikely, models.Transition{
				From:        i,
				To:          to,
				Probability: row[to],
			})
		}
	}
	return info, nil
}

// mostLikelyNext picks the largest off-diagonal entry of row. Ties go to
// the lowest index.
func mostLikelyNext(row []float64, self int) (int, bool) {
	best := -1
	for j, p := range row {
		if j == self {
			continue
		}
		if best < 0 || p > row[best] {
			best = j
		}
	}
	return best, best >= 0
}

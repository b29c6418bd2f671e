package models

import "time"

// RegimeLabel is a qualitative name for a hidden state.
type RegimeLabel string

const (
	LabelBullish  RegimeLabel = "Bullish/Growth"
	LabelCalm     RegimeLabel = "Calm/Sideways"
	LabelVolatile RegimeLabel = "High Volatility/Uncertain"
	LabelBearish  RegimeLabel = "Bearish/Turbulent"
)

// Description explains the label to a reader.
func (l RegimeLabel) Description() string {
	switch l {
	case LabelBullish:
		return "Prices tend to rise steadily with controlled risk."
	case LabelCalm:
		return "Market moves in a narrow range with low momentum."
	case LabelVolatile:
		return "Large price swings with no clear direction."
	case LabelBearish:
		return "Downward pressure combined with elevated risk."
	default:
		return ""
	}
}

// AllLabels lists the labels from most to least favourable.
func AllLabels() []RegimeLabel {
	return []RegimeLabel{LabelBullish, LabelCalm, LabelVolatile, LabelBearish}
}

// CurrentRegime describes the most probable state at the last observation.
type CurrentRegime struct {
	State      int         `json:"state"`
	Label      RegimeLabel `json:"label,omitempty"`
	Confidence float64     `json:"confidence"`
	MeanReturn float64     `json:"mean_return"`
	Volatility float64     `json:"volatility"`
}

// RegimeDuration is the trailing run of the decoded state path.
type RegimeDuration struct {
	CurrentRegime  int         `json:"current_regime"`
	PreviousRegime *int        `json:"previous_regime"`
	DurationSteps  int         `json:"duration_steps"`
	CurrentLabel   RegimeLabel `json:"current_label,omitempty"`
	PreviousLabel  RegimeLabel `json:"previous_label,omitempty"`
}

// ExpectedDuration is the expected sojourn of one state. Steps is nil when
// the state is absorbing.
type ExpectedDuration struct {
	State     int         `json:"state"`
	Label     RegimeLabel `json:"label,omitempty"`
	Steps     *float64    `json:"expected_steps"`
	Absorbing bool        `json:"absorbing"`
}

// Transition is the most likely move out of a state.
type Transition struct {
	From        int         `json:"from"`
	To          int         `json:"to"`
	Probability float64     `json:"probability"`
	FromLabel   RegimeLabel `json:"from_label,omitempty"`
	ToLabel     RegimeLabel `json:"to_label,omitempty"`
}

// TransitionInfo summarizes the transition matrix.
type TransitionInfo struct {
	Matrix            [][]float64        `json:"transition_matrix"`
	ExpectedDurations []ExpectedDuration `json:"expected_durations"`
	MostLikely        []Transition       `json:"most_likely_transitions"`
}

// RegimeSummary holds the emission parameters and label of one state.
type RegimeSummary struct {
	State      int         `json:"state"`
	MeanReturn float64     `json:"mean_return"`
	Volatility float64     `json:"volatility"`
	Label      RegimeLabel `json:"label"`
}

// FitDiagnostics reports how the estimator finished.
type FitDiagnostics struct {
	Estimator     string  `json:"estimator"`
	Iterations    int     `json:"iterations"`
	Converged     bool    `json:"converged"`
	LogLikelihood float64 `json:"log_likelihood"`
}

// StatePoint is a price observation tagged with its decoded state.
type StatePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
	State int       `json:"state"`
}

// Report is the outcome of one analysis run.
type Report struct {
	RunID              string          `json:"run_id"`
	Symbol             string          `json:"symbol"`
	Period             string          `json:"period"`
	Regimes            int             `json:"regimes"`
	GeneratedAt        time.Time       `json:"generated_at"`
	Observations       int             `json:"observations"`
	RealizedVolatility float64         `json:"realized_volatility"`
	Fit                FitDiagnostics  `json:"fit"`
	Current            CurrentRegime   `json:"current"`
	Duration           RegimeDuration  `json:"duration"`
	Transitions        TransitionInfo  `json:"transitions"`
	States             []RegimeSummary `json:"states"`
	LabelsApproximate  bool            `json:"labels_approximate"`
	Path               []StatePoint    `json:"path,omitempty"`
}

// RunRecord is the persisted summary of a report.
type RunRecord struct {
	RunID         string    `json:"run_id"`
	Symbol        string    `json:"symbol"`
	Period        string    `json:"period"`
	Regimes       int       `json:"regimes"`
	Observations  int       `json:"observations"`
	CurrentState  int       `json:"current_state"`
	CurrentLabel  string    `json:"current_label"`
	Confidence    float64   `json:"confidence"`
	DurationSteps int       `json:"duration_steps"`
	LogLikelihood float64   `json:"log_likelihood"`
	CreatedAt     time.Time `json:"created_at"`
}

// Record extracts the persisted summary.
func (r *Report) Record() RunRecord {
	return RunRecord{
		RunID:         r.RunID,
		Symbol:        r.Symbol,
		Period:        r.Period,
		Regimes:       r.Regimes,
		Observations:  r.Observations,
		CurrentState:  r.Current.State,
		CurrentLabel:  string(r.Current.Label),
		Confidence:    r.Current.Confidence,
		DurationSteps: r.Duration.DurationSteps,
		LogLikelihood: r.Fit.LogLikelihood,
		CreatedAt:     r.GeneratedAt,
	}
}

// Package pipeline runs one greeting batch from roster to summary.
package pipeline

// State is a step of a run. A run only moves forward, or to Failed.
type State int

const (
	Idle State = iota
	LoadingRecords
	MatchingOccasions
	Rendering
	Dispatching
	ReportingSummary
	Done
	Failed
)

var stateNames = [...]string{
	Idle:              "Idle",
	LoadingRecords:    "LoadingRecords",
	MatchingOccasions: "MatchingOccasions",
	Rendering:         "Rendering",
	Dispatching:       "Dispatching",
	ReportingSummary:  "ReportingSummary",
	Done:              "Done",
	Failed:            "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// CanTransition allows the next state in line, or Failed from any
// non-terminal state.
func CanTransition(from, to State) bool {
	if from.Terminal() || from < Idle || from > Failed {
		return false
	}
	if to == Failed {
		return true
	}
	return to == from+1
}

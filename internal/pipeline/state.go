package pipeline

import (
	"go-redflag-detector/pkg/models"
)

// Phase is the tag of the pipeline state variant
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseExtracting
	PhaseScoring
	PhasePresenting
	PhaseRejected
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseExtracting:
		return "extracting"
	case PhaseScoring:
		return "scoring"
	case PhasePresenting:
		return "presenting"
	case PhaseRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase ends a run
func (p Phase) Terminal() bool {
	return p == PhasePresenting || p == PhaseRejected
}

// State is a snapshot of a controller. Verdict is set only while presenting.
type State struct {
	Phase   Phase
	Verdict *models.Verdict
}

// transitions lists the edges a run may take. Any phase may return to Idle
// through Reset.
var transitions = map[Phase][]Phase{
	PhaseIdle:       {PhaseExtracting},
	PhaseExtracting: {PhaseScoring, PhaseRejected},
	PhaseScoring:    {PhasePresenting},
	PhasePresenting: {},
	PhaseRejected:   {},
}

func canTransition(from, to Phase) bool {
	if to == PhaseIdle {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// next computes the state after moving to phase. A verdict only survives
// into Presenting.
func next(from State, to Phase, verdict *models.Verdict) (State, bool) {
	if !canTransition(from.Phase, to) {
		return from, false
	}
	if to != PhasePresenting {
		verdict = nil
	}
	if to == PhasePresenting && verdict == nil {
		return from, false
	}
	return State{Phase: to, Verdict: verdict}, true
}

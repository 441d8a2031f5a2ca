// Package session owns the intake-and-result state machine: staging a file,
// the single-flight upload and the transition into results or failure.
package session

import (
	"errors"

	"github.com/sleuth/sleuth-agent/internal/cloud"
	"github.com/sleuth/sleuth-agent/internal/intake"
)

// Phase is the variant of the upload state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseStaged    Phase = "staged"
	PhaseInFlight  Phase = "in_flight"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

var (
	ErrSubmitInFlight    = errors.New("an upload is already in flight")
	ErrNothingStaged     = errors.New("no file is staged")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// State is the upload state value. Which fields are set depends on Phase:
// Staged for staged/in_flight, Result for succeeded, Err and Previous for failed.
type State struct {
	Phase    Phase
	Staged   *intake.StagedFile
	Result   *cloud.AnalysisResult
	Err      string
	Previous *intake.StagedFile
}

// Event triggers a transition.
type Event interface {
	event()
}

// StageEvent carries a file that already passed validation.
type StageEvent struct {
	File intake.StagedFile
}

type SubmitEvent struct{}

type SucceededEvent struct {
	Result *cloud.AnalysisResult
}

type FailedEvent struct {
	Message string
}

func (StageEvent) event()     {}
func (SubmitEvent) event()    {}
func (SucceededEvent) event() {}
func (FailedEvent) event()    {}

// Transition returns the state that follows s on e. On error s is unchanged.
func Transition(s State, e Event) (State, error) {
	switch ev := e.(type) {
	case StageEvent:
		if s.Phase == PhaseInFlight {
			return s, ErrSubmitInFlight
		}
		file := ev.File
		return State{Phase: PhaseStaged, Staged: &file}, nil

	case SubmitEvent:
		switch s.Phase {
		case PhaseInFlight:
			return s, ErrSubmitInFlight
		case PhaseStaged:
			return State{Phase: PhaseInFlight, Staged: s.Staged}, nil
		default:
			return s, ErrNothingStaged
		}

	case SucceededEvent:
		if s.Phase != PhaseInFlight {
			return s, ErrInvalidTransition
		}
		return State{Phase: PhaseSucceeded, Result: ev.Result}, nil

	case FailedEvent:
		if s.Phase != PhaseInFlight {
			return s, ErrInvalidTransition
		}
		return State{Phase: PhaseFailed, Err: ev.Message, Previous: s.Staged}, nil
	}

	return s, ErrInvalidTransition
}

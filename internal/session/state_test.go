package session

import (
	"errors"
	"testing"

	"github.com/sleuth/sleuth-agent/internal/cloud"
	"github.com/sleuth/sleuth-agent/internal/intake"
)

func stagedFile(name string) intake.StagedFile {
	return intake.StagedFile{
		Name:     name,
		MIMEType: "video/mp4",
		Size:     4,
		Origin:   intake.OriginPicker,
		Handle:   intake.BytesBlob("data"),
	}
}

func TestTransition_Stage(t *testing.T) {
	a := stagedFile("a.mp4")
	b := stagedFile("b.mp4")
	result := &cloud.AnalysisResult{Success: true}

	states := []State{
		{Phase: PhaseIdle},
		{Phase: PhaseStaged, Staged: &a},
		{Phase: PhaseSucceeded, Result: result},
		{Phase: PhaseFailed, Err: "boom", Previous: &a},
	}

	for _, s := range states {
		t.Run(string(s.Phase), func(t *testing.T) {
			next, err := Transition(s, StageEvent{File: b})
			if err != nil {
				t.Fatalf("Transition() error = %v", err)
			}
			if next.Phase != PhaseStaged {
				t.Errorf("Phase = %q, want %q", next.Phase, PhaseStaged)
			}
			if next.Staged == nil || next.Staged.Name != "b.mp4" {
				t.Errorf("Staged = %+v, want b.mp4", next.Staged)
			}
			if next.Result != nil || next.Previous != nil || next.Err != "" {
				t.Errorf("stale fields carried over: %+v", next)
			}
		})
	}
}

func TestTransition_StageWhileInFlight(t *testing.T) {
	a := stagedFile("a.mp4")
	s := State{Phase: PhaseInFlight, Staged: &a}

	next, err := Transition(s, StageEvent{File: stagedFile("b.mp4")})
	if !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("error = %v, want ErrSubmitInFlight", err)
	}
	if next.Phase != PhaseInFlight || next.Staged.Name != "a.mp4" {
		t.Errorf("state changed: %+v", next)
	}
}

func TestTransition_Submit(t *testing.T) {
	a := stagedFile("a.mp4")

	tests := []struct {
		name    string
		state   State
		want    Phase
		wantErr error
	}{
		{"staged", State{Phase: PhaseStaged, Staged: &a}, PhaseInFlight, nil},
		{"idle", State{Phase: PhaseIdle}, PhaseIdle, ErrNothingStaged},
		{"in flight", State{Phase: PhaseInFlight, Staged: &a}, PhaseInFlight, ErrSubmitInFlight},
		{"succeeded", State{Phase: PhaseSucceeded}, PhaseSucceeded, ErrNothingStaged},
		{"failed", State{Phase: PhaseFailed, Previous: &a}, PhaseFailed, ErrNothingStaged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Transition(tt.state, SubmitEvent{})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if next.Phase != tt.want {
				t.Errorf("Phase = %q, want %q", next.Phase, tt.want)
			}
		})
	}
}

func TestTransition_Completion(t *testing.T) {
	a := stagedFile("a.mp4")
	inFlight := State{Phase: PhaseInFlight, Staged: &a}
	result := &cloud.AnalysisResult{Success: true}

	ok, err := Transition(inFlight, SucceededEvent{Result: result})
	if err != nil {
		t.Fatalf("succeeded: %v", err)
	}
	if ok.Phase != PhaseSucceeded || ok.Result != result || ok.Staged != nil {
		t.Errorf("succeeded state = %+v", ok)
	}

	failed, err := Transition(inFlight, FailedEvent{Message: "File too large"})
	if err != nil {
		t.Fatalf("failed: %v", err)
	}
	if failed.Phase != PhaseFailed || failed.Err != "File too large" {
		t.Errorf("failed state = %+v", failed)
	}
	if failed.Previous == nil || failed.Previous.Name != "a.mp4" {
		t.Errorf("Previous = %+v, want a.mp4", failed.Previous)
	}
	if failed.Staged != nil {
		t.Errorf("Staged = %+v, want nil", failed.Staged)
	}
}

func TestTransition_CompletionOutsideFlight(t *testing.T) {
	for _, e := range []Event{SucceededEvent{}, FailedEvent{Message: "x"}} {
		_, err := Transition(State{Phase: PhaseIdle}, e)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%T: error = %v, want ErrInvalidTransition", e, err)
		}
	}
}

package view

import (
	"errors"
	"sync"
	"testing"
)

func activeCount(panes []Pane) int {
	n := 0
	for _, p := range panes {
		if p.Active {
			n++
		}
	}
	return n
}

func TestNewRouter_InitialIntake(t *testing.T) {
	r := NewRouter(DefaultPanes())
	if r.Active() != PaneIntake {
		t.Errorf("Active() = %s, want intake", r.Active())
	}
	if n := activeCount(r.Panes()); n != 1 {
		t.Errorf("active panes = %d, want 1", n)
	}
}

func TestActivate_ExactlyOne(t *testing.T) {
	r := NewRouter(DefaultPanes())

	for _, id := range []PaneID{PaneResults, PaneLoading, PaneIntake, PaneResults, PaneResults} {
		if err := r.Activate(id); err != nil {
			t.Fatalf("Activate(%s) error = %v", id, err)
		}
		if r.Active() != id {
			t.Errorf("Active() = %s, want %s", r.Active(), id)
		}
		if n := activeCount(r.Panes()); n != 1 {
			t.Errorf("after Activate(%s): active panes = %d, want 1", id, n)
		}
	}
}

func TestActivate_UnknownPaneKeepsSelection(t *testing.T) {
	r := NewRouter(DefaultPanes())
	r.Activate(PaneResults)

	if err := r.Activate("settings"); !errors.Is(err, ErrUnknownPane) {
		t.Errorf("error = %v, want ErrUnknownPane", err)
	}
	if r.Active() != PaneResults {
		t.Errorf("Active() = %s, want results", r.Active())
	}
}

func TestPanes_ReturnsCopy(t *testing.T) {
	r := NewRouter(DefaultPanes())
	panes := r.Panes()
	panes[2].Active = true

	if r.Active() != PaneIntake {
		t.Error("mutating snapshot changed router state")
	}
}

func TestParsePane(t *testing.T) {
	r := NewRouter(DefaultPanes())
	if id, err := r.ParsePane("results"); err != nil || id != PaneResults {
		t.Errorf("ParsePane(results) = %s, %v", id, err)
	}
	if _, err := r.ParsePane("nope"); !errors.Is(err, ErrUnknownPane) {
		t.Errorf("ParsePane(nope) error = %v", err)
	}
}

func TestActivate_Concurrent(t *testing.T) {
	r := NewRouter(DefaultPanes())
	ids := []PaneID{PaneIntake, PaneLoading, PaneResults}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Activate(ids[i%len(ids)])
		}(i)
	}
	wg.Wait()

	if n := activeCount(r.Panes()); n != 1 {
		t.Errorf("active panes = %d, want 1", n)
	}
}

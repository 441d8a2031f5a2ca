// Package view routes between the fixed set of panes shown to the user.
// It carries no business state.
package view

import (
	"errors"
	"sync"
)

// PaneID names a pane.
type PaneID string

const (
	PaneIntake  PaneID = "intake"
	PaneLoading PaneID = "loading"
	PaneResults PaneID = "results"
)

var ErrUnknownPane = errors.New("unknown pane")

// Pane pairs a content section with the nav marker that reflects it.
type Pane struct {
	ID        PaneID `json:"id"`
	SectionID string `json:"section_id"`
	MarkerID  string `json:"marker_id"`
	Active    bool   `json:"active"`
}

// DefaultPanes are the intake, loading and results panes, in that order.
func DefaultPanes() []Pane {
	return []Pane{
		{ID: PaneIntake, SectionID: "uploadSection", MarkerID: "uploadTab"},
		{ID: PaneLoading, SectionID: "loadingSection", MarkerID: "loadingIndicator"},
		{ID: PaneResults, SectionID: "resultsSection", MarkerID: "resultsTab"},
	}
}

// Router keeps exactly one registered pane and its nav marker active.
type Router struct {
	mu    sync.RWMutex
	panes []Pane
}

// NewRouter registers panes and activates the first one.
func NewRouter(panes []Pane) *Router {
	r := &Router{panes: make([]Pane, len(panes))}
	copy(r.panes, panes)
	for i := range r.panes {
		r.panes[i].Active = i == 0
	}
	return r
}

// Activate deactivates every pane, then activates the requested one.
// Unknown panes leave the current selection unchanged.
func (r *Router) Activate(id PaneID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.panes {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrUnknownPane
	}

	for i := range r.panes {
		r.panes[i].Active = false
	}
	r.panes[idx].Active = true
	return nil
}

// Active returns the active pane ID.
func (r *Router) Active() PaneID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.panes {
		if p.Active {
			return p.ID
		}
	}
	return ""
}

// Panes returns a snapshot of all registered panes.
func (r *Router) Panes() []Pane {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Pane, len(r.panes))
	copy(out, r.panes)
	return out
}

// ParsePane validates a pane name against the registered panes.
func (r *Router) ParsePane(s string) (PaneID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.panes {
		if string(p.ID) == s {
			return p.ID, nil
		}
	}
	return "", ErrUnknownPane
}

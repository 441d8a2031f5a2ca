package session

import (
	"context"
	"time"
)

// Attempt describes one submission for audit and metrics.
type Attempt struct {
	ID         string
	Filename   string
	MIMEType   string
	Size       int64
	Phase      Phase
	Message    string
	Score      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is the time the attempt spent in flight.
func (a Attempt) Duration() time.Duration {
	if a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// Recorder observes submission attempts. Implementations must not block.
type Recorder interface {
	AttemptStarted(ctx context.Context, a Attempt)
	AttemptFinished(ctx context.Context, a Attempt)
}

// Recorders fans out to several recorders.
type Recorders []Recorder

func (rs Recorders) AttemptStarted(ctx context.Context, a Attempt) {
	for _, r := range rs {
		r.AttemptStarted(ctx, a)
	}
}

func (rs Recorders) AttemptFinished(ctx context.Context, a Attempt) {
	for _, r := range rs {
		r.AttemptFinished(ctx, a)
	}
}

type nopRecorder struct{}

func (nopRecorder) AttemptStarted(context.Context, Attempt)  {}
func (nopRecorder) AttemptFinished(context.Context, Attempt) {}

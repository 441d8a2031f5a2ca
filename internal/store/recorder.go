package store

import (
	"context"
	"log/slog"

	"github.com/sleuth/sleuth-agent/internal/session"
)

// Recorder writes the attempt log. Persistence failures are logged and
// never surface to the upload flow.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

func (r *Recorder) AttemptStarted(ctx context.Context, a session.Attempt) {
	err := r.repo.CreateAttempt(ctx, &Attempt{
		ID:        a.ID,
		Filename:  a.Filename,
		MIMEType:  a.MIMEType,
		Size:      a.Size,
		Status:    AttemptStatusInFlight,
		StartedAt: a.StartedAt,
	})
	if err != nil {
		r.logger.Warn("failed to record attempt", "attempt_id", a.ID, "error", err)
	}
}

func (r *Recorder) AttemptFinished(ctx context.Context, a session.Attempt) {
	status := AttemptStatusFailed
	var score *int
	if a.Phase == session.PhaseSucceeded {
		status = AttemptStatusSucceeded
		s := a.Score
		score = &s
	}

	if err := r.repo.FinishAttempt(ctx, a.ID, status, a.Message, score, a.FinishedAt); err != nil {
		r.logger.Warn("failed to finish attempt", "attempt_id", a.ID, "error", err)
	}
}

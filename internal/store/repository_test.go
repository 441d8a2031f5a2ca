package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sleuth/sleuth-agent/internal/db"
	"github.com/sleuth/sleuth-agent/internal/logging"
	"github.com/sleuth/sleuth-agent/internal/session"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

func TestRepository_AttemptLifecycle(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := repo.CreateAttempt(ctx, &Attempt{
		ID:        "a1",
		Filename:  "clip.mp4",
		MIMEType:  "video/mp4",
		Size:      2048,
		Status:    AttemptStatusInFlight,
		StartedAt: started,
	})
	if err != nil {
		t.Fatalf("CreateAttempt() error = %v", err)
	}

	got, err := repo.GetAttempt(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAttempt() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetAttempt() returned nil")
	}
	if got.Status != AttemptStatusInFlight || got.FinishedAt != nil || got.Score != nil {
		t.Errorf("in-flight attempt = %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}

	score := 72
	finished := started.Add(3 * time.Second)
	if err := repo.FinishAttempt(ctx, "a1", AttemptStatusSucceeded, "", &score, finished); err != nil {
		t.Fatalf("FinishAttempt() error = %v", err)
	}

	got, _ = repo.GetAttempt(ctx, "a1")
	if got.Status != AttemptStatusSucceeded {
		t.Errorf("Status = %s, want succeeded", got.Status)
	}
	if got.Score == nil || *got.Score != 72 {
		t.Errorf("Score = %v, want 72", got.Score)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
	}
}

func TestRepository_GetAttempt_NotFound(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()

	got, err := repo.GetAttempt(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetAttempt() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetAttempt() = %+v, want nil", got)
	}
}

func TestRepository_ListAttempts_NewestFirst(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		repo.CreateAttempt(ctx, &Attempt{
			ID:        id,
			Filename:  id + ".mp4",
			MIMEType:  "video/mp4",
			Status:    AttemptStatusFailed,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	list, err := repo.ListAttempts(ctx, 2)
	if err != nil {
		t.Fatalf("ListAttempts() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID != "new" || list[1].ID != "mid" {
		t.Errorf("order = %s, %s; want new, mid", list[0].ID, list[1].ID)
	}

	total, _ := repo.CountAttempts(ctx, "")
	failed, _ := repo.CountAttempts(ctx, AttemptStatusFailed)
	succeeded, _ := repo.CountAttempts(ctx, AttemptStatusSucceeded)
	if total != 3 || failed != 3 || succeeded != 0 {
		t.Errorf("counts = %d/%d/%d, want 3/3/0", total, failed, succeeded)
	}
}

func TestRepository_Config(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	v, err := repo.GetConfig(ctx, ConfigKeyAuthToken)
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if v != "" {
		t.Errorf("GetConfig() = %q, want empty", v)
	}

	repo.SetConfig(ctx, ConfigKeyAuthToken, "first")
	repo.SetConfig(ctx, ConfigKeyAuthToken, "second")

	v, _ = repo.GetConfig(ctx, ConfigKeyAuthToken)
	if v != "second" {
		t.Errorf("GetConfig() = %q, want second", v)
	}
}

func TestRecorder_RecordsAttempts(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	rec := NewRecorder(repo, logging.Discard())
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec.AttemptStarted(ctx, session.Attempt{ID: "ok", Filename: "a.mp4", MIMEType: "video/mp4", Size: 10, StartedAt: start})
	rec.AttemptFinished(ctx, session.Attempt{ID: "ok", Phase: session.PhaseSucceeded, Score: 40, StartedAt: start, FinishedAt: start.Add(time.Second)})

	rec.AttemptStarted(ctx, session.Attempt{ID: "bad", Filename: "b.mp4", MIMEType: "video/mp4", StartedAt: start})
	rec.AttemptFinished(ctx, session.Attempt{ID: "bad", Phase: session.PhaseFailed, Message: "File too large", StartedAt: start, FinishedAt: start.Add(time.Second)})

	ok, _ := repo.GetAttempt(ctx, "ok")
	if ok.Status != AttemptStatusSucceeded || ok.Score == nil || *ok.Score != 40 {
		t.Errorf("ok attempt = %+v", ok)
	}

	bad, _ := repo.GetAttempt(ctx, "bad")
	if bad.Status != AttemptStatusFailed || bad.Message != "File too large" || bad.Score != nil {
		t.Errorf("bad attempt = %+v", bad)
	}
}

var _ session.Recorder = (*Recorder)(nil)

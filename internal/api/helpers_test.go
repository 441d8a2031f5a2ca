package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sleuth/sleuth-agent/internal/cloud"
	"github.com/sleuth/sleuth-agent/internal/intake"
	"github.com/sleuth/sleuth-agent/internal/playback"
	"github.com/sleuth/sleuth-agent/internal/render"
	"github.com/sleuth/sleuth-agent/internal/session"
	"github.com/sleuth/sleuth-agent/internal/store"
)

const testToken = "test-token-0123456789"

type fakeCloud struct {
	mu     sync.Mutex
	result *cloud.AnalysisResult
	err    error
	hold   chan struct{}
	calls  int
	health *cloud.HealthStatus
}

func (f *fakeCloud) Analyze(ctx context.Context, file intake.StagedFile) (*cloud.AnalysisResult, error) {
	f.mu.Lock()
	f.calls++
	hold := f.hold
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}
	return f.result, f.err
}

func (f *fakeCloud) Health(ctx context.Context) (*cloud.HealthStatus, error) {
	if f.health == nil {
		return nil, &cloud.TransportError{Err: io.ErrUnexpectedEOF}
	}
	return f.health, nil
}

type fakeRepo struct {
	mu       sync.Mutex
	config   map[string]string
	attempts []*store.Attempt
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{config: map[string]string{store.ConfigKeyAuthToken: testToken}}
}

func (f *fakeRepo) CreateAttempt(ctx context.Context, a *store.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeRepo) FinishAttempt(ctx context.Context, id, status, message string, score *int, finishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.ID == id {
			a.Status = status
			a.Message = message
			a.Score = score
			a.FinishedAt = &finishedAt
		}
	}
	return nil
}

func (f *fakeRepo) GetAttempt(ctx context.Context, id string) (*store.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListAttempts(ctx context.Context, limit int) ([]*store.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*store.Attempt, 0, len(f.attempts))
	for i := len(f.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.attempts[i])
	}
	return out, nil
}

func (f *fakeRepo) CountAttempts(ctx context.Context, status string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.attempts {
		if status == "" || a.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) GetConfig(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.config[key], nil
}

func (f *fakeRepo) SetConfig(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.config[key] = value
	return nil
}

type testEnv struct {
	cfg   ServerConfig
	cloud *fakeCloud
	repo  *fakeRepo
}

func newTestEnv(t *testing.T, fc *fakeCloud) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newFakeRepo()

	orch := session.New(session.Config{
		Client:   fc,
		Renderer: render.New("https://sleuth.example"),
		Recorder: store.NewRecorder(repo, logger),
		Logger:   logger,
	})

	return &testEnv{
		cfg: ServerConfig{
			Session:        orch,
			Cloud:          fc,
			ServiceURL:     "https://sleuth.example",
			PlaybackServer: playback.NewServer(logger),
			Repository:     repo,
			StagingDir:     t.TempDir(),
			AllowedOrigins: []string{"http://localhost:3000"},
			Logger:         logger,
			StartTime:      time.Now().Add(-10 * time.Second),
			DeviceID:       "test-device",
		},
		cloud: fc,
		repo:  repo,
	}
}

func sampleResult() *cloud.AnalysisResult {
	return &cloud.AnalysisResult{
		Success:  true,
		Filename: "a.mp4",
		VideoInfo: cloud.OrderedInfo{
			{Key: "filename", Value: "a.mp4"},
		},
		QualityAnalysis: cloud.QualityAnalysis{
			Score:           85,
			ConfidenceLevel: "عالية",
			Indicators:      []string{"✓ جودة ممتازة"},
		},
		Frames: []cloud.Frame{{ID: 1, Timestamp: 1, Path: "/static/frames/a_1.jpg"}},
	}
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}

	return body
}

var _ store.Repository = (*fakeRepo)(nil)

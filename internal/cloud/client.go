package cloud

import (
	"context"
	"log/slog"

	"github.com/sleuth/sleuth-agent/internal/intake"
)

// Client is the boundary to the remote analysis service.
type Client interface {
	Analyze(ctx context.Context, file intake.StagedFile) (*AnalysisResult, error)
	Health(ctx context.Context) (*HealthStatus, error)
}

// StubClient stands in when no analysis service URL is configured.
// Every submission fails with a 503 application error.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Analyze(ctx context.Context, file intake.StagedFile) (*AnalysisResult, error) {
	c.logger.Info("cloud stub: analysis requested", "filename", file.Name)
	return nil, &ApplicationError{StatusCode: 503, Detail: "analysis service not configured"}
}

func (c *StubClient) Health(ctx context.Context) (*HealthStatus, error) {
	return &HealthStatus{Status: "unconfigured"}, nil
}

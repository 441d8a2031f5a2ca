package api

import (
	"time"

	"github.com/sleuth/sleuth-agent/internal/session"
	"github.com/sleuth/sleuth-agent/internal/store"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	Phase          session.Phase     `json:"phase"`
	InFlight       bool              `json:"in_flight"`
	LastError      string            `json:"last_error,omitempty"`
	Backend        BackendResponse   `json:"backend"`
	AttemptsTotal  int               `json:"attempts_total"`
	AttemptsFailed int               `json:"attempts_failed"`
	RecentAttempts []AttemptResponse `json:"recent_attempts"`
	Staged         *StagedResponse   `json:"staged,omitempty"`
}

type BackendResponse struct {
	URL     string `json:"url,omitempty"`
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}

type StagedResponse struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
	SizeText string `json:"size_text"`
	Origin   string `json:"origin"`
}

type PickRequest struct {
	Path string `json:"path"`
}

type SubmitResponse struct {
	AttemptID string           `json:"attempt_id"`
	Snapshot  session.Snapshot `json:"snapshot"`
}

type AttemptResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	MIMEType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Score      *int   `json:"score,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

type AttemptsResponse struct {
	Attempts []AttemptResponse `json:"attempts"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func AttemptToResponse(a *store.Attempt) AttemptResponse {
	resp := AttemptResponse{
		ID:        a.ID,
		Filename:  a.Filename,
		MIMEType:  a.MIMEType,
		Size:      a.Size,
		Status:    a.Status,
		Message:   a.Message,
		Score:     a.Score,
		StartedAt: a.StartedAt.Format(time.RFC3339),
	}
	if a.FinishedAt != nil {
		resp.FinishedAt = a.FinishedAt.Format(time.RFC3339)
	}
	return resp
}

func AttemptsToResponse(attempts []*store.Attempt) []AttemptResponse {
	out := make([]AttemptResponse, len(attempts))
	for i, a := range attempts {
		out[i] = AttemptToResponse(a)
	}
	return out
}

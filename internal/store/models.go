// Package store persists submission attempts and agent settings in the
// local SQLite database.
package store

import "time"

const (
	AttemptStatusInFlight  = "in_flight"
	AttemptStatusSucceeded = "succeeded"
	AttemptStatusFailed    = "failed"
)

// Config keys.
const (
	ConfigKeyAuthToken = "auth_token"
	ConfigKeyDeviceID  = "device_id"
)

type Attempt struct {
	ID         string     `json:"id"`
	Filename   string     `json:"filename"`
	MIMEType   string     `json:"mime_type"`
	Size       int64      `json:"size"`
	Status     string     `json:"status"`
	Message    string     `json:"message,omitempty"`
	Score      *int       `json:"score,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

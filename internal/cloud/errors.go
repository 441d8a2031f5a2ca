package cloud

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ApplicationError is a non-2xx response from the analysis service.
type ApplicationError struct {
	StatusCode int
	Detail     string
	Body       string
}

func (e *ApplicationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("analysis failed: HTTP %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("analysis failed: HTTP %d", e.StatusCode)
}

// HasDetail reports whether the service supplied a detail message.
func (e *ApplicationError) HasDetail() bool {
	return e.Detail != ""
}

// TransportError means the request never produced a response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func newApplicationError(status int, body []byte) *ApplicationError {
	appErr := &ApplicationError{StatusCode: status, Body: string(body)}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return appErr
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		appErr.Detail = detail
		return appErr
	}
	if raw := strings.TrimSpace(string(payload.Detail)); raw != "null" {
		appErr.Detail = raw
	}
	return appErr
}

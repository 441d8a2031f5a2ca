// Package logging builds the slog loggers shared by the agent and the
// analyze command, and the attribute helpers that keep upload records
// uniform: every record about a video carries the same "video" group, every
// record about a submission carries its attempt_id.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
)

// NewLogger writes JSON records to stdout for the long-running agent.
// Supported levels: debug, info, warn, error
func NewLogger(level string) *slog.Logger {
	lvl := ParseLevel(level)

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// NewTextLogger writes human-readable records to w. The analyze command uses
// it so the report on stdout stays readable.
func NewTextLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Video groups the attributes of a staged or uploading video file. The size
// is rendered for humans; size_bytes keeps the exact count for queries.
func Video(name, mimeType string, size int64) slog.Attr {
	attrs := []any{slog.String("name", name)}
	if mimeType != "" {
		attrs = append(attrs, slog.String("mime_type", mimeType))
	}
	if size >= 0 {
		attrs = append(attrs,
			slog.String("size", humanize.Bytes(uint64(size))),
			slog.Int64("size_bytes", size),
		)
	}
	return slog.Group("video", attrs...)
}

// WithVideo scopes a logger to one video file.
func WithVideo(logger *slog.Logger, name, mimeType string, size int64) *slog.Logger {
	return logger.With(Video(name, mimeType, size))
}

func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithAttemptID ties records to one analysis submission.
func WithAttemptID(logger *slog.Logger, attemptID string) *slog.Logger {
	return logger.With("attempt_id", attemptID)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SanitizeToken keeps the first and last four characters of the local API
// token. Anything of eight characters or fewer becomes "****".
func SanitizeToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizePath replaces the home directory prefix of a picked or dropped
// video path with ~.
func SanitizePath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("short"); got != "****" {
		t.Errorf("SanitizeToken(short) = %q", got)
	}
	if got := SanitizeToken("abcdefghijkl"); got != "abcd...ijkl" {
		t.Errorf("SanitizeToken() = %q", got)
	}
}

func TestSanitizePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got := SanitizePath(filepath.Join(home, "Videos", "a.mp4"))
	if !strings.HasPrefix(got, "~") {
		t.Errorf("SanitizePath() = %q, want ~ prefix", got)
	}
}

func TestNewTextLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, "warn")
	logger.Info("hidden")
	WithAttemptID(logger, "att-1").Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "attempt_id=att-1") {
		t.Errorf("output = %q, want attempt_id attribute", out)
	}
}

func TestWithVideo_GroupsUploadAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	WithVideo(logger, "clip.mp4", "video/mp4", 3*1000*1000).Info("uploading")

	var rec struct {
		Video struct {
			Name      string `json:"name"`
			MIMEType  string `json:"mime_type"`
			Size      string `json:"size"`
			SizeBytes int64  `json:"size_bytes"`
		} `json:"video"`
	}
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec.Video.Name != "clip.mp4" || rec.Video.MIMEType != "video/mp4" {
		t.Errorf("video = %+v", rec.Video)
	}
	if rec.Video.Size != "3.0 MB" || rec.Video.SizeBytes != 3000000 {
		t.Errorf("size = %q (%d), want 3.0 MB (3000000)", rec.Video.Size, rec.Video.SizeBytes)
	}
}

func TestVideo_OmitsUnknownFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, "info")
	logger.Info("staged", Video("a.mov", "", -1))

	out := buf.String()
	if !strings.Contains(out, "video.name=a.mov") {
		t.Errorf("output = %q, want video.name", out)
	}
	if strings.Contains(out, "mime_type") || strings.Contains(out, "size") {
		t.Errorf("output = %q, want no mime_type or size", out)
	}
}

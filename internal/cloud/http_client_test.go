package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sleuth/sleuth-agent/internal/intake"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStaged(name, body string) intake.StagedFile {
	return intake.StagedFile{
		Name:     name,
		MIMEType: "video/mp4",
		Size:     int64(len(body)),
		Origin:   intake.OriginPicker,
		Handle:   intake.BytesBlob(body),
	}
}

const scenarioBody = `{
	"video_info": {"filename": "a.mp4"},
	"quality_analysis": {"score": 75, "confidence_level": "high", "indicators": ["✓ clear"]},
	"frames": [{"path": "/static/frames/f1.jpg"}]
}`

func TestHTTPClient_Analyze_Success(t *testing.T) {
	var gotFilename, gotContent, gotRequestID, gotDeviceID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/upload" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		gotRequestID = r.Header.Get("X-Sleuth-Request-Id")
		gotDeviceID = r.Header.Get("X-Sleuth-Device-Id")

		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		body, _ := io.ReadAll(f)
		gotFilename = hdr.Filename
		gotContent = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(scenarioBody))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL+"/", 5*time.Second, testLogger())
	client.SetDeviceID("device-1")

	result, err := client.Analyze(context.Background(), testStaged("a.mp4", "video-bytes"))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if gotFilename != "a.mp4" {
		t.Errorf("filename = %q, want a.mp4", gotFilename)
	}
	if gotContent != "video-bytes" {
		t.Errorf("content = %q, want video-bytes", gotContent)
	}
	if gotRequestID == "" {
		t.Error("expected X-Sleuth-Request-Id header")
	}
	if gotDeviceID != "device-1" {
		t.Errorf("device id = %q, want device-1", gotDeviceID)
	}

	if v, _ := result.VideoInfo.Get("filename"); v != "a.mp4" {
		t.Errorf("video_info.filename = %q, want a.mp4", v)
	}
	if result.QualityAnalysis.Score != 75 {
		t.Errorf("score = %d, want 75", result.QualityAnalysis.Score)
	}
	if len(result.Frames) != 1 || result.Frames[0].Path != "/static/frames/f1.jpg" {
		t.Errorf("frames = %+v", result.Frames)
	}
}

func TestHTTPClient_Analyze_ApplicationErrorWithDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		w.Write([]byte(`{"detail":"file too large"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second, testLogger())

	_, err := client.Analyze(context.Background(), testStaged("a.mp4", "x"))
	var appErr *ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected ApplicationError, got %T (%v)", err, err)
	}
	if appErr.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d", appErr.StatusCode)
	}
	if appErr.Detail != "file too large" {
		t.Errorf("detail = %q, want %q", appErr.Detail, "file too large")
	}
}

func TestHTTPClient_Analyze_ApplicationErrorWithoutDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second, testLogger())

	_, err := client.Analyze(context.Background(), testStaged("a.mp4", "x"))
	var appErr *ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected ApplicationError, got %T", err)
	}
	if appErr.HasDetail() {
		t.Errorf("detail = %q, want empty", appErr.Detail)
	}
}

func TestHTTPClient_Analyze_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewHTTPClient(url, 5*time.Second, testLogger())

	_, err := client.Analyze(context.Background(), testStaged("a.mp4", "x"))
	var tErr *TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransportError, got %T (%v)", err, err)
	}
	if tErr.Error() == "" {
		t.Error("transport error has no message")
	}
}

func TestHTTPClient_Analyze_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(scenarioBody))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Analyze(ctx, testStaged("a.mp4", "x")); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestHTTPClient_Analyze_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"video_info": [1,2]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second, testLogger())

	_, err := client.Analyze(context.Background(), testStaged("a.mp4", "x"))
	if err == nil {
		t.Fatal("expected decode error")
	}
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		t.Error("decode failure should not be an ApplicationError")
	}
}

func TestHTTPClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(HealthStatus{Status: "healthy", Service: "analysis", Version: "1.0.0"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second, testLogger())

	status, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if status.Status != "healthy" || status.Version != "1.0.0" {
		t.Errorf("status = %+v", status)
	}
}

func TestStubClient_AnalyzeFails(t *testing.T) {
	stub := NewStubClient(testLogger())

	_, err := stub.Analyze(context.Background(), testStaged("a.mp4", "x"))
	var appErr *ApplicationError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected ApplicationError, got %T", err)
	}
}

func TestHTTPClient_ImplementsClientInterface(t *testing.T) {
	var _ Client = (*HTTPClient)(nil)
}

func TestStubClient_ImplementsClientInterface(t *testing.T) {
	var _ Client = (*StubClient)(nil)
}

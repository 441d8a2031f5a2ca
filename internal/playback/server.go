// Package playback serves the staged video back to the browser for preview,
// honouring single HTTP byte ranges so players can seek.
package playback

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/sleuth/sleuth-agent/internal/intake"
)

type PlaybackService interface {
	ServeStaged(w http.ResponseWriter, r *http.Request, file intake.StagedFile) error
}

type Server struct {
	logger *slog.Logger
}

func NewServer(logger *slog.Logger) *Server {
	return &Server{logger: logger}
}

// ServeStaged writes the staged file's bytes, or the requested range of them.
func (s *Server) ServeStaged(w http.ResponseWriter, r *http.Request, file intake.StagedFile) error {
	switch h := file.Handle.(type) {
	case intake.FileBlob:
		return s.ServeFile(w, r, h.Path(), file.MIMEType)
	case intake.BytesBlob:
		return serveContent(w, r, bytes.NewReader(h), int64(len(h)), file.MIMEType)
	case nil:
		http.Error(w, "file not found", http.StatusNotFound)
		return nil
	default:
		rc, err := h.Open()
		if err != nil {
			return fmt.Errorf("failed to open staged file: %w", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return fmt.Errorf("failed to read staged file: %w", err)
		}
		return serveContent(w, r, bytes.NewReader(data), int64(len(data)), file.MIMEType)
	}
}

func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, filePath, contentType string) error {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if contentType == "" {
		contentType, _ = intake.DetectMIMEType(filePath)
	}
	return serveContent(w, r, file, stat.Size(), contentType)
}

func serveContent(w http.ResponseWriter, r *http.Request, content io.ReadSeeker, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	rangeHeader := r.Header.Get("Range")
	parsedRange, err := ParseRange(rangeHeader, size)

	if errors.Is(err, ErrUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	if err != nil && !errors.Is(err, ErrInvalidRange) {
		return err
	}

	if parsedRange == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, content)
		}
		return nil
	}

	if _, err := content.Seek(parsedRange.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	w.Header().Set("Content-Length", strconv.FormatInt(parsedRange.Len(), 10))
	w.Header().Set("Content-Range", parsedRange.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if r.Method != http.MethodHead {
		io.CopyN(w, content, parsedRange.Len())
	}
	return nil
}

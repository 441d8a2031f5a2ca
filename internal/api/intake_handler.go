package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sleuth/sleuth-agent/internal/intake"
	"github.com/sleuth/sleuth-agent/internal/logging"
	"github.com/sleuth/sleuth-agent/internal/session"
)

// dropHandler accepts the files released over the browser drop zone as a
// multipart body. Every "file" part becomes a candidate; validation decides
// whether one of them is staged.
func dropHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Session.InFlight() {
			writeIntakeError(w, session.ErrSubmitInFlight)
			return
		}

		mr, err := r.MultipartReader()
		if err != nil {
			WriteError(w, http.StatusBadRequest, "expected multipart/form-data body", "BAD_REQUEST")
			return
		}

		candidates, err := readDropParts(mr, stagingDir(cfg))
		if err != nil {
			removeCandidates(candidates)
			RequestLogger(r.Context(), cfg.Logger).Warn("failed to read dropped files", "error", err)
			WriteError(w, http.StatusBadRequest, "failed to read dropped files", "BAD_REQUEST")
			return
		}

		prev := cfg.Session.Snapshot().Staged
		staged, err := cfg.Session.Stage(intake.OriginDrop, candidates)
		if err != nil {
			removeCandidates(candidates)
			writeIntakeError(w, err)
			return
		}
		removeReplacedSpool(cfg, prev, staged)

		for _, c := range candidates {
			if fb, ok := c.Handle.(intake.FileBlob); ok && fb != staged.Handle {
				os.Remove(fb.Path())
			}
		}

		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func pickHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PickRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.Path == "" {
			writeIntakeError(w, intake.ErrNoCandidate)
			return
		}

		candidate, err := intake.CandidateFromPath(req.Path)
		if err != nil {
			RequestLogger(r.Context(), cfg.Logger).Info("picked path unreadable", "path", logging.SanitizePath(req.Path), "error", err)
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		prev := cfg.Session.Snapshot().Staged
		staged, err := cfg.Session.Stage(intake.OriginPicker, []intake.Candidate{candidate})
		if err != nil {
			writeIntakeError(w, err)
			return
		}
		removeReplacedSpool(cfg, prev, staged)

		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func readDropParts(mr *multipart.Reader, dir string) ([]intake.Candidate, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	var candidates []intake.Candidate
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return candidates, nil
		}
		if err != nil {
			return candidates, err
		}

		if part.FormName() != "file" || part.FileName() == "" {
			part.Close()
			continue
		}

		c, err := spoolPart(part, dir)
		part.Close()
		if err != nil {
			return candidates, err
		}
		candidates = append(candidates, c)
	}
}

// spoolPart copies a dropped file to disk so large videos never sit in memory.
func spoolPart(part *multipart.Part, dir string) (intake.Candidate, error) {
	name := part.FileName()
	f, err := os.CreateTemp(dir, "drop-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return intake.Candidate{}, fmt.Errorf("create staging file: %w", err)
	}

	n, copyErr := io.Copy(f, part)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(f.Name())
		return intake.Candidate{}, fmt.Errorf("write staging file: %w", errors.Join(copyErr, closeErr))
	}

	mimeType := part.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if detected, err := intake.DetectMIMEType(f.Name()); err == nil {
			mimeType = detected
		}
	}

	return intake.Candidate{
		Name:     name,
		MIMEType: mimeType,
		Size:     n,
		Handle:   intake.FileBlob(f.Name()),
	}, nil
}

func removeCandidates(candidates []intake.Candidate) {
	for _, c := range candidates {
		if fb, ok := c.Handle.(intake.FileBlob); ok {
			os.Remove(fb.Path())
		}
	}
}

// removeReplacedSpool deletes the spooled copy of a previously dropped file
// once another file has taken its place. Picked files are never touched.
func removeReplacedSpool(cfg ServerConfig, prev *intake.StagedFile, staged intake.StagedFile) {
	if prev == nil {
		return
	}
	fb, ok := prev.Handle.(intake.FileBlob)
	if !ok || fb == staged.Handle {
		return
	}
	if filepath.Dir(fb.Path()) != filepath.Clean(stagingDir(cfg)) {
		return
	}
	os.Remove(fb.Path())
}

func stagingDir(cfg ServerConfig) string {
	if cfg.StagingDir != "" {
		return cfg.StagingDir
	}
	return filepath.Join(os.TempDir(), "sleuth-staging")
}

func writeIntakeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSubmitInFlight):
		WriteError(w, http.StatusConflict, err.Error(), "SUBMIT_IN_FLIGHT")
	case errors.Is(err, intake.ErrNoCandidate):
		WriteError(w, http.StatusBadRequest, err.Error(), "NO_FILE")
	case errors.Is(err, intake.ErrMultipleFiles):
		WriteError(w, http.StatusBadRequest, err.Error(), "MULTIPLE_FILES")
	case errors.Is(err, intake.ErrNotAVideo):
		WriteError(w, http.StatusUnsupportedMediaType, err.Error(), "NOT_A_VIDEO")
	default:
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_FILE")
	}
}

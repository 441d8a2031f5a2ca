package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/sleuth/sleuth-agent/internal/config"
	"github.com/sleuth/sleuth-agent/internal/metrics"
	"github.com/sleuth/sleuth-agent/internal/search"
	"github.com/sleuth/sleuth-agent/internal/session"
	"github.com/sleuth/sleuth-agent/internal/store"
	"github.com/sleuth/sleuth-agent/internal/view"
)

const backendCheckTimeout = 3 * time.Second

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(metrics.Middleware)
	r.Use(CORS(cfg.AllowedOrigins))

	r.Get("/health", healthHandler(cfg))
	r.With(LoopbackGuard()).Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Post("/intake/drop", dropHandler(cfg))
		r.Post("/intake/pick", pickHandler(cfg))
		r.With(LoopbackGuard()).Get("/intake/preview", previewHandler(cfg))
		r.With(LoopbackGuard()).Head("/intake/preview", previewHandler(cfg))
		r.Post("/submit", submitHandler(cfg))
		r.Get("/view", viewHandler(cfg))
		r.Post("/view/{pane}", activatePaneHandler(cfg))
		r.Get("/frames/{index}/search/{engine}", frameSearchHandler(cfg))
		r.Get("/attempts", listAttemptsHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		snap := cfg.Session.Snapshot()

		resp := StatusResponse{
			Phase:          snap.Phase,
			InFlight:       cfg.Session.InFlight(),
			LastError:      snap.Error,
			Backend:        checkBackend(ctx, cfg),
			RecentAttempts: []AttemptResponse{},
		}

		if snap.Staged != nil {
			resp.Staged = &StagedResponse{
				Name:     snap.Staged.Name,
				MIMEType: snap.Staged.MIMEType,
				Size:     snap.Staged.Size,
				SizeText: humanize.Bytes(uint64(snap.Staged.Size)),
				Origin:   string(snap.Staged.Origin),
			}
		}

		if cfg.Repository != nil {
			attempts, err := cfg.Repository.ListAttempts(ctx, 5)
			if err == nil {
				resp.RecentAttempts = AttemptsToResponse(attempts)
			}
			resp.AttemptsTotal, _ = cfg.Repository.CountAttempts(ctx, "")
			resp.AttemptsFailed, _ = cfg.Repository.CountAttempts(ctx, store.AttemptStatusFailed)
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func checkBackend(ctx context.Context, cfg ServerConfig) BackendResponse {
	resp := BackendResponse{URL: cfg.ServiceURL, Status: "unknown"}
	if cfg.Cloud == nil {
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()

	health, err := cfg.Cloud.Health(ctx)
	if err != nil {
		resp.Status = "unreachable"
		resp.Error = err.Error()
		return resp
	}
	resp.Status = health.Status
	resp.Service = health.Service
	resp.Version = health.Version
	return resp
}

func previewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := cfg.Session.Snapshot()
		if snap.Staged == nil {
			WriteError(w, http.StatusNotFound, "no file is staged", "NOTHING_STAGED")
			return
		}

		if err := cfg.PlaybackServer.ServeStaged(w, r, *snap.Staged); err != nil {
			RequestLogger(r.Context(), cfg.Logger).Error("preview error", "error", err, "filename", snap.Staged.Name)
		}
	}
}

func submitHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		done, err := cfg.Session.SubmitAsync(r.Context())
		if err != nil {
			writeSessionError(w, err)
			return
		}

		status := http.StatusAccepted
		if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
			<-done
			status = http.StatusOK
		}

		snap := cfg.Session.Snapshot()
		WriteJSON(w, status, SubmitResponse{AttemptID: snap.AttemptID, Snapshot: snap})
	}
}

func viewHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func activatePaneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		router := cfg.Session.Router()

		pane, err := router.ParsePane(chi.URLParam(r, "pane"))
		if err == nil {
			err = router.Activate(pane)
		}
		if errors.Is(err, view.ErrUnknownPane) {
			WriteError(w, http.StatusNotFound, err.Error(), "UNKNOWN_PANE")
			return
		}
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, cfg.Session.Snapshot())
	}
}

func frameSearchHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := cfg.Session.Snapshot()
		if snap.Results == nil {
			WriteError(w, http.StatusNotFound, "no analysis results", "NO_RESULTS")
			return
		}

		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil || index < 0 || index >= len(snap.Results.Gallery) {
			WriteError(w, http.StatusNotFound, "frame not found", "NOT_FOUND")
			return
		}

		engine, err := search.ParseEngine(chi.URLParam(r, "engine"))
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "UNKNOWN_ENGINE")
			return
		}

		for _, link := range snap.Results.Gallery[index].Links {
			if link.Engine == engine {
				http.Redirect(w, r, link.URL, http.StatusFound)
				return
			}
		}
		WriteError(w, http.StatusNotFound, "search link not available", "NOT_FOUND")
	}
}

func listAttemptsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		attempts, err := cfg.Repository.ListAttempts(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list attempts", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, AttemptsResponse{Attempts: AttemptsToResponse(attempts)})
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSubmitInFlight):
		WriteError(w, http.StatusConflict, err.Error(), "SUBMIT_IN_FLIGHT")
	case errors.Is(err, session.ErrNothingStaged):
		WriteError(w, http.StatusBadRequest, err.Error(), "NOTHING_STAGED")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

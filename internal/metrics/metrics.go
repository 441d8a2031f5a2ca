// Package metrics exposes Prometheus instruments for the agent's local API
// and for upload attempts.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sleuth/sleuth-agent/internal/session"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sleuth_http_requests_total",
			Help: "Total number of local API requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sleuth_http_request_duration_seconds",
			Help:    "Local API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	UploadsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sleuth_uploads_started_total",
			Help: "Total number of analysis uploads started",
		},
	)

	UploadsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sleuth_uploads_finished_total",
			Help: "Total number of analysis uploads finished, by outcome",
		},
		[]string{"outcome"},
	)

	UploadsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sleuth_uploads_in_flight",
			Help: "Number of uploads awaiting a response",
		},
	)

	UploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sleuth_upload_size_bytes",
			Help:    "Size of uploaded videos in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 14), // 1MB to 8GB
		},
	)

	UploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sleuth_upload_duration_seconds",
			Help:    "Time from submission to response in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17 minutes
		},
		[]string{"outcome"},
	)

	QualityScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sleuth_quality_score",
			Help:    "Quality scores returned by the analysis service",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration)
}

// Middleware records request counts and latency keyed by the chi route
// pattern so path parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordHTTPRequest(r.Method, route, strconv.Itoa(status), time.Since(start).Seconds())
	})
}

// Recorder feeds upload attempts into the instruments above.
type Recorder struct{}

func (Recorder) AttemptStarted(_ context.Context, a session.Attempt) {
	UploadsStartedTotal.Inc()
	UploadsInFlight.Inc()
	UploadSizeBytes.Observe(float64(a.Size))
}

func (Recorder) AttemptFinished(_ context.Context, a session.Attempt) {
	outcome := string(a.Phase)
	UploadsInFlight.Dec()
	UploadsFinishedTotal.WithLabelValues(outcome).Inc()
	UploadDuration.WithLabelValues(outcome).Observe(a.Duration().Seconds())
	if a.Phase == session.PhaseSucceeded {
		QualityScore.Observe(float64(a.Score))
	}
}

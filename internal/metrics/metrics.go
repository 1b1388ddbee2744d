// Package metrics exposes Prometheus collectors for the settlement engine
// and the HTTP layer on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratepulse",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ratepulse",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	submissionsPlayed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratepulse",
			Subsystem: "engine",
			Name:      "submissions_played_total",
			Help:      "Submissions settled, by branch (fresh or resumed).",
		},
		[]string{"branch"},
	)

	submissionsPending = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ratepulse",
			Subsystem: "engine",
			Name:      "submissions_pending_total",
			Help:      "Fresh submissions flipped to pending for insufficient balance.",
		},
	)

	submissionsAssigned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratepulse",
			Subsystem: "engine",
			Name:      "submissions_assigned_total",
			Help:      "Submissions created, by source (engine or injection).",
		},
		[]string{"source"},
	)

	playDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratepulse",
			Subsystem: "engine",
			Name:      "play_denied_total",
			Help:      "Plays rejected by an eligibility gate.",
		},
		[]string{"reason"},
	)

	withdrawalDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratepulse",
			Subsystem: "wallet",
			Name:      "withdrawal_denied_total",
			Help:      "Withdrawal requests rejected by eligibility.",
		},
		[]string{"reason"},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ratepulse",
			Subsystem: "notify",
			Name:      "delivered_total",
			Help:      "Notifications written by the background worker.",
		},
		[]string{"type"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		submissionsPlayed,
		submissionsPending,
		submissionsAssigned,
		playDenied,
		withdrawalDenied,
		notificationsSent,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with request count and latency collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		httpRequests.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func RecordPlayed(resumed bool) {
	branch := "fresh"
	if resumed {
		branch = "resumed"
	}
	submissionsPlayed.WithLabelValues(branch).Inc()
}

func RecordPending() { submissionsPending.Inc() }

// RecordAssigned counts a created submission; source is "engine" or "injection".
func RecordAssigned(source string) { submissionsAssigned.WithLabelValues(source).Inc() }

func RecordPlayDenied(reason string) { playDenied.WithLabelValues(reason).Inc() }

func RecordWithdrawalDenied(reason string) { withdrawalDenied.WithLabelValues(reason).Inc() }

func RecordNotification(kind string) { notificationsSent.WithLabelValues(kind).Inc() }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// canonicalPath collapses ids so label cardinality stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	for i, p := range parts {
		if len(p) == 36 && strings.Count(p, "-") == 4 {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

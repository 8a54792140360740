package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zombar/visibility"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visibility",
		Name:      "http_requests_total",
		Help:      "HTTP requests handled, by method, route, and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "visibility",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visibility",
		Name:      "analyses_total",
		Help:      "Completed scoring runs, by analysis method.",
	}, []string{"method"})

	aiFallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "visibility",
		Name:      "ai_fallbacks_total",
		Help:      "Scoring runs that fell back to the heuristic path, by reason class.",
	}, []string{"reason"})
)

// recordAnalysis tracks which path produced a score set. Heuristic methods
// carry a parenthesized failure reason; only the leading word goes into the
// label to bound cardinality.
func recordAnalysis(method string) {
	label := method
	if i := strings.IndexByte(method, ' '); i >= 0 {
		label = method[:i]
	}
	analysesTotal.WithLabelValues(label).Inc()
	if label != visibility.MethodAIPowered {
		aiFallbacksTotal.WithLabelValues(fallbackReason(method)).Inc()
	}
}

// fallbackReason classifies a heuristic method label into a fixed set of
// values. Matches on the engine's own reason strings, which survive the
// label truncation intact.
func fallbackReason(method string) string {
	switch {
	case method == visibility.MethodHeuristicNoKey:
		return "no_key"
	case strings.Contains(method, "no structured data"):
		return "extraction"
	case strings.Contains(method, "score key"):
		return "validation"
	default:
		return "ai_error"
	}
}

// trackedRoutes are the fixed mux routes. Anything else collapses into a
// single label value so unmatched paths cannot grow the metric.
var trackedRoutes = map[string]bool{
	"/health":          true,
	"/api/analyze":     true,
	"/api/coverage":    true,
	"/api/score":       true,
	"/api/suggestions": true,
	"/api/reports":     true,
	"/metrics":         true,
}

// metricsRoute maps a request path to its route label.
func metricsRoute(path string) string {
	switch {
	case trackedRoutes[path]:
		return path
	case strings.HasPrefix(path, "/api/reports/") && strings.HasSuffix(path, "/entities"):
		return "/api/reports/{site_id}/entities"
	case strings.HasPrefix(path, "/api/reports/"):
		return "/api/reports/{site_id}"
	default:
		return "other"
	}
}

// statusRecorder captures the response status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

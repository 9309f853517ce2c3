package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileserver_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration tracks request latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fileserver_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// ToolCalls tracks MCP tool invocations
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileserver_tool_calls_total",
			Help: "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)

	// ToolDuration tracks per-tool handler latency
	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fileserver_tool_duration_seconds",
			Help:    "Tool handler duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	// SearchFilesScanned counts files scanned by content search
	SearchFilesScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fileserver_search_files_scanned_total",
			Help: "Total number of files scanned by content search",
		},
	)

	// PathViolations counts rejected path escape attempts
	PathViolations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fileserver_path_violations_total",
			Help: "Total number of requests rejected by the path sandbox",
		},
	)

	// SupervisorRequests counts calls to the Supervisor API
	SupervisorRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fileserver_supervisor_requests_total",
			Help: "Total number of Supervisor API requests",
		},
		[]string{"endpoint", "status"},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher for SSE support
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware creates an HTTP middleware that records metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		RequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// normalizePath normalizes URL paths to avoid high cardinality
func normalizePath(path string) string {
	switch path {
	case "/health", "/ready", "/mcp", "/mcp/", "/metrics":
		return path
	default:
		if len(path) > 5 && path[:5] == "/mcp/" {
			return "/mcp"
		}
		return "other"
	}
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordToolCall records an MCP tool invocation
func RecordToolCall(tool, status string) {
	ToolCalls.WithLabelValues(tool, status).Inc()
}

// ObserveToolDuration records how long a tool handler took
func ObserveToolDuration(tool string, seconds float64) {
	ToolDuration.WithLabelValues(tool).Observe(seconds)
}

// RecordPathViolation records a rejected sandbox escape attempt
func RecordPathViolation() {
	PathViolations.Inc()
}

// RecordSupervisorRequest records a Supervisor API call
func RecordSupervisorRequest(endpoint, status string) {
	SupervisorRequests.WithLabelValues(endpoint, status).Inc()
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/renehagen/ha-mcp-file-server/internal/audit"
	"github.com/renehagen/ha-mcp-file-server/internal/auth"
	"github.com/renehagen/ha-mcp-file-server/internal/config"
	"github.com/renehagen/ha-mcp-file-server/internal/files"
	"github.com/renehagen/ha-mcp-file-server/internal/logger"
	"github.com/renehagen/ha-mcp-file-server/internal/metrics"
	"github.com/renehagen/ha-mcp-file-server/internal/search"
	"github.com/renehagen/ha-mcp-file-server/internal/supervisor"
)

// Server wraps the MCP server with the file store, searcher, and optional
// supervisor and audit integrations.
type Server struct {
	cfg        *config.Config
	version    string
	store      *files.Store
	searcher   *search.Searcher
	supervisor *supervisor.Client // nil when no supervisor token is configured
	audit      *audit.Store       // nil when auditing is disabled
	registry   *Registry
	mcpServer  *mcp.Server
	httpServer *http.Server
}

// Options carries the collaborators a Server needs beyond configuration.
type Options struct {
	Version    string
	Store      *files.Store
	Searcher   *search.Searcher
	Supervisor *supervisor.Client
	Audit      *audit.Store
}

// NewServer creates a new MCP server instance and registers all tools.
func NewServer(cfg *config.Config, opts Options) *Server {
	s := &Server{
		cfg:        cfg,
		version:    opts.Version,
		store:      opts.Store,
		searcher:   opts.Searcher,
		supervisor: opts.Supervisor,
		audit:      opts.Audit,
		registry:   NewRegistry(),
	}

	s.registerAllTools(s.registry)
	return s
}

// GetRegistry returns the tool registry for external access
func (s *Server) GetRegistry() *Registry {
	return s.registry
}

// Handler builds the full HTTP handler: MCP endpoint with auth, rate
// limiting, request timeout and metrics, plus health and metrics endpoints.
func (s *Server) Handler() http.Handler {
	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "ha-mcp-file-server",
		Version: s.version,
	}, nil)

	s.registry.RegisterWithMCPServer(s.mcpServer)

	mcpHandler := mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return s.mcpServer
	}, &mcp.StreamableHTTPOptions{
		EventStore: mcp.NewMemoryEventStore(nil),
	})

	// Request ID and logging middleware
	loggingHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), logger.ContextKeyRequestID, requestID)
		r = r.WithContext(ctx)

		logger.Info("HTTP %s %s from %s [request_id=%s]", r.Method, r.URL.Path, r.RemoteAddr, requestID)
		mcpHandler.ServeHTTP(w, r)
	})

	// Bound every tool call by the configured request timeout
	timeoutHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
		defer cancel()
		loggingHandler.ServeHTTP(w, r.WithContext(ctx))
	})

	authedHandler := auth.Middleware(s.cfg.APIKey)(timeoutHandler)
	rateLimitedHandler := auth.RateLimitMiddleware(auth.DefaultRateLimiter())(authedHandler)

	mainMux := http.NewServeMux()

	// Health endpoints - no authentication required
	mainMux.HandleFunc("/health", s.handleHealthCheck)
	mainMux.HandleFunc("/ready", s.handleReadinessCheck)

	// Metrics endpoint - no authentication required (Prometheus scraping)
	mainMux.Handle("/metrics", metrics.Handler())

	mainMux.Handle("/mcp", metrics.Middleware(rateLimitedHandler))
	mainMux.Handle("/mcp/", metrics.Middleware(rateLimitedHandler))

	return mainMux
}

// Serve starts the HTTP server and blocks until it stops.
func (s *Server) Serve() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	logger.Info("MCP file server listening on %s", addr)
	logger.Info("Allowed directories: %v", s.cfg.AllowedDirs)
	if s.cfg.ReadOnly {
		logger.Info("Read-only mode enabled")
	}
	if s.supervisor != nil {
		logger.Info("Supervisor tools enabled")
	}
	logger.Info("Health check: http://localhost%s/health", addr)
	logger.Info("Metrics: http://localhost%s/metrics", addr)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleHealthCheck is a basic liveness check
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":       "ok",
		"version":      s.version,
		"read_only":    s.cfg.ReadOnly,
		"allowed_dirs": s.cfg.AllowedDirs,
	})
}

// handleReadinessCheck verifies the server can serve requests
func (s *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// requestIDFromContext returns the request ID set by the logging middleware.
func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(logger.ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// recordAudit writes an audit entry for a mutating tool call when auditing
// is enabled.
func (s *Server) recordAudit(ctx context.Context, tool, path string, callErr error) {
	if s.audit == nil {
		return
	}

	entry := &audit.Entry{
		Tool:      tool,
		Path:      path,
		RequestID: requestIDFromContext(ctx),
		Success:   callErr == nil,
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}

	if err := s.audit.Record(entry); err != nil {
		logger.Error("Failed to record audit entry for %s: %v", tool, err)
	}
}

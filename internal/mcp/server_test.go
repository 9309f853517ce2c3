package mcp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/renehagen/ha-mcp-file-server/internal/supervisor"
)

func toolNames(srv *Server) map[string]bool {
	names := make(map[string]bool)
	for _, def := range srv.registry.GetAllTools() {
		names[def.Name] = true
	}
	return names
}

func TestFileToolsAlwaysRegistered(t *testing.T) {
	srv, _ := newTestServer(t, false)
	names := toolNames(srv)

	for _, want := range []string{
		"list_directory", "read_file", "read_file_filtered",
		"write_file", "create_directory", "delete_path", "search_files",
	} {
		if !names[want] {
			t.Errorf("expected tool %s to be registered", want)
		}
	}

	// No supervisor or audit configured
	for _, absent := range []string{"ha_cli", "ha_entities", "ha_entity_registry", "audit_log"} {
		if names[absent] {
			t.Errorf("tool %s should not be registered without its backend", absent)
		}
	}
}

func TestSupervisorToolsConditional(t *testing.T) {
	srv, _ := newTestServer(t, false)

	client, err := supervisor.NewClient("http://supervisor", "test-token")
	if err != nil {
		t.Fatal(err)
	}
	srv.supervisor = client
	srv.registry = NewRegistry()
	srv.registerAllTools(srv.registry)

	names := toolNames(srv)
	for _, want := range []string{"ha_cli", "ha_entities", "ha_entity_registry"} {
		if !names[want] {
			t.Errorf("expected supervisor tool %s to be registered", want)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	srv, root := newTestServer(t, true)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Status      string   `json:"status"`
		Version     string   `json:"version"`
		ReadOnly    bool     `json:"read_only"`
		AllowedDirs []string `json:"allowed_dirs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("health body not JSON: %v", err)
	}
	if body.Status != "ok" || body.Version != "test" {
		t.Errorf("unexpected health body: %+v", body)
	}
	if !body.ReadOnly {
		t.Error("expected read_only true")
	}
	if len(body.AllowedDirs) != 1 || body.AllowedDirs[0] != root {
		t.Errorf("unexpected allowed_dirs: %v", body.AllowedDirs)
	}
}

func TestReadinessCheck(t *testing.T) {
	srv, _ := newTestServer(t, false)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMCPEndpointRequiresAPIKey(t *testing.T) {
	srv, _ := newTestServer(t, false)
	srv.cfg.APIKey = "secret"
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", rec.Code)
	}

	// Health stays open.
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health should not require auth, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, false)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", rec.Code)
	}
}

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so tests start from defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MCP_PORT", "MCP_API_KEY", "MCP_READ_ONLY", "MCP_MAX_FILE_SIZE_MB",
		"MCP_ALLOWED_DIRS", "MCP_SEARCH_WORKERS", "MCP_REQUEST_TIMEOUT_SECONDS",
		"MCP_DATA_DIR", "SUPERVISOR_TOKEN", "SUPERVISOR_URL",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("MCP_ALLOWED_DIRS", "/config")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("expected default port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.MaxFileSize != 10<<20 {
		t.Errorf("expected 10MB limit, got %d", cfg.MaxFileSize)
	}
	if cfg.SearchWorkers != DefaultSearchWorkers {
		t.Errorf("expected %d workers, got %d", DefaultSearchWorkers, cfg.SearchWorkers)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("expected 60s timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.SupervisorURL != DefaultSupervisorURL {
		t.Errorf("expected default supervisor URL, got %q", cfg.SupervisorURL)
	}
	if cfg.ReadOnly {
		t.Error("expected read-only off by default")
	}
	if cfg.HasSupervisor() {
		t.Error("expected supervisor disabled without token")
	}
	if cfg.AuditEnabled() {
		t.Error("expected audit disabled without data dir")
	}
}

func TestLoad_NoAllowedDirs(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); err == nil {
		t.Error("expected error when no allowed dirs configured")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MCP_PORT", "8099")
	t.Setenv("MCP_API_KEY", "secret")
	t.Setenv("MCP_READ_ONLY", "true")
	t.Setenv("MCP_MAX_FILE_SIZE_MB", "5")
	t.Setenv("MCP_ALLOWED_DIRS", `["/config", "/share"]`)
	t.Setenv("MCP_SEARCH_WORKERS", "4")
	t.Setenv("MCP_REQUEST_TIMEOUT_SECONDS", "30")
	t.Setenv("SUPERVISOR_TOKEN", "tok")
	t.Setenv("SUPERVISOR_URL", "http://localhost:9123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8099 || cfg.APIKey != "secret" || !cfg.ReadOnly {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.MaxFileSize != 5<<20 {
		t.Errorf("expected 5MB limit, got %d", cfg.MaxFileSize)
	}
	if !reflect.DeepEqual(cfg.AllowedDirs, []string{"/config", "/share"}) {
		t.Errorf("unexpected allowed dirs: %v", cfg.AllowedDirs)
	}
	if cfg.SearchWorkers != 4 || cfg.RequestTimeout != 30*time.Second {
		t.Errorf("worker/timeout overrides not applied: %+v", cfg)
	}
	if !cfg.HasSupervisor() || cfg.SupervisorURL != "http://localhost:9123" {
		t.Errorf("supervisor settings not applied: %+v", cfg)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "MCP_PORT", "not-a-number"},
		{"port out of range", "MCP_PORT", "70000"},
		{"bad read only", "MCP_READ_ONLY", "maybe"},
		{"bad file size", "MCP_MAX_FILE_SIZE_MB", "0"},
		{"bad workers", "MCP_SEARCH_WORKERS", "0"},
		{"bad timeout", "MCP_REQUEST_TIMEOUT_SECONDS", "-5"},
		{"bad dirs json", "MCP_ALLOWED_DIRS", `["unterminated`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("MCP_ALLOWED_DIRS", "/config")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestParseAllowedDirs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"json array", `["/config", "/share"]`, []string{"/config", "/share"}},
		{"newline separated", "/config\n/share\n", []string{"/config", "/share"}},
		{"newline with blanks", "/config\n\n  /media  \n", []string{"/config", "/media"}},
		{"single dir", "/config", []string{"/config"}},
		{"empty", "  ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAllowedDirs(tt.raw)
			if err != nil {
				t.Fatalf("ParseAllowedDirs: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad_FileConfigEnvWins(t *testing.T) {
	clearEnv(t)

	dataDir := t.TempDir()
	content := `{
		// local overrides
		"port": 7000,
		"read_only": true,
		"allowed_dirs": ["/config"],
		"supervisor_url": "http://file-value"
	}`
	if err := os.WriteFile(filepath.Join(dataDir, "fileserver.jsonc"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MCP_DATA_DIR", dataDir)
	t.Setenv("MCP_PORT", "8001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8001 {
		t.Errorf("env should win over file, got port %d", cfg.Port)
	}
	if !cfg.ReadOnly {
		t.Error("file value for read_only not applied")
	}
	if !reflect.DeepEqual(cfg.AllowedDirs, []string{"/config"}) {
		t.Errorf("file allowed_dirs not applied: %v", cfg.AllowedDirs)
	}
	if cfg.SupervisorURL != "http://file-value" {
		t.Errorf("file supervisor_url not applied: %q", cfg.SupervisorURL)
	}
	if !cfg.AuditEnabled() {
		t.Error("expected audit enabled with data dir set")
	}
}

func TestStripJSONComments(t *testing.T) {
	input := []byte(`{
		// line comment
		"key": "value", /* block */
		"url": "http://example.com" // not a comment inside the string
	}`)
	out := string(StripJSONComments(input))
	if want := `"key": "value"`; !strings.Contains(out, want) {
		t.Errorf("expected %q in output", want)
	}
	if strings.Contains(out, "line comment") || strings.Contains(out, "block") {
		t.Errorf("comments not stripped: %s", out)
	}
	if !strings.Contains(out, "http://example.com") {
		t.Errorf("string content mangled: %s", out)
	}
}

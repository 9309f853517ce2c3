package supervisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "test-token")
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestNewClient_RequiresToken(t *testing.T) {
	if _, err := NewClient("", ""); err != ErrNoToken {
		t.Errorf("NewClient() error = %v, want ErrNoToken", err)
	}
}

func TestAddonLogs(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/addons/core_ssh/logs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte("log line 1\nlog line 2\n"))
	}))

	logs, err := client.AddonLogs(context.Background(), "core_ssh")
	if err != nil {
		t.Fatalf("AddonLogs() error = %v", err)
	}
	if !strings.Contains(logs, "log line 1") {
		t.Errorf("AddonLogs() = %q", logs)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
}

func TestAddonLogs_APIError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "addon does not exist"})
	}))

	_, err := client.AddonLogs(context.Background(), "ghost")
	if err == nil || !strings.Contains(err.Error(), "addon does not exist") {
		t.Errorf("AddonLogs() error = %v, want supervisor message", err)
	}
}

func TestStates(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/core/api/states" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"entity_id":"light.kitchen","state":"on"}]`))
	}))

	raw, err := client.States(context.Background())
	if err != nil {
		t.Fatalf("States() error = %v", err)
	}

	var states []map[string]any
	if err := json.Unmarshal(raw, &states); err != nil {
		t.Fatal(err)
	}
	if len(states) != 1 || states[0]["entity_id"] != "light.kitchen" {
		t.Errorf("States() = %v", states)
	}
}

func TestCoreAPI_UnsupportedMethod(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())

	if _, err := client.CoreAPI(context.Background(), "DELETE", "/states", nil); err == nil {
		t.Error("expected error for unsupported method")
	}
}

func TestRunCLI(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/addons":
			_ = json.NewEncoder(w).Encode(map[string]any{"addons": []string{"core_ssh"}})
		case "/addons/core_ssh/logs":
			_, _ = w.Write([]byte("ssh addon logs"))
		case "/supervisor/logs":
			_, _ = w.Write([]byte("supervisor running"))
		case "/core/logs":
			_, _ = w.Write([]byte("core running"))
		case "/core/api/services":
			_, _ = w.Write([]byte(`[{"domain":"light"}]`))
		case "/core/api/config":
			_, _ = w.Write([]byte(`{"location_name":"Home"}`))
		case "/host/logs":
			_, _ = w.Write([]byte("host running"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	tests := []struct {
		name    string
		command string
		wantOut string
		wantOK  bool
	}{
		{"addon list", "ha addons", "core_ssh", true},
		{"addon logs", "ha addons logs core_ssh", "ssh addon logs", true},
		{"supervisor logs", "ha supervisor logs", "supervisor running", true},
		{"core logs", "ha core logs", "core running", true},
		{"core services", "ha core services", "light", true},
		{"core config", "ha core config", "location_name", true},
		{"host logs", "ha host logs", "host running", true},
		{"unsupported command", "ha network info", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := client.RunCLI(context.Background(), tt.command)
			if err != nil {
				t.Fatalf("RunCLI() error = %v", err)
			}
			if result.Success != tt.wantOK {
				t.Errorf("Success = %v, want %v (stderr: %s)", result.Success, tt.wantOK, result.Stderr)
			}
			if tt.wantOK && !strings.Contains(result.Stdout, tt.wantOut) {
				t.Errorf("Stdout = %q, want contains %q", result.Stdout, tt.wantOut)
			}
			if !tt.wantOK && result.ReturnCode != 1 {
				t.Errorf("ReturnCode = %d, want 1", result.ReturnCode)
			}
		})
	}
}

func TestRunCLI_InvalidFormat(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())

	for _, command := range []string{"", "ha", "rm -rf /", "docker ps"} {
		if _, err := client.RunCLI(context.Background(), command); err == nil {
			t.Errorf("RunCLI(%q) expected error", command)
		}
	}
}

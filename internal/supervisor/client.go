// Package supervisor is a typed client for the Home Assistant Supervisor
// API: REST calls proxied through http://supervisor, a WebSocket fetch for
// the entity registry, and an allow-listed translation of "ha ..." CLI
// commands onto those calls.
package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/renehagen/ha-mcp-file-server/internal/logger"
)

// DefaultBaseURL is the Supervisor endpoint inside an add-on container.
const DefaultBaseURL = "http://supervisor"

// ErrNoToken indicates the SUPERVISOR_TOKEN was not provided.
var ErrNoToken = errors.New("supervisor token not configured")

// Client talks to the Supervisor API. Failure recovery is deliberately thin:
// one retry on transport error, nothing more.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a Supervisor client. baseURL defaults to DefaultBaseURL
// when empty; token is required.
func NewClient(baseURL, token string) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *Client) headers(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
}

// do executes a request with a single retry on transport error.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		c.headers(req)

		resp, err := c.http.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		logger.Info("Supervisor request %s %s failed, retrying once: %v", method, path, err)
	}
	return nil, lastErr
}

// getText fetches a text endpoint (log streams).
func (c *Client) getText(ctx context.Context, path, what string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", what, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to get %s: %w", what, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apiError(what, resp.StatusCode, data)
	}
	return string(data), nil
}

// getJSON fetches a JSON endpoint and decodes into out.
func (c *Client) getJSON(ctx context.Context, path, what string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", what, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", what, err)
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(what, resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", what, err)
	}
	return nil
}

// apiError extracts the Supervisor's error message when the body is JSON,
// falling back to the raw text.
func apiError(what string, status int, body []byte) error {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return fmt.Errorf("failed to get %s: %d - %s", what, status, payload.Message)
	}
	return fmt.Errorf("failed to get %s: %d - %s", what, status, strings.TrimSpace(string(body)))
}

// AddonLogs returns logs for a specific add-on.
func (c *Client) AddonLogs(ctx context.Context, slug string) (string, error) {
	return c.getText(ctx, "/addons/"+slug+"/logs", "addon logs")
}

// AddonInfo returns information about a specific add-on.
func (c *Client) AddonInfo(ctx context.Context, slug string) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, "/addons/"+slug+"/info", "addon info", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAddons returns all installed add-ons.
func (c *Client) ListAddons(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, "/addons", "addon list", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SupervisorLogs returns the Supervisor's own logs.
func (c *Client) SupervisorLogs(ctx context.Context) (string, error) {
	return c.getText(ctx, "/supervisor/logs", "supervisor logs")
}

// CoreLogs returns Home Assistant Core logs.
func (c *Client) CoreLogs(ctx context.Context) (string, error) {
	return c.getText(ctx, "/core/logs", "core logs")
}

// HostLogs returns host logs.
func (c *Client) HostLogs(ctx context.Context) (string, error) {
	return c.getText(ctx, "/host/logs", "host logs")
}

// CoreAPI makes a direct call to the Home Assistant API via the Supervisor
// proxy. Only GET and POST are supported.
func (c *Client) CoreAPI(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	method = strings.ToUpper(method)
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	resp, err := c.do(ctx, method, "/core/api"+endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to call HA API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to call HA API: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apiError("HA API "+endpoint, resp.StatusCode, data)
	}
	return json.RawMessage(data), nil
}

// States returns all Home Assistant entity states.
func (c *Client) States(ctx context.Context) (json.RawMessage, error) {
	return c.CoreAPI(ctx, http.MethodGet, "/states", nil)
}

// Services returns all Home Assistant services.
func (c *Client) Services(ctx context.Context) (json.RawMessage, error) {
	return c.CoreAPI(ctx, http.MethodGet, "/services", nil)
}

// CoreConfig returns the Home Assistant configuration.
func (c *Client) CoreConfig(ctx context.Context) (json.RawMessage, error) {
	return c.CoreAPI(ctx, http.MethodGet, "/config", nil)
}

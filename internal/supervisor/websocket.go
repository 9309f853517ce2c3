package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"
)

// wsMessage covers the subset of the Home Assistant WebSocket protocol this
// client speaks: the auth handshake and a single command/result exchange.
type wsMessage struct {
	ID          int             `json:"id,omitempty"`
	Type        string          `json:"type"`
	AccessToken string          `json:"access_token,omitempty"`
	Success     bool            `json:"success,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *wsError        `json:"error,omitempty"`
}

type wsError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EntityRegistry fetches the entity registry over the Home Assistant
// WebSocket API (the registry is not exposed over plain REST). The handshake
// is auth_required -> auth -> auth_ok, then one
// config/entity_registry/list command.
func (c *Client) EntityRegistry(ctx context.Context) (json.RawMessage, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to websocket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	// Server opens with auth_required.
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return nil, fmt.Errorf("failed to read auth challenge: %w", err)
	}
	if msg.Type != "auth_required" {
		return nil, fmt.Errorf("unexpected websocket greeting: %s", msg.Type)
	}

	if err := conn.WriteJSON(wsMessage{Type: "auth", AccessToken: c.token}); err != nil {
		return nil, fmt.Errorf("failed to send auth: %w", err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		return nil, fmt.Errorf("failed to read auth result: %w", err)
	}
	if msg.Type != "auth_ok" {
		return nil, fmt.Errorf("websocket authentication failed: %s", msg.Type)
	}

	if err := conn.WriteJSON(wsMessage{ID: 1, Type: "config/entity_registry/list"}); err != nil {
		return nil, fmt.Errorf("failed to request entity registry: %w", err)
	}

	// Skip unrelated events until the result for our command arrives.
	for {
		if err := conn.ReadJSON(&msg); err != nil {
			return nil, fmt.Errorf("failed to read entity registry: %w", err)
		}
		if msg.Type != "result" || msg.ID != 1 {
			continue
		}
		if !msg.Success {
			if msg.Error != nil {
				return nil, fmt.Errorf("entity registry request failed: %s - %s", msg.Error.Code, msg.Error.Message)
			}
			return nil, fmt.Errorf("entity registry request failed")
		}
		return msg.Result, nil
	}
}

// websocketURL derives the Core WebSocket endpoint from the REST base URL.
func (c *Client) websocketURL() string {
	url := c.baseURL
	if strings.HasPrefix(url, "https://") {
		url = "wss://" + strings.TrimPrefix(url, "https://")
	} else {
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}
	return url + "/core/websocket"
}

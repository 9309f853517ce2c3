package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/renehagen/ha-mcp-file-server/internal/validation"
)

// CLIResult mirrors the shape of running an "ha" command in a shell.
type CLIResult struct {
	Command    string `json:"command"`
	ReturnCode int    `json:"return_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Success    bool   `json:"success"`
}

// RunCLI translates an allow-listed "ha ..." command into Supervisor API
// calls. Supported commands:
//
//	ha addons
//	ha addons logs <slug>
//	ha addons info <slug>
//	ha supervisor logs
//	ha core logs
//	ha core services
//	ha core config
//	ha host logs
//
// Malformed input (not an "ha" invocation) is an error; a well-formed but
// unsupported command comes back in the result envelope with success=false,
// the way a real shell invocation would fail.
func (c *Client) RunCLI(ctx context.Context, command string) (*CLIResult, error) {
	parts := strings.Fields(strings.TrimSpace(command))
	if len(parts) < 2 || parts[0] != "ha" {
		return nil, fmt.Errorf("invalid command format: %s", command)
	}

	stdout, err := c.dispatchCLI(ctx, command, parts)
	if err != nil {
		return &CLIResult{
			Command:    command,
			ReturnCode: 1,
			Stderr:     err.Error(),
		}, nil
	}

	return &CLIResult{
		Command:    command,
		ReturnCode: 0,
		Stdout:     stdout,
		Success:    true,
	}, nil
}

func (c *Client) dispatchCLI(ctx context.Context, command string, parts []string) (string, error) {
	switch {
	case parts[1] == "addons" && len(parts) >= 4 && parts[2] == "logs":
		if err := validation.ValidateAddonSlug(parts[3]); err != nil {
			return "", err
		}
		return c.AddonLogs(ctx, parts[3])

	case parts[1] == "addons" && len(parts) >= 4 && parts[2] == "info":
		if err := validation.ValidateAddonSlug(parts[3]); err != nil {
			return "", err
		}
		info, err := c.AddonInfo(ctx, parts[3])
		if err != nil {
			return "", err
		}
		return marshalIndent(info)

	case parts[1] == "addons" && len(parts) == 2:
		addons, err := c.ListAddons(ctx)
		if err != nil {
			return "", err
		}
		return marshalIndent(addons)

	case parts[1] == "supervisor" && len(parts) >= 3 && parts[2] == "logs":
		return c.SupervisorLogs(ctx)

	case parts[1] == "core" && len(parts) >= 3 && parts[2] == "logs":
		return c.CoreLogs(ctx)

	case parts[1] == "core" && len(parts) >= 3 && parts[2] == "services":
		services, err := c.Services(ctx)
		if err != nil {
			return "", err
		}
		return marshalIndent(services)

	case parts[1] == "core" && len(parts) >= 3 && parts[2] == "config":
		cfg, err := c.CoreConfig(ctx)
		if err != nil {
			return "", err
		}
		return marshalIndent(cfg)

	case parts[1] == "host" && len(parts) >= 3 && parts[2] == "logs":
		return c.HostLogs(ctx)

	default:
		return "", fmt.Errorf("unsupported HA CLI command: %s", command)
	}
}

func marshalIndent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

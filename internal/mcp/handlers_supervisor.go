package mcp

import (
	"context"
	"fmt"
	"time"

	mcp_sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/renehagen/ha-mcp-file-server/internal/metrics"
)

// CLIParams is the params struct for the ha_cli tool
type CLIParams struct {
	Command string `json:"command" description:"Allow-listed ha command, e.g. \"ha addons logs core_mosquitto\""`
}

// EmptyParams is used by tools that take no arguments
type EmptyParams struct{}

func (s *Server) handleHACLI(ctx context.Context, request *mcp_sdk.CallToolRequest, params *CLIParams) (*mcp_sdk.CallToolResult, any, error) {
	start := time.Now()
	if params.Command == "" {
		return nil, nil, fmt.Errorf("command is required")
	}

	result, err := s.supervisor.RunCLI(ctx, params.Command)
	s.finishTool(ctx, "ha_cli", "", false, start, err)
	if err != nil {
		return nil, nil, SanitizeError(err, "ha_cli")
	}

	status := "success"
	if !result.Success {
		status = "error"
	}
	metrics.RecordSupervisorRequest("cli", status)

	out, err := NewJSONResult(result)
	if err != nil {
		return nil, nil, err
	}
	return out, result, nil
}

func (s *Server) handleHAEntities(ctx context.Context, request *mcp_sdk.CallToolRequest, params *EmptyParams) (*mcp_sdk.CallToolResult, any, error) {
	start := time.Now()

	states, err := s.supervisor.States(ctx)
	s.finishTool(ctx, "ha_entities", "", false, start, err)
	if err != nil {
		metrics.RecordSupervisorRequest("states", "error")
		return nil, nil, SanitizeError(err, "ha_entities")
	}
	metrics.RecordSupervisorRequest("states", "success")

	return NewTextResult(string(states)), nil, nil
}

func (s *Server) handleHAEntityRegistry(ctx context.Context, request *mcp_sdk.CallToolRequest, params *EmptyParams) (*mcp_sdk.CallToolResult, any, error) {
	start := time.Now()

	registry, err := s.supervisor.EntityRegistry(ctx)
	s.finishTool(ctx, "ha_entity_registry", "", false, start, err)
	if err != nil {
		metrics.RecordSupervisorRequest("entity_registry", "error")
		return nil, nil, SanitizeError(err, "ha_entity_registry")
	}
	metrics.RecordSupervisorRequest("entity_registry", "success")

	return NewTextResult(string(registry)), nil, nil
}

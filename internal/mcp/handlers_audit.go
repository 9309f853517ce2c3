package mcp

import (
	"context"
	"time"

	mcp_sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/renehagen/ha-mcp-file-server/internal/audit"
)

// AuditLogParams is the params struct for the audit_log tool
type AuditLogParams struct {
	Limit int `json:"limit,omitempty" description:"Maximum entries to return (default 50)"`
}

func (s *Server) handleAuditLog(ctx context.Context, request *mcp_sdk.CallToolRequest, params *AuditLogParams) (*mcp_sdk.CallToolResult, any, error) {
	start := time.Now()

	entries, err := s.audit.Recent(params.Limit)
	s.finishTool(ctx, "audit_log", "", false, start, err)
	if err != nil {
		return nil, nil, SanitizeError(err, "audit_log")
	}

	if entries == nil {
		entries = []audit.Entry{}
	}
	out, err := NewJSONResult(entries)
	if err != nil {
		return nil, nil, err
	}
	return out, entries, nil
}

package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	mcp_sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/renehagen/ha-mcp-file-server/internal/files"
	"github.com/renehagen/ha-mcp-file-server/internal/logger"
	"github.com/renehagen/ha-mcp-file-server/internal/metrics"
	"github.com/renehagen/ha-mcp-file-server/internal/sandbox"
)

// PathParams is the params struct for tools taking a single path
type PathParams struct {
	Path string `json:"path" description:"Absolute path inside an allowed directory"`
}

// WriteFileParams is the params struct for the write_file tool
type WriteFileParams struct {
	Path    string `json:"path" description:"Absolute path inside an allowed directory"`
	Content string `json:"content" description:"Full file content to write"`
}

// ReadFilteredParams is the params struct for the read_file_filtered tool
type ReadFilteredParams struct {
	Path          string `json:"path" description:"Absolute path inside an allowed directory"`
	FilterPattern string `json:"filter_pattern,omitempty" description:"Keep only lines containing this text (case-insensitive)"`
	TailLines     int    `json:"tail_lines,omitempty" description:"Consider only the last N lines of the file"`
	MaxLines      int    `json:"max_lines,omitempty" description:"Maximum lines to return (default 1000)"`
}

// finishTool records metrics and, for mutating tools, an audit entry.
func (s *Server) finishTool(ctx context.Context, tool, path string, mutating bool, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordToolCall(tool, status)
	metrics.ObserveToolDuration(tool, time.Since(start).Seconds())
	logger.InfoContext(ctx, "tool call", "tool", tool, "status", status, "duration_ms", time.Since(start).Milliseconds())

	if errors.Is(err, sandbox.ErrPathViolation) {
		metrics.RecordPathViolation()
	}
	if mutating {
		s.recordAudit(ctx, tool, path, err)
	}
}

func (s *Server) handleListDirectory(ctx context.Context, request *mcp_sdk.CallToolRequest, params *PathParams) (*mcp_sdk.CallToolResult, any, error) {
	start := time.Now()
	if params.Path == "" {
		return nil, nil, fmt.Errorf("path is required")
	}

	entries, err := s.store.List(params.Path)
	s.finishTool(ctx, "list_directory", params.Path, false, start, err)
	if err != nil {
		return nil, nil, SanitizeError(err, "list_directory")
	}

	if entries == nil {
		entries = []files.Entry{}
	}
	result, err := NewJSONResult(entries)
	if err != nil {
		return nil, nil, err
	}
	return result, entries, nil
}

func (s *Server) handleReadFile(ctx context.Context, request *mcp_sdk.CallToolRequest, params *PathParams) (*mcp_sdk.CallToolResult, any, error) {
	start := time.Now()
	if params.Path == "" {
		return nil, nil, fmt.Errorf("path is required")
	}

	content, err := s.store.Read(params.Path)
	s.finishTool(ctx, "read_file", params.Path, false, start, err)
	if err != nil {
		return nil, nil, SanitizeError(err, "read_file")
	}

	return NewTextResult(content), nil, nil
}

func (s *Server) handleReadFileFiltered(ctx context.Context, request *mcp_sdk.CallToolRequest, params *ReadFilteredParams) (*mcp_sdk.CallToolResult, any, error) {
	start := time.Now()
	if params.Path == "" {
		return nil, nil, fmt.Errorf("path is required")
	}

	result, err := s.store.ReadFiltered(ctx, params.Path, files.FilterOptions{
		Pattern:   params.FilterPattern,
		TailLines: params.TailLines,
		MaxLines:  params.MaxLines,
	})
	s.finishTool(ctx, "read_file_filtered", params.Path, false, start, err)
	if err != nil {
		return nil, nil, SanitizeError(err, "read_file_filtered")
	}

	out, err := NewJSONResult(result)
	if err != nil {
		return nil, nil, err
	}
	return out, result, nil
}

func (s *Server) handleWriteFile(ctx context.Context, request *mcp_sdk.CallToolRequest, params *WriteFileParams) (*mcp_sdk.CallToolResult, any, error) {
	start := time.Now()
	if params.Path == "" {
		return nil, nil, fmt.Errorf("path is required")
	}

	err := s.store.Write(params.Path, params.Content)
	s.finishTool(ctx, "write_file", params.Path, true, start, err)
	if err != nil {
		return nil, nil, SanitizeError(err, "write_file")
	}

	return NewTextResult(fmt.Sprintf("Wrote %d bytes to %s", len(params.Content), params.Path)), nil, nil
}

func (s *Server) handleCreateDirectory(ctx context.Context, request *mcp_sdk.CallToolRequest, params *PathParams) (*mcp_sdk.CallToolResult, any, error) {
	start := time.Now()
	if params.Path == "" {
		return nil, nil, fmt.Errorf("path is required")
	}

	err := s.store.CreateDirectory(params.Path)
	s.finishTool(ctx, "create_directory", params.Path, true, start, err)
	if err != nil {
		return nil, nil, SanitizeError(err, "create_directory")
	}

	return NewTextResult(fmt.Sprintf("Created directory %s", params.Path)), nil, nil
}

func (s *Server) handleDeletePath(ctx context.Context, request *mcp_sdk.CallToolRequest, params *PathParams) (*mcp_sdk.CallToolResult, any, error) {
	start := time.Now()
	if params.Path == "" {
		return nil, nil, fmt.Errorf("path is required")
	}

	err := s.store.Delete(params.Path)
	s.finishTool(ctx, "delete_path", params.Path, true, start, err)
	if err != nil {
		return nil, nil, SanitizeError(err, "delete_path")
	}

	return NewTextResult(fmt.Sprintf("Deleted %s", params.Path)), nil, nil
}

package mcp

import (
	"context"
	"fmt"
	"time"

	mcp_sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchParams is the params struct for the search_files tool
type SearchParams struct {
	Path       string `json:"path" description:"Directory to search, inside an allowed directory"`
	Pattern    string `json:"pattern" description:"Text to search for (case-insensitive)"`
	MaxResults int    `json:"max_results,omitempty" description:"Maximum matching files to return (default 100)"`
}

func (s *Server) handleSearchFiles(ctx context.Context, request *mcp_sdk.CallToolRequest, params *SearchParams) (*mcp_sdk.CallToolResult, any, error) {
	start := time.Now()
	if params.Path == "" {
		return nil, nil, fmt.Errorf("path is required")
	}
	if params.Pattern == "" {
		return nil, nil, fmt.Errorf("pattern is required")
	}

	result, err := s.searcher.Search(ctx, params.Path, params.Pattern, params.MaxResults)
	s.finishTool(ctx, "search_files", params.Path, false, start, err)
	if err != nil {
		return nil, nil, SanitizeError(err, "search_files")
	}

	out, err := NewJSONResult(result)
	if err != nil {
		return nil, nil, err
	}
	return out, result, nil
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/AndrewHuffman/hey-ai/internal/docfetch"
	"github.com/AndrewHuffman/hey-ai/internal/searcher"
	"github.com/AndrewHuffman/hey-ai/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32001 // Query parameter is empty
	ErrorCodeDocsNotFound  = -32002 // No documentation found for command
)

// handleSaveInteraction handles the save_interaction tool invocation
func (s *Server) handleSaveInteraction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	prompt, ok := args["prompt"].(string)
	if !ok || prompt == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "prompt parameter is required", map[string]interface{}{
			"param":  "prompt",
			"reason": "missing or empty",
		})
	}

	response, ok := args["response"].(string)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "response parameter is required", map[string]interface{}{
			"param":  "response",
			"reason": "missing",
		})
	}

	cwd := getStringDefault(args, "cwd", "")

	// The entry write must complete; the embedding attempt detaches so a
	// slow or down provider never stalls the save
	entry, err := s.recorder.AppendAsync(ctx, prompt, response, cwd)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to save interaction", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// New entries change rankings
	s.searcher.InvalidateCache()

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"saved":        true,
		"entry_id":     entry.ID,
		"timestamp_ms": entry.TimestampMS,
	})), nil
}

// handleRecentHistory handles the recent_history tool invocation
func (s *Server) handleRecentHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	entries, err := s.recorder.Recent(ctx, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load history", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		items[i] = entryJSON(e)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"count":   len(items),
		"entries": items,
	})), nil
}

// handleSearchHistory handles the search_history tool invocation
func (s *Server) handleSearchHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	searchMode := getStringDefault(args, "search_mode", "hybrid")
	if searchMode != "hybrid" && searchMode != "vector" && searchMode != "keyword" {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search_mode", map[string]interface{}{
			"param":   "search_mode",
			"value":   searchMode,
			"allowed": []string{"hybrid", "vector", "keyword"},
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:    query,
		Limit:    limit,
		Mode:     searcher.SearchMode(searchMode),
		UseCache: true,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = map[string]interface{}{
			"score":  r.Score,
			"origin": string(r.Origin),
			"entry":  entryJSON(r.Entry),
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":       query,
		"search_mode": searchMode,
		"count":       len(results),
		"duration_ms": resp.Duration.Milliseconds(),
		"cache_hit":   resp.CacheHit,
		"results":     results,
	})), nil
}

// handleCommandDocs handles the command_docs tool invocation
func (s *Server) handleCommandDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	command, ok := args["command"].(string)
	if !ok || command == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "command parameter is required", map[string]interface{}{
			"param":  "command",
			"reason": "missing or empty",
		})
	}

	key := docfetch.Canonicalize(command)
	if key == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "command parameter is empty after canonicalization", map[string]interface{}{
			"param": "command",
			"value": command,
		})
	}

	if content, source, ok := s.doccache.Get(key); ok {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"command": key,
			"source":  string(source),
			"cached":  true,
			"content": content,
		})), nil
	}

	content, source, err := s.fetcher.Fetch(ctx, command)
	if err != nil {
		return nil, newMCPError(ErrorCodeDocsNotFound, "no documentation found", map[string]interface{}{
			"command": key,
			"error":   err.Error(),
		})
	}

	if err := s.doccache.Set(key, content, source); err != nil {
		// A write failure only costs the next lookup a refetch
		s.logger.Printf("doc cache write failed for %q: %v", key, err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"command": key,
		"source":  string(source),
		"cached":  false,
		"content": content,
	})), nil
}

// handleBackfillEmbeddings handles the backfill_embeddings tool invocation
func (s *Server) handleBackfillEmbeddings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	batchSize := getIntDefault(args, "batch_size", 50)
	if batchSize < 1 || batchSize > 500 {
		return nil, newMCPError(ErrorCodeInvalidParams, "batch_size must be between 1 and 500", map[string]interface{}{
			"param": "batch_size",
			"value": batchSize,
		})
	}

	stats, err := s.recorder.Backfill(ctx, batchSize)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "backfill failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if stats.Embedded > 0 {
		s.searcher.InvalidateCache()
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"scanned":  stats.Scanned,
		"embedded": stats.Embedded,
		"failed":   stats.Failed,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.recorder.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	cacheBytes, err := s.doccache.TotalBytes()
	if err != nil {
		cacheBytes = -1
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"entries_count":        status.EntriesCount,
		"embeddings_count":     status.EmbeddingsCount,
		"database_size_mb":     fmt.Sprintf("%.2f", status.DatabaseSizeMB),
		"doc_cache_size_bytes": cacheBytes,
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// entryJSON renders an entry for tool responses
func entryJSON(e *types.Entry) map[string]interface{} {
	return map[string]interface{}{
		"id":           e.ID,
		"prompt":       e.Prompt,
		"response":     e.Response,
		"cwd":          e.WorkingDir,
		"timestamp_ms": e.TimestampMS,
	}
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// saveInteractionTool returns the tool definition for save_interaction
func saveInteractionTool() mcp.Tool {
	return mcp.Tool{
		Name:        "save_interaction",
		Description: "Record a prompt/response interaction in the history store",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "The user's prompt text",
				},
				"response": map[string]interface{}{
					"type":        "string",
					"description": "The assistant's response text",
				},
				"cwd": map[string]interface{}{
					"type":        "string",
					"description": "Working directory the interaction happened in",
					"default":     "",
				},
			},
			Required: []string{"prompt", "response"},
		},
	}
}

// recentHistoryTool returns the tool definition for recent_history
func recentHistoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "recent_history",
		Description: "Return the most recent interactions, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of entries to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
		},
	}
}

// searchHistoryTool returns the tool definition for search_history
func searchHistoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_history",
		Description: "Search interaction history with keyword, semantic, or hybrid ranking",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"search_mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: hybrid (keyword + vector), vector (semantic only), or keyword (BM25 only)",
					"enum":        []string{"hybrid", "vector", "keyword"},
					"default":     "hybrid",
				},
			},
			Required: []string{"query"},
		},
	}
}

// commandDocsTool returns the tool definition for command_docs
func commandDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "command_docs",
		Description: "Fetch documentation for a shell command, served from the local cache when possible",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"command": map[string]interface{}{
					"type":        "string",
					"description": "Command name or full command line (only the command itself is looked up)",
				},
			},
			Required: []string{"command"},
		},
	}
}

// backfillEmbeddingsTool returns the tool definition for backfill_embeddings
func backfillEmbeddingsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "backfill_embeddings",
		Description: "Generate embeddings for history entries recorded while the embedding provider was unavailable",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"batch_size": map[string]interface{}{
					"type":        "integer",
					"description": "Entries scanned per batch",
					"default":     50,
					"minimum":     1,
					"maximum":     500,
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report history store statistics: entry count, embedding coverage, database size",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

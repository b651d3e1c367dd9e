package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewHuffman/hey-ai/internal/doccache"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	// Deterministic offline provider regardless of host environment
	t.Setenv("HEYAI_EMBEDDING_PROVIDER", "local")

	tmp := t.TempDir()
	srv, err := NewServer(Config{
		DBPath:      filepath.Join(tmp, "history.db"),
		DocCacheDir: filepath.Join(tmp, "doccache"),
		Logger:      log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		srv.recorder.Wait()
		srv.doccache.WaitForEviction()
		_ = srv.storage.Close()
	})

	return srv
}

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// extractJSON decodes the text content of a tool result
func extractJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(tc.Text), &decoded))
	return decoded
}

func TestNewServerComponents(t *testing.T) {
	srv := newTestServer(t)

	assert.NotNil(t, srv.storage)
	assert.NotNil(t, srv.recorder)
	assert.NotNil(t, srv.searcher)
	assert.NotNil(t, srv.doccache)
	assert.NotNil(t, srv.fetcher)
}

func TestSaveAndSearchHistory(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	saveResult, err := srv.handleSaveInteraction(ctx, toolRequest(map[string]interface{}{
		"prompt":   "how to use find",
		"response": "use fd instead",
		"cwd":      "/x",
	}))
	require.NoError(t, err)

	saved := extractJSON(t, saveResult)
	assert.Equal(t, true, saved["saved"])
	assert.Greater(t, saved["entry_id"], float64(0))

	_, err = srv.handleSaveInteraction(ctx, toolRequest(map[string]interface{}{
		"prompt":   "unrelated",
		"response": "data",
	}))
	require.NoError(t, err)

	searchResult, err := srv.handleSearchHistory(ctx, toolRequest(map[string]interface{}{
		"query":       "find",
		"search_mode": "keyword",
	}))
	require.NoError(t, err)

	search := extractJSON(t, searchResult)
	assert.Equal(t, float64(1), search["count"])

	results := search["results"].([]interface{})
	first := results[0].(map[string]interface{})
	entry := first["entry"].(map[string]interface{})
	assert.Equal(t, "use fd instead", entry["response"])
	assert.Equal(t, "keyword", first["origin"])
}

func TestSaveInteractionRequiresPrompt(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.handleSaveInteraction(context.Background(), toolRequest(map[string]interface{}{
		"response": "orphan response",
	}))
	require.Error(t, err)

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestSearchHistoryValidation(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := srv.handleSearchHistory(ctx, toolRequest(map[string]interface{}{}))
	require.Error(t, err)

	_, err = srv.handleSearchHistory(ctx, toolRequest(map[string]interface{}{
		"query":       "q",
		"search_mode": "psychic",
	}))
	require.Error(t, err)

	_, err = srv.handleSearchHistory(ctx, toolRequest(map[string]interface{}{
		"query": "q",
		"limit": float64(1000),
	}))
	require.Error(t, err)
}

func TestRecentHistory(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	for _, p := range []string{"first", "second", "third"} {
		_, err := srv.handleSaveInteraction(ctx, toolRequest(map[string]interface{}{
			"prompt":   p,
			"response": "r",
		}))
		require.NoError(t, err)
	}

	result, err := srv.handleRecentHistory(ctx, toolRequest(map[string]interface{}{
		"limit": float64(2),
	}))
	require.NoError(t, err)

	recent := extractJSON(t, result)
	assert.Equal(t, float64(2), recent["count"])

	entries := recent["entries"].([]interface{})
	newest := entries[0].(map[string]interface{})
	assert.Equal(t, "third", newest["prompt"])
}

func TestCommandDocsServedFromCache(t *testing.T) {
	srv := newTestServer(t)

	require.NoError(t, srv.doccache.Set("tar", "tar - an archiving utility", doccache.SourceMan))
	srv.doccache.WaitForEviction()

	result, err := srv.handleCommandDocs(context.Background(), toolRequest(map[string]interface{}{
		"command": "tar -xzf archive.tar.gz",
	}))
	require.NoError(t, err)

	docs := extractJSON(t, result)
	assert.Equal(t, true, docs["cached"])
	assert.Equal(t, "tar", docs["command"])
	assert.Equal(t, "man", docs["source"])
	assert.Equal(t, "tar - an archiving utility", docs["content"])
}

func TestCommandDocsRequiresCommand(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.handleCommandDocs(context.Background(), toolRequest(map[string]interface{}{}))
	require.Error(t, err)
}

func TestBackfillEmbeddings(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := srv.handleSaveInteraction(ctx, toolRequest(map[string]interface{}{
		"prompt":   "p",
		"response": "r",
	}))
	require.NoError(t, err)

	// Embedding is detached from the save; drain it before scanning
	srv.recorder.Wait()

	result, err := srv.handleBackfillEmbeddings(ctx, toolRequest(map[string]interface{}{}))
	require.NoError(t, err)

	stats := extractJSON(t, result)
	// Local provider embeds every save, so nothing is pending
	assert.Equal(t, float64(0), stats["scanned"])
}

func TestGetStatus(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := srv.handleSaveInteraction(ctx, toolRequest(map[string]interface{}{
		"prompt":   "p",
		"response": "r",
	}))
	require.NoError(t, err)

	srv.recorder.Wait()

	result, err := srv.handleGetStatus(ctx, toolRequest(nil))
	require.NoError(t, err)

	status := extractJSON(t, result)
	assert.Equal(t, float64(1), status["entries_count"])
	assert.Equal(t, float64(1), status["embeddings_count"])
}

package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mark3labs/mcp-go/server"

	"github.com/AndrewHuffman/hey-ai/internal/doccache"
	"github.com/AndrewHuffman/hey-ai/internal/docfetch"
	"github.com/AndrewHuffman/hey-ai/internal/embedder"
	"github.com/AndrewHuffman/hey-ai/internal/recorder"
	"github.com/AndrewHuffman/hey-ai/internal/searcher"
	"github.com/AndrewHuffman/hey-ai/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "hey-ai"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Environment variables for server configuration
const (
	EnvDBPath         = "HEYAI_DB_PATH"
	EnvDocCacheDir    = "HEYAI_DOC_CACHE_DIR"
	EnvDocCacheBudget = "HEYAI_DOC_CACHE_BUDGET"
)

// Config holds server construction options. Zero values fall back to
// environment variables and then to paths under ~/.hey-ai.
type Config struct {
	DBPath         string
	DocCacheDir    string
	DocCacheBudget int64
	Logger         *log.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	recorder *recorder.Recorder
	searcher *searcher.Searcher
	doccache *doccache.Cache
	fetcher  *docfetch.Fetcher
	logger   *log.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = os.Getenv(EnvDBPath)
	}
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".hey-ai", "history.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	cacheDir := cfg.DocCacheDir
	if cacheDir == "" {
		cacheDir = os.Getenv(EnvDocCacheDir)
	}
	if cacheDir == "" {
		cacheDir = filepath.Join(filepath.Dir(dbPath), "doccache")
	}

	budget := cfg.DocCacheBudget
	if budget <= 0 {
		if v := os.Getenv(EnvDocCacheBudget); v != "" {
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", EnvDocCacheBudget, err)
			}
			budget = parsed
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	cache, err := doccache.New(cacheDir, budget, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize doc cache: %w", err)
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		storage:  store,
		recorder: recorder.NewRecorder(store, emb, logger),
		searcher: searcher.NewSearcher(store, emb, logger),
		doccache: cache,
		fetcher:  docfetch.NewFetcher(""),
		logger:   logger,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		s.recorder.Wait()
		s.doccache.WaitForEviction()
		_ = s.storage.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(saveInteractionTool(), s.handleSaveInteraction)
	s.mcp.AddTool(recentHistoryTool(), s.handleRecentHistory)
	s.mcp.AddTool(searchHistoryTool(), s.handleSearchHistory)
	s.mcp.AddTool(commandDocsTool(), s.handleCommandDocs)
	s.mcp.AddTool(backfillEmbeddingsTool(), s.handleBackfillEmbeddings)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

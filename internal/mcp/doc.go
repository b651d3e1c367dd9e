// Package mcp implements the Model Context Protocol (MCP) server for hey-ai.
//
// The server exposes the interaction history and documentation cache to
// MCP clients over stdio:
//   - save_interaction: Record a prompt/response pair
//   - recent_history: List the newest interactions
//   - search_history: Hybrid keyword + semantic search over past interactions
//   - command_docs: Fetch man/tldr documentation, cached on disk
//   - backfill_embeddings: Embed entries recorded while the provider was down
//   - get_status: Entry counts, embedding coverage, database size
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries protocol traffic exclusively; all logging goes to
// stderr.
//
// # Configuration
//
// The server reads its paths from the environment when not supplied in
// Config: HEYAI_DB_PATH for the SQLite history database,
// HEYAI_DOC_CACHE_DIR and HEYAI_DOC_CACHE_BUDGET for the documentation
// cache. Embedding provider selection is documented in the embedder
// package.
package mcp

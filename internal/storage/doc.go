// Package storage provides SQLite-based persistence for interaction history.
//
// The storage layer manages:
//   - The append-only entry log (prompts, responses, working directory)
//   - The FTS5 keyword index, kept in sync by an insert trigger
//   - Embedding vectors and the entry-id to vector-row-id mapping table
//
// # Database Schema
//
// Tables:
//   - entries: interaction records (append-only, never updated or deleted)
//   - entries_fts: FTS5 full-text index over prompt and response
//   - vectors: embedding vectors stored as little-endian float32 blobs
//   - embedding_map: explicit bridge between entry ids and vector row ids
//
// The keyword index is maintained transactionally with entry inserts: the
// entries_fts insert trigger runs inside the same transaction, so an entry
// cannot be committed without its keyword record.
//
// Entry ids and vector row ids are independently-assigned sequences. They are
// never assumed to stay numerically aligned; embedding_map is the only bridge
// between the two id spaces. An entry with no mapping is a valid state: it
// means embedding generation failed or hasn't run, and the entry is reachable
// through keyword search only.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.hey-ai/history.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	entry := &types.Entry{Prompt: "how to use find", Response: "use fd instead"}
//	if err := db.InsertEntry(ctx, entry); err != nil {
//	    return err // fatal: the write did not happen
//	}
//
//	rowID, err := db.InsertVector(ctx, vector)
//	if err == nil {
//	    err = db.MapEmbedding(ctx, entry.ID, rowID)
//	}
//
// # Search
//
// Keyword search returns raw FTS5 BM25 scores (negative, more negative is
// better); the fusion layer owns normalization. Unsupported or malformed
// query syntax silently degrades to a LIKE substring match with neutral
// score 0.
//
//	textResults, err := db.SearchText(ctx, "find command", 10)
//
// Vector search returns cosine distances in ascending order (closer is
// better) and an empty slice when no vectors are stored:
//
//	vecResults, err := db.SearchVector(ctx, queryVector, 10)
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Computes vector distance in SQL via the sqlite-vec extension
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec,fts5"
//
// Pure Go Build (default / purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - Brute-force vector scan in Go (fine for CLI-scale history)
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage

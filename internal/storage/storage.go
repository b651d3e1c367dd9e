package storage

import (
	"context"

	"github.com/AndrewHuffman/hey-ai/pkg/types"
)

// Storage defines the interface for persisting and querying interaction history
type Storage interface {
	// Entry operations
	InsertEntry(ctx context.Context, entry *types.Entry) error
	GetEntry(ctx context.Context, entryID int64) (*types.Entry, error)
	GetEntries(ctx context.Context, entryIDs []int64) ([]*types.Entry, error)
	RecentEntries(ctx context.Context, limit int) ([]*types.Entry, error)
	CountEntries(ctx context.Context) (int, error)

	// Keyword search: raw BM25 scores (negative, lower is better) from FTS5,
	// or neutral zero scores from the substring fallback path
	SearchText(ctx context.Context, query string, limit int) ([]TextResult, error)

	// Vector operations. InsertVector and MapEmbedding are deliberately
	// separate calls: the vector table assigns its own row ids, and the
	// embedding_map table is the only bridge between that id space and
	// entry ids.
	InsertVector(ctx context.Context, vector []float32) (int64, error)
	MapEmbedding(ctx context.Context, entryID, vectorRowID int64) error
	SearchVector(ctx context.Context, queryVector []float32, limit int) ([]VectorResult, error)
	HasEmbedding(ctx context.Context, entryID int64) (bool, error)
	EntriesWithoutEmbeddings(ctx context.Context, limit int) ([]*types.Entry, error)
	CountEmbeddings(ctx context.Context) (int, error)

	// Database operations
	GetStatus(ctx context.Context) (*Status, error)
	Close() error
}

// TextResult represents a result from full-text search.
// BM25Score follows the FTS5 convention: negative, with more negative values
// indicating better matches. Results from the LIKE fallback carry score 0.
type TextResult struct {
	EntryID   int64
	BM25Score float64
}

// VectorResult represents a result from vector similarity search.
// Distance is cosine distance (1 - cosine similarity), lower is closer.
type VectorResult struct {
	EntryID  int64
	Distance float64
}

// Status contains statistics about the history database
type Status struct {
	EntriesCount    int
	EmbeddingsCount int
	DatabaseSizeMB  float64
}

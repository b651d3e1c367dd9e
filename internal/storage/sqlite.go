package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AndrewHuffman/hey-ai/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrDimensionMismatch is returned when a vector's length doesn't match
	// the dimension of vectors already stored
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Entry operations

// InsertEntry appends a new interaction record. The FTS insert trigger runs
// in the same transaction as the row insert, so the entry and its keyword
// index record commit together or not at all.
func (s *SQLiteStorage) InsertEntry(ctx context.Context, entry *types.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	if entry.TimestampMS == 0 {
		entry.TimestampMS = time.Now().UnixMilli()
	}

	query := `
		INSERT INTO entries (prompt, response, cwd, created_at_ms)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		entry.Prompt, entry.Response, entry.WorkingDir, entry.TimestampMS)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

// GetEntry retrieves a single entry by id
func (s *SQLiteStorage) GetEntry(ctx context.Context, entryID int64) (*types.Entry, error) {
	query := `
		SELECT id, prompt, response, cwd, created_at_ms
		FROM entries
		WHERE id = ?
	`
	var entry types.Entry
	err := s.db.QueryRowContext(ctx, query, entryID).Scan(
		&entry.ID, &entry.Prompt, &entry.Response, &entry.WorkingDir, &entry.TimestampMS,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetEntries retrieves entries matching the given ids. Missing ids are
// silently omitted; result order is unspecified.
func (s *SQLiteStorage) GetEntries(ctx context.Context, entryIDs []int64) ([]*types.Entry, error) {
	if len(entryIDs) == 0 {
		return []*types.Entry{}, nil
	}

	placeholders := make([]string, len(entryIDs))
	args := make([]interface{}, len(entryIDs))
	for i, id := range entryIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT id, prompt, response, cwd, created_at_ms
		FROM entries
		WHERE id IN (` + strings.Join(placeholders, ",") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// RecentEntries returns the most recent entries, newest first.
// Insertion order defines recency order, so this sorts by id.
func (s *SQLiteStorage) RecentEntries(ctx context.Context, limit int) ([]*types.Entry, error) {
	if limit <= 0 {
		return []*types.Entry{}, nil
	}

	query := `
		SELECT id, prompt, response, cwd, created_at_ms
		FROM entries
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// CountEntries returns the number of stored entries
func (s *SQLiteStorage) CountEntries(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count)
	return count, err
}

func scanEntries(rows *sql.Rows) ([]*types.Entry, error) {
	entries := make([]*types.Entry, 0)
	for rows.Next() {
		var entry types.Entry
		err := rows.Scan(&entry.ID, &entry.Prompt, &entry.Response, &entry.WorkingDir, &entry.TimestampMS)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Vector operations

// InsertVector stores an embedding vector and returns the row id assigned by
// the vector table. Callers must record the (entryID, vectorRowID) pair via
// MapEmbedding as a separate step; this method knows nothing about entries.
func (s *SQLiteStorage) InsertVector(ctx context.Context, vector []float32) (int64, error) {
	if len(vector) == 0 {
		return 0, fmt.Errorf("empty vector")
	}

	blob := serializeVector(vector)
	result, err := s.db.ExecContext(ctx,
		"INSERT INTO vectors (vector, dimension) VALUES (?, ?)",
		blob, len(vector))
	if err != nil {
		return 0, fmt.Errorf("failed to insert vector: %w", err)
	}

	rowID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return rowID, nil
}

// MapEmbedding records the bridge between an entry id and a vector row id
func (s *SQLiteStorage) MapEmbedding(ctx context.Context, entryID, vectorRowID int64) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO embedding_map (entry_id, vector_row_id) VALUES (?, ?)",
		entryID, vectorRowID)
	if err != nil {
		return fmt.Errorf("failed to map embedding: %w", err)
	}
	return nil
}

// HasEmbedding reports whether the entry has a mapped embedding vector
func (s *SQLiteStorage) HasEmbedding(ctx context.Context, entryID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM embedding_map WHERE entry_id = ?", entryID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// EntriesWithoutEmbeddings returns entries with no mapped vector, oldest
// first, up to limit. Used by the embedding backfill pass.
func (s *SQLiteStorage) EntriesWithoutEmbeddings(ctx context.Context, limit int) ([]*types.Entry, error) {
	if limit <= 0 {
		return []*types.Entry{}, nil
	}

	query := `
		SELECT e.id, e.prompt, e.response, e.cwd, e.created_at_ms
		FROM entries e
		LEFT JOIN embedding_map m ON e.id = m.entry_id
		WHERE m.entry_id IS NULL
		ORDER BY e.id
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// CountEmbeddings returns the number of mapped embedding vectors
func (s *SQLiteStorage) CountEmbeddings(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embedding_map").Scan(&count)
	return count, err
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, queryVector []float32, limit int) ([]VectorResult, error) {
	// Implementation in vector_ops.go
	return searchVector(ctx, s.db, queryVector, limit)
}

func (s *SQLiteStorage) SearchText(ctx context.Context, query string, limit int) ([]TextResult, error) {
	// Implementation in vector_ops.go
	return searchText(ctx, s.db, query, limit)
}

// GetStatus returns statistics about the history database
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{}

	var err error
	if status.EntriesCount, err = s.CountEntries(ctx); err != nil {
		return nil, err
	}
	if status.EmbeddingsCount, err = s.CountEmbeddings(ctx); err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

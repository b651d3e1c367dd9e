package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// searchVector performs nearest-neighbor search over mapped embedding vectors,
// returning entry ids in ascending cosine distance order
func searchVector(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]VectorResult, error) {
	// Use optimized SQL-based search when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, db, queryVector, limit)
	}
	// Fall back to Go-based computation for purego builds
	return searchVectorFallback(ctx, db, queryVector, limit)
}

// searchVectorOptimized uses the sqlite-vec extension to compute distances
// at the database layer
func searchVectorOptimized(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]VectorResult, error) {
	if limit <= 0 {
		return []VectorResult{}, nil
	}

	queryVectorBlob := serializeVector(queryVector)

	// Only vectors reachable through embedding_map participate; orphaned
	// vector rows (mapping write failed) are invisible to search.
	query := `
		SELECT
			m.entry_id,
			vec_distance_cosine(v.vector, ?) as distance
		FROM vectors v
		INNER JOIN embedding_map m ON v.row_id = m.vector_row_id
		WHERE v.dimension = ?
		ORDER BY distance ASC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, queryVectorBlob, len(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var result VectorResult
		if err := rows.Scan(&result.EntryID, &result.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// searchVectorFallback scans all mapped vectors and computes cosine distance
// in Go. Used when the sqlite-vec extension is not available (purego builds).
func searchVectorFallback(ctx context.Context, db *sql.DB, queryVector []float32, limit int) ([]VectorResult, error) {
	query := `
		SELECT m.entry_id, v.vector
		FROM vectors v
		INNER JOIN embedding_map m ON v.row_id = m.vector_row_id
	`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]VectorResult, 0, 256)
	for rows.Next() {
		var entryID int64
		var vectorBlob []byte
		if err := rows.Scan(&entryID, &vectorBlob); err != nil {
			return nil, err
		}

		vector := deserializeVector(vectorBlob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		distance := 1.0 - cosineSimilarity(queryVector, vector)
		candidates = append(candidates, VectorResult{EntryID: entryID, Distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Sort by distance (ascending: closer is better)
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].EntryID < candidates[j].EntryID
	})

	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit], nil
}

// searchText performs BM25 full-text search using FTS5, returning raw scores
// (negative, more negative is better). Queries that sanitize to nothing, or
// that still trip FTS5 syntax errors, fall back to a LIKE substring match
// with neutral score 0 rather than surfacing an error.
func searchText(ctx context.Context, db *sql.DB, query string, limit int) ([]TextResult, error) {
	if limit <= 0 {
		return []TextResult{}, nil
	}

	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return searchTextSubstring(ctx, db, query, limit)
	}

	sqlQuery := `
		SELECT
			entries_fts.rowid as entry_id,
			bm25(entries_fts) as score
		FROM entries_fts
		WHERE entries_fts MATCH ?
		ORDER BY score
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, sqlQuery, sanitized, limit)
	if err != nil {
		// Malformed queries must not raise to the caller
		return searchTextSubstring(ctx, db, query, limit)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0, limit)
	for rows.Next() {
		var result TextResult
		if err := rows.Scan(&result.EntryID, &result.BM25Score); err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, rows.Err()
}

// searchTextSubstring is the degraded path: literal substring match over
// prompt and response with neutral scores
func searchTextSubstring(ctx context.Context, db *sql.DB, query string, limit int) ([]TextResult, error) {
	needle := strings.TrimSpace(query)
	if needle == "" {
		return []TextResult{}, nil
	}

	pattern := "%" + escapeLikePattern(needle) + "%"
	sqlQuery := `
		SELECT id FROM entries
		WHERE prompt LIKE ? ESCAPE '\' OR response LIKE ? ESCAPE '\'
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, sqlQuery, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute substring search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0, limit)
	for rows.Next() {
		var result TextResult
		if err := rows.Scan(&result.EntryID); err != nil {
			return nil, err
		}
		result.BM25Score = 0
		results = append(results, result)
	}

	return results, rows.Err()
}

// escapeLikePattern escapes LIKE wildcards in a literal substring
func escapeLikePattern(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	)
	return replacer.Replace(s)
}

// sanitizeFTSQuery reduces a raw query to the subset of FTS5 syntax this
// package supports: bare terms. Rather than escaping the full operator
// grammar, it tokenizes on an allow-list (letters, digits, underscore) so
// quotes, parens, NEAR, column filters, and other reserved syntax can never
// reach the FTS engine. Returns "" when no searchable terms remain.
func sanitizeFTSQuery(query string) string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range query {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return strings.Join(tokens, " ")
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}

// SanitizeFTSQuery is an exported helper for testing
func SanitizeFTSQuery(query string) string {
	return sanitizeFTSQuery(query)
}

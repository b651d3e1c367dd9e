package types

// SearchOrigin identifies which index (or indexes) produced a search result.
type SearchOrigin string

const (
	// OriginKeyword means the result matched only the full-text index.
	OriginKeyword SearchOrigin = "keyword"
	// OriginVector means the result matched only the vector index.
	OriginVector SearchOrigin = "vector"
	// OriginBoth means both indexes agreed on the result.
	OriginBoth SearchOrigin = "both"
)

// SearchResult represents a single search result with relevance information
type SearchResult struct {
	// Entry is the matched interaction record.
	Entry *Entry

	// Score is the fused relevance score, always in [0, 1], higher is better.
	Score float64

	// Origin records which index produced the match.
	Origin SearchOrigin
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Entry == nil {
		return ErrMissingEntry
	}

	if sr.Score < 0 || sr.Score > 1 {
		return ErrInvalidScore
	}

	switch sr.Origin {
	case OriginKeyword, OriginVector, OriginBoth:
	default:
		return ErrInvalidOrigin
	}

	return nil
}

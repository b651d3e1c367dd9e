// Package searcher implements hybrid history search combining vector
// similarity and keyword matching.
//
// The searcher provides three search modes:
//   - Hybrid: Combines BM25 keyword + vector search with score fusion (recommended)
//   - Vector: Pure semantic search using embeddings
//   - Keyword: BM25 full-text search only
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, emb, nil)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query: "how to list open ports",
//	    Limit: 10,
//	    Mode:  searcher.SearchModeHybrid,
//	})
//
//	for _, result := range resp.Results {
//	    fmt.Printf("%.2f [%s] %s\n", result.Score, result.Origin, result.Entry.Prompt)
//	}
//
// # Score Fusion
//
// The keyword index reports BM25 scores (negative, more negative is more
// relevant) and the vector index reports cosine distances (ascending,
// closer is better). The two signals live in incompatible units, so each
// is min-max normalized per query into [0,1]:
//
//	keyword: 1 - |score| / max(|score|)
//	vector:  1 - distance / max(distance)
//
// An entry found by both signals receives the average of its two
// normalized scores plus a fixed +0.2 agreement boost, clamped to 1.0.
// All returned scores lie in [0,1]. Ordering is deterministic: score
// descending with entry id ascending on ties.
//
// When one method returns a single candidate, or all candidates share an
// identical score, min-max normalization degenerates and every candidate
// present normalizes to 1. This is a documented limitation of per-query
// normalization, not an error.
//
// # Degradation
//
// If the embedding provider is unavailable during a hybrid search, the
// failure is logged and results degrade to keyword-only. Hybrid search
// errors only when both indexes fail.
package searcher

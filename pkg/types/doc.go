// Package types provides shared type definitions for the hey-ai history engine.
//
// This package defines the domain types that cross component boundaries:
// recorded interaction entries and fused search results.
//
// # Core Types
//
// Entry represents one recorded interaction:
//
//	entry := &types.Entry{
//	    Prompt:     "how do I list open ports",
//	    Response:   "use `ss -tlnp` or `lsof -i`",
//	    WorkingDir: "/home/dev/project",
//	}
//
// SearchResult pairs an Entry with its fused relevance score and the origin
// of the match (keyword index, vector index, or both):
//
//	for _, r := range results {
//	    fmt.Printf("%.2f [%s] %s\n", r.Score, r.Origin, r.Entry.Prompt)
//	}
//
// Fused scores are always in [0, 1]; results from both indexes receive an
// agreement boost during fusion, so Origin "both" generally outranks a
// single-index match for comparable raw relevance.
package types

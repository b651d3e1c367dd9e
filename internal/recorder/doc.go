// Package recorder owns the write path of the interaction history: it
// appends entries, attaches embeddings on a best-effort basis, and
// backfills embeddings for entries recorded while the provider was
// unavailable.
package recorder

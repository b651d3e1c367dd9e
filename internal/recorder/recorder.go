package recorder

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AndrewHuffman/hey-ai/internal/embedder"
	"github.com/AndrewHuffman/hey-ai/internal/storage"
	"github.com/AndrewHuffman/hey-ai/pkg/types"
)

// DefaultBackfillWorkers bounds concurrent embedding requests during a
// backfill pass.
const DefaultBackfillWorkers = 4

// asyncEmbedTimeout bounds a detached embedding attempt started by
// AppendAsync.
const asyncEmbedTimeout = 30 * time.Second

// Recorder appends interactions to the history store and attaches
// embeddings when the provider cooperates. The entry write and its
// keyword index record are synchronous; embedding failures are logged
// and discarded, never surfaced to the caller.
type Recorder struct {
	storage  storage.Storage
	embedder embedder.Embedder
	logger   *log.Logger
	wg       sync.WaitGroup
}

// BackfillStats summarizes one backfill pass
type BackfillStats struct {
	Scanned  int
	Embedded int
	Failed   int
}

// NewRecorder creates a Recorder. A nil logger falls back to the default
// logger.
func NewRecorder(store storage.Storage, emb embedder.Embedder, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	return &Recorder{
		storage:  store,
		embedder: emb,
		logger:   logger,
	}
}

// Append persists one interaction and returns the stored entry with its
// assigned id. The insert (and the keyword index record it carries) must
// succeed; a failed embedding only costs semantic recall for this entry
// and is not retried.
func (r *Recorder) Append(ctx context.Context, prompt, response, cwd string) (*types.Entry, error) {
	entry := &types.Entry{
		Prompt:     prompt,
		Response:   response,
		WorkingDir: cwd,
	}

	if err := r.storage.InsertEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append entry: %w", err)
	}

	if err := r.embedEntry(ctx, entry); err != nil {
		r.logger.Printf("embedding skipped for entry %d: %v", entry.ID, err)
	}

	return entry, nil
}

// AppendAsync persists the interaction synchronously but detaches the
// embedding step into a background goroutine, so the caller returns as
// soon as the entry is durable. The detached attempt outlives the
// caller's context; use Wait to drain pending attempts before shutdown.
func (r *Recorder) AppendAsync(ctx context.Context, prompt, response, cwd string) (*types.Entry, error) {
	entry := &types.Entry{
		Prompt:     prompt,
		Response:   response,
		WorkingDir: cwd,
	}

	if err := r.storage.InsertEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append entry: %w", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), asyncEmbedTimeout)
		defer cancel()
		if err := r.embedEntry(ectx, entry); err != nil {
			r.logger.Printf("embedding skipped for entry %d: %v", entry.ID, err)
		}
	}()

	return entry, nil
}

// Wait blocks until all detached embedding attempts have finished
func (r *Recorder) Wait() {
	r.wg.Wait()
}

// Recent returns up to limit entries, most recent first
func (r *Recorder) Recent(ctx context.Context, limit int) ([]*types.Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.storage.RecentEntries(ctx, limit)
}

// Status reports entry and embedding counts plus database size
func (r *Recorder) Status(ctx context.Context) (*storage.Status, error) {
	return r.storage.GetStatus(ctx)
}

// Backfill embeds entries that have no embedding yet, batchSize at a
// time, until none remain or ctx is canceled. Individual embedding
// failures are counted and skipped; those entries stay eligible for a
// later pass.
func (r *Recorder) Backfill(ctx context.Context, batchSize int) (*BackfillStats, error) {
	if batchSize <= 0 {
		batchSize = 50
	}

	stats := &BackfillStats{}

	for {
		entries, err := r.storage.EntriesWithoutEmbeddings(ctx, batchSize)
		if err != nil {
			return stats, fmt.Errorf("scan entries without embeddings: %w", err)
		}
		if len(entries) == 0 {
			break
		}
		stats.Scanned += len(entries)

		var embedded, failed int32
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(DefaultBackfillWorkers)

		for _, entry := range entries {
			g.Go(func() error {
				if err := r.embedEntry(gctx, entry); err != nil {
					atomic.AddInt32(&failed, 1)
					r.logger.Printf("backfill: entry %d: %v", entry.ID, err)
					return nil
				}
				atomic.AddInt32(&embedded, 1)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return stats, err
		}

		stats.Embedded += int(atomic.LoadInt32(&embedded))
		stats.Failed += int(atomic.LoadInt32(&failed))

		if ctx.Err() != nil {
			break
		}
		// A batch where nothing embedded would spin on the same
		// entries forever
		if embedded == 0 {
			break
		}
		if len(entries) < batchSize {
			break
		}
	}

	return stats, nil
}

// embedEntry generates an embedding for the entry text, inserts the
// vector, and writes the entry id to vector row id mapping.
func (r *Recorder) embedEntry(ctx context.Context, entry *types.Entry) error {
	emb, err := r.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
		Text: entry.EmbeddingText(),
	})
	if err != nil {
		return fmt.Errorf("generate embedding: %w", err)
	}

	rowID, err := r.storage.InsertVector(ctx, emb.Vector)
	if err != nil {
		return fmt.Errorf("insert vector: %w", err)
	}

	if err := r.storage.MapEmbedding(ctx, entry.ID, rowID); err != nil {
		return fmt.Errorf("map embedding: %w", err)
	}

	return nil
}

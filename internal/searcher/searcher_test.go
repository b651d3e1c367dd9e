package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AndrewHuffman/hey-ai/internal/embedder"
	"github.com/AndrewHuffman/hey-ai/internal/storage"
	"github.com/AndrewHuffman/hey-ai/pkg/types"
)

// mockEmbedder implements the Embedder interface for testing
type mockEmbedder struct {
	generateFunc func(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error)
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}

	// Default mock: unit vector along the first axis
	return &embedder.Embedding{
		Vector:    []float32{1, 0, 0},
		Dimension: 3,
		Model:     "mock-model",
		Provider:  "mock",
		Hash:      "mock-hash",
	}, nil
}

func (m *mockEmbedder) Dimension() int {
	return 3
}

func (m *mockEmbedder) Provider() string {
	return "mock"
}

func (m *mockEmbedder) Model() string {
	return "mock-model"
}

func (m *mockEmbedder) Close() error {
	return nil
}

// setupTestSearcher creates a searcher with in-memory storage and mock embedder
func setupTestSearcher(t *testing.T) (*Searcher, storage.Storage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	return NewSearcher(store, &mockEmbedder{}, nil), store
}

func appendEntry(t *testing.T, store storage.Storage, prompt, response string) *types.Entry {
	t.Helper()
	entry := &types.Entry{Prompt: prompt, Response: response, WorkingDir: "/test"}
	if err := store.InsertEntry(context.Background(), entry); err != nil {
		t.Fatalf("failed to insert entry: %v", err)
	}
	return entry
}

func embedEntry(t *testing.T, store storage.Storage, entryID int64, vector []float32) {
	t.Helper()
	ctx := context.Background()
	rowID, err := store.InsertVector(ctx, vector)
	if err != nil {
		t.Fatalf("failed to insert vector: %v", err)
	}
	if err := store.MapEmbedding(ctx, entryID, rowID); err != nil {
		t.Fatalf("failed to map embedding: %v", err)
	}
}

func TestNewSearcher(t *testing.T) {
	s, _ := setupTestSearcher(t)
	if s == nil {
		t.Fatal("NewSearcher returned nil")
	}
}

func TestKeywordSearch(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	appendEntry(t, store, "how to use find", "use fd instead")
	appendEntry(t, store, "unrelated", "data")

	resp, err := s.Search(ctx, SearchRequest{Query: "find", Limit: 5, Mode: SearchModeKeyword})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(resp.Results))
	}
	if resp.Results[0].Entry.Response != "use fd instead" {
		t.Errorf("response = %q, want %q", resp.Results[0].Entry.Response, "use fd instead")
	}
	if resp.Results[0].Origin != types.OriginKeyword {
		t.Errorf("origin = %q, want %q", resp.Results[0].Origin, types.OriginKeyword)
	}
}

func TestVectorSearchEmptyIndex(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	appendEntry(t, store, "some prompt", "some response")

	resp, err := s.Search(ctx, SearchRequest{Query: "anything", Limit: 5, Mode: SearchModeVector})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 0 {
		t.Errorf("got %d results from empty vector index, want 0", len(resp.Results))
	}
}

func TestHybridSearchAgreementBoost(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	// Entry found by both keyword and vector search
	both := appendEntry(t, store, "docker compose restart policy", "use restart: always")
	// Entry found by keyword only
	appendEntry(t, store, "docker volume cleanup", "docker volume prune")
	// Entry found by vector only
	vecOnly := appendEntry(t, store, "container orchestration", "kubernetes basics")

	embedEntry(t, store, both.ID, []float32{1, 0, 0})
	embedEntry(t, store, vecOnly.ID, []float32{0.9, 0.1, 0})

	resp, err := s.Search(ctx, SearchRequest{Query: "docker", Limit: 10, Mode: SearchModeHybrid})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	var bothResult *types.SearchResult
	for i := range resp.Results {
		if resp.Results[i].Entry.ID == both.ID {
			bothResult = &resp.Results[i]
		}
	}
	if bothResult == nil {
		t.Fatal("doubly-matched entry missing from results")
	}
	if bothResult.Origin != types.OriginBoth {
		t.Errorf("origin = %q, want %q", bothResult.Origin, types.OriginBoth)
	}

	// The agreement boost must place the doubly-matched entry at or
	// above any singly-matched entry's score.
	for _, r := range resp.Results {
		if r.Origin != types.OriginBoth && r.Score > bothResult.Score {
			t.Errorf("singly-matched entry %d (%.3f) outranks doubly-matched (%.3f)",
				r.Entry.ID, r.Score, bothResult.Score)
		}
	}
}

func TestHybridSearchScoresInRange(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	a := appendEntry(t, store, "git rebase interactive", "git rebase -i HEAD~3")
	b := appendEntry(t, store, "git stash usage", "git stash pop")
	appendEntry(t, store, "git log formatting", "git log --oneline")

	embedEntry(t, store, a.ID, []float32{1, 0, 0})
	embedEntry(t, store, b.ID, []float32{0, 1, 0})

	resp, err := s.Search(ctx, SearchRequest{Query: "git", Limit: 10, Mode: SearchModeHybrid})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	for _, r := range resp.Results {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("score %.4f for entry %d outside [0,1]", r.Score, r.Entry.ID)
		}
	}
}

func TestHybridSearchDegradesWhenEmbedderFails(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	failing := &mockEmbedder{
		generateFunc: func(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
			return nil, errors.New("provider down")
		},
	}
	s := NewSearcher(store, failing, nil)
	ctx := context.Background()

	appendEntry(t, store, "how to use find", "use fd instead")
	appendEntry(t, store, "unrelated", "data")

	hybrid, err := s.Search(ctx, SearchRequest{Query: "find", Limit: 5, Mode: SearchModeHybrid})
	if err != nil {
		t.Fatalf("hybrid search errored instead of degrading: %v", err)
	}

	keyword, err := s.Search(ctx, SearchRequest{Query: "find", Limit: 5, Mode: SearchModeKeyword})
	if err != nil {
		t.Fatalf("keyword search error = %v", err)
	}

	if len(hybrid.Results) != len(keyword.Results) {
		t.Fatalf("degraded hybrid returned %d results, keyword %d", len(hybrid.Results), len(keyword.Results))
	}
	for i := range hybrid.Results {
		if hybrid.Results[i].Entry.ID != keyword.Results[i].Entry.ID {
			t.Errorf("result %d: hybrid entry %d != keyword entry %d",
				i, hybrid.Results[i].Entry.ID, keyword.Results[i].Entry.ID)
		}
		if hybrid.Results[i].Origin != types.OriginKeyword {
			t.Errorf("result %d origin = %q, want %q", i, hybrid.Results[i].Origin, types.OriginKeyword)
		}
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s, _ := setupTestSearcher(t)

	_, err := s.Search(context.Background(), SearchRequest{Query: "", Limit: 5})
	if err == nil {
		t.Error("expected error for empty query")
	}
}

func TestSearchCacheHit(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	appendEntry(t, store, "cached query target", "response body")

	req := SearchRequest{
		Query:    "cached",
		Limit:    5,
		Mode:     SearchModeKeyword,
		UseCache: true,
		CacheTTL: time.Minute,
	}

	first, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	if first.CacheHit {
		t.Error("first search should not be a cache hit")
	}

	second, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if !second.CacheHit {
		t.Error("second search should be a cache hit")
	}
	if len(second.Results) != len(first.Results) {
		t.Errorf("cached results differ: %d vs %d", len(second.Results), len(first.Results))
	}
}

func TestInvalidateCache(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	appendEntry(t, store, "invalidation target", "response")

	req := SearchRequest{
		Query:    "invalidation",
		Limit:    5,
		Mode:     SearchModeKeyword,
		UseCache: true,
		CacheTTL: time.Minute,
	}

	if _, err := s.Search(ctx, req); err != nil {
		t.Fatalf("first search: %v", err)
	}

	s.InvalidateCache()

	resp, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search after invalidation: %v", err)
	}
	if resp.CacheHit {
		t.Error("search after InvalidateCache should miss the cache")
	}
}

func TestValidateRequestDefaults(t *testing.T) {
	s, _ := setupTestSearcher(t)

	req := SearchRequest{Query: "q"}
	if err := s.validateRequest(&req); err != nil {
		t.Fatalf("validateRequest() error = %v", err)
	}

	if req.Limit != 10 {
		t.Errorf("default limit = %d, want 10", req.Limit)
	}
	if req.Mode != SearchModeHybrid {
		t.Errorf("default mode = %q, want %q", req.Mode, SearchModeHybrid)
	}

	req = SearchRequest{Query: "q", Limit: 500}
	_ = s.validateRequest(&req)
	if req.Limit != 100 {
		t.Errorf("capped limit = %d, want 100", req.Limit)
	}
}

func TestFuseResults(t *testing.T) {
	tests := []struct {
		name    string
		text    []storage.TextResult
		vector  []storage.VectorResult
		wantIDs []int64
		wantTop float64
	}{
		{
			name:    "empty inputs",
			wantIDs: []int64{},
		},
		{
			name: "keyword only normalization",
			text: []storage.TextResult{
				{EntryID: 1, BM25Score: -4.0},
				{EntryID: 2, BM25Score: -2.0},
			},
			// best match (-4.0) normalizes to 0, weaker (-2.0) to 0.5
			wantIDs: []int64{2, 1},
			wantTop: 0.5,
		},
		{
			name: "degenerate keyword scores normalize to one",
			text: []storage.TextResult{
				{EntryID: 1, BM25Score: 0},
				{EntryID: 2, BM25Score: 0},
			},
			wantIDs: []int64{1, 2},
			wantTop: 1.0,
		},
		{
			name: "vector only normalization",
			vector: []storage.VectorResult{
				{EntryID: 3, Distance: 0.2},
				{EntryID: 4, Distance: 0.8},
			},
			// closest (0.2) gets 1 - 0.2/0.8 = 0.75, farthest gets 0
			wantIDs: []int64{3, 4},
			wantTop: 0.75,
		},
		{
			name: "agreement boost and clamp",
			text: []storage.TextResult{
				{EntryID: 1, BM25Score: -1.0},
				{EntryID: 2, BM25Score: -2.0},
			},
			vector: []storage.VectorResult{
				{EntryID: 1, Distance: 0.1},
				{EntryID: 5, Distance: 0.5},
			},
			// entry 1: kw 0.5, vec 0.8 -> (0.5+0.8)/2 + 0.2 = 0.85
			wantIDs: []int64{1, 2, 5},
			wantTop: 0.85,
		},
		{
			name: "tie broken by entry id ascending",
			text: []storage.TextResult{
				{EntryID: 9, BM25Score: 0},
				{EntryID: 3, BM25Score: 0},
			},
			wantIDs: []int64{3, 9},
			wantTop: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fused := fuseResults(tt.text, tt.vector)

			if len(fused) != len(tt.wantIDs) {
				t.Fatalf("got %d results, want %d", len(fused), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if fused[i].entryID != want {
					t.Errorf("position %d: entry %d, want %d", i, fused[i].entryID, want)
				}
			}
			if len(fused) > 0 {
				if diff := fused[0].score - tt.wantTop; diff > 1e-9 || diff < -1e-9 {
					t.Errorf("top score = %v, want %v", fused[0].score, tt.wantTop)
				}
			}
			for _, fr := range fused {
				if fr.score < 0 || fr.score > 1 {
					t.Errorf("score %v outside [0,1]", fr.score)
				}
			}
		})
	}
}

func TestFuseResultsClampAtOne(t *testing.T) {
	text := []storage.TextResult{
		{EntryID: 1, BM25Score: 0},
	}
	vector := []storage.VectorResult{
		{EntryID: 1, Distance: 0},
	}

	// Both degenerate cases normalize to 1; (1+1)/2 + 0.2 clamps to 1.0
	fused := fuseResults(text, vector)
	if len(fused) != 1 {
		t.Fatalf("got %d results, want 1", len(fused))
	}
	if fused[0].score != 1.0 {
		t.Errorf("score = %v, want exactly 1.0", fused[0].score)
	}
	if fused[0].origin != types.OriginBoth {
		t.Errorf("origin = %q, want %q", fused[0].origin, types.OriginBoth)
	}
}

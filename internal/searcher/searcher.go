package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AndrewHuffman/hey-ai/internal/embedder"
	"github.com/AndrewHuffman/hey-ai/internal/storage"
	"github.com/AndrewHuffman/hey-ai/pkg/types"
)

// SearchMode defines how search is performed
type SearchMode string

const (
	SearchModeHybrid  SearchMode = "hybrid"  // Keyword + vector with score fusion
	SearchModeVector  SearchMode = "vector"  // Vector similarity only
	SearchModeKeyword SearchMode = "keyword" // BM25 text search only
)

// AgreementBoost is added to the averaged score when an entry is found by
// both the keyword and vector indexes. The fused score is clamped to 1.0.
const AgreementBoost = 0.2

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query    string
	Limit    int
	Mode     SearchMode
	UseCache bool // Whether to use query cache
	CacheTTL time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results       []types.SearchResult
	TotalResults  int
	SearchMode    SearchMode
	Duration      time.Duration
	CacheHit      bool
	VectorResults int
	TextResults   int
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher coordinates search across the keyword and vector indexes and
// fuses their scores into one ranked list.
type Searcher struct {
	storage  storage.Storage
	embedder embedder.Embedder
	logger   *log.Logger
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewSearcher creates a new Searcher instance
func NewSearcher(storage storage.Storage, embedder embedder.Embedder, logger *log.Logger) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](1000)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	if logger == nil {
		logger = log.Default()
	}

	return &Searcher{
		storage:  storage,
		embedder: embedder,
		logger:   logger,
		cache:    cache,
	}
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	var response *SearchResponse
	var err error

	switch req.Mode {
	case SearchModeHybrid:
		response, err = s.hybridSearch(ctx, req)
	case SearchModeVector:
		response, err = s.vectorSearch(ctx, req)
	case SearchModeKeyword:
		response, err = s.keywordSearch(ctx, req)
	default:
		return nil, fmt.Errorf("unsupported search mode: %s", req.Mode)
	}

	if err != nil {
		return nil, err
	}

	response.Duration = time.Since(startTime)
	response.SearchMode = req.Mode

	if req.UseCache && len(response.Results) > 0 {
		s.storeInCache(req, response)
	}

	return response, nil
}

// searchOutcome holds results from concurrent index reads
type searchOutcome struct {
	vectorResults []storage.VectorResult
	textResults   []storage.TextResult
	err           error
}

// runVectorSearch embeds the query and reads the vector index in a goroutine
func (s *Searcher) runVectorSearch(ctx context.Context, req SearchRequest, resultChan chan<- searchOutcome) {
	var res searchOutcome
	embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		res.err = fmt.Errorf("generate query embedding: %w", err)
	} else {
		res.vectorResults, res.err = s.storage.SearchVector(ctx, embedding.Vector, req.Limit*2)
	}
	select {
	case resultChan <- res:
	case <-ctx.Done():
	}
}

// runTextSearch reads the keyword index in a goroutine
func (s *Searcher) runTextSearch(ctx context.Context, req SearchRequest, resultChan chan<- searchOutcome) {
	var res searchOutcome
	res.textResults, res.err = s.storage.SearchText(ctx, req.Query, req.Limit*2)
	select {
	case resultChan <- res:
	case <-ctx.Done():
	}
}

// hybridSearch fans out to both indexes, normalizes each signal to [0,1],
// and merges by entry id with an agreement boost for entries both found.
// If embedding generation or the vector read fails, results degrade to
// keyword-only rather than erroring.
func (s *Searcher) hybridSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	vectorChan := make(chan searchOutcome, 1)
	textChan := make(chan searchOutcome, 1)

	go s.runVectorSearch(ctx, req, vectorChan)
	go s.runTextSearch(ctx, req, textChan)

	var vectorRes, textRes searchOutcome
	var vectorDone, textDone bool
	for !vectorDone || !textDone {
		select {
		case vectorRes = <-vectorChan:
			vectorDone = true
		case textRes = <-textChan:
			textDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if textRes.err != nil && vectorRes.err != nil {
		return nil, fmt.Errorf("both searches failed: text=%w, vector=%v", textRes.err, vectorRes.err)
	}
	if vectorRes.err != nil {
		s.logger.Printf("vector search unavailable, keyword-only results: %v", vectorRes.err)
		vectorRes.vectorResults = nil
	}
	if textRes.err != nil {
		s.logger.Printf("keyword search failed, vector-only results: %v", textRes.err)
		textRes.textResults = nil
	}

	fused := fuseResults(textRes.textResults, vectorRes.vectorResults)
	results, err := s.hydrate(ctx, fused, req.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:       results,
		TotalResults:  len(results),
		VectorResults: len(vectorRes.vectorResults),
		TextResults:   len(textRes.textResults),
	}, nil
}

// vectorSearch performs only vector similarity search
func (s *Searcher) vectorSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	embedding, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
	if err != nil {
		return nil, fmt.Errorf("generate query embedding: %w", err)
	}

	vectorResults, err := s.storage.SearchVector(ctx, embedding.Vector, req.Limit)
	if err != nil {
		return nil, err
	}

	fused := fuseResults(nil, vectorResults)
	results, err := s.hydrate(ctx, fused, req.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:       results,
		TotalResults:  len(results),
		VectorResults: len(vectorResults),
	}, nil
}

// keywordSearch performs only BM25 text search
func (s *Searcher) keywordSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	textResults, err := s.storage.SearchText(ctx, req.Query, req.Limit)
	if err != nil {
		return nil, err
	}

	fused := fuseResults(textResults, nil)
	results, err := s.hydrate(ctx, fused, req.Limit)
	if err != nil {
		return nil, err
	}

	return &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		TextResults:  len(textResults),
	}, nil
}

// fusedResult is an entry id with its fused score and signal origin
type fusedResult struct {
	entryID int64
	score   float64
	origin  types.SearchOrigin
}

// fuseResults normalizes both signals to [0,1] per query and merges them
// by entry id.
//
// Keyword scores follow the BM25 convention where more negative is more
// relevant, so the normalized score is 1 - |score|/maxAbs. Vector results
// come as ascending cosine distance, normalized as 1 - dist/maxDist. A
// degenerate maximum of zero (single candidate, all scores identical)
// normalizes everything present to 1. Entries found by both signals get
// the average plus AgreementBoost, clamped to 1.0.
func fuseResults(textResults []storage.TextResult, vectorResults []storage.VectorResult) []fusedResult {
	keywordNorm := make(map[int64]float64, len(textResults))
	var maxAbs float64
	for _, tr := range textResults {
		abs := tr.BM25Score
		if abs < 0 {
			abs = -abs
		}
		if abs > maxAbs {
			maxAbs = abs
		}
	}
	for _, tr := range textResults {
		if maxAbs > 0 {
			abs := tr.BM25Score
			if abs < 0 {
				abs = -abs
			}
			keywordNorm[tr.EntryID] = 1.0 - abs/maxAbs
		} else {
			keywordNorm[tr.EntryID] = 1.0
		}
	}

	vectorNorm := make(map[int64]float64, len(vectorResults))
	var maxDist float64
	for _, vr := range vectorResults {
		if vr.Distance > maxDist {
			maxDist = vr.Distance
		}
	}
	for _, vr := range vectorResults {
		if maxDist > 0 {
			vectorNorm[vr.EntryID] = 1.0 - vr.Distance/maxDist
		} else {
			vectorNorm[vr.EntryID] = 1.0
		}
	}

	fused := make([]fusedResult, 0, len(keywordNorm)+len(vectorNorm))
	for id, kw := range keywordNorm {
		if vec, ok := vectorNorm[id]; ok {
			score := (kw+vec)/2 + AgreementBoost
			if score > 1.0 {
				score = 1.0
			}
			fused = append(fused, fusedResult{entryID: id, score: score, origin: types.OriginBoth})
		} else {
			fused = append(fused, fusedResult{entryID: id, score: kw, origin: types.OriginKeyword})
		}
	}
	for id, vec := range vectorNorm {
		if _, ok := keywordNorm[id]; !ok {
			fused = append(fused, fusedResult{entryID: id, score: vec, origin: types.OriginVector})
		}
	}

	// Deterministic order: score descending, entry id ascending on ties
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].entryID < fused[j].entryID
	})

	return fused
}

// hydrate loads full entries for the top ranked ids. Entries that have
// disappeared from storage are skipped.
func (s *Searcher) hydrate(ctx context.Context, fused []fusedResult, limit int) ([]types.SearchResult, error) {
	if limit > len(fused) {
		limit = len(fused)
	}
	fused = fused[:limit]

	ids := make([]int64, len(fused))
	for i, fr := range fused {
		ids[i] = fr.entryID
	}

	entries, err := s.storage.GetEntries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	byID := make(map[int64]*types.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}

	results := make([]types.SearchResult, 0, len(fused))
	for _, fr := range fused {
		entry, ok := byID[fr.entryID]
		if !ok {
			continue
		}
		results = append(results, types.SearchResult{
			Entry:  entry,
			Score:  fr.score,
			Origin: fr.origin,
		})
	}

	return results, nil
}

// validateRequest ensures search request is valid
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if req.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}

	if req.Limit <= 0 {
		req.Limit = 10 // Default limit
	}

	if req.Limit > 100 {
		req.Limit = 100 // Max limit
	}

	if req.Mode == "" {
		req.Mode = SearchModeHybrid // Default mode
	}

	if req.CacheTTL == 0 {
		req.CacheTTL = 1 * time.Hour // Default TTL
	}

	return nil
}

// checkCache looks up a non-expired cached response
func (s *Searcher) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	hash := computeQueryHash(req)

	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(hash, entry)
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := &SearchResponse{
		TotalResults:  src.TotalResults,
		SearchMode:    src.SearchMode,
		Duration:      src.Duration,
		CacheHit:      src.CacheHit,
		VectorResults: src.VectorResults,
		TextResults:   src.TextResults,
		Results:       make([]types.SearchResult, len(src.Results)),
	}

	for i, result := range src.Results {
		dst.Results[i] = result
		if result.Entry != nil {
			entryCopy := *result.Entry
			dst.Results[i].Entry = &entryCopy
		}
	}

	return dst
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(string(req.Mode))
	data.WriteString("|")
	data.WriteString(fmt.Sprintf("%d", req.Limit))

	return sha256.Sum256([]byte(data.String()))
}

// InvalidateCache drops all cached query responses. Called after new
// entries are appended so stale rankings are not served.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

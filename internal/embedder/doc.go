// Package embedder generates vector embeddings for interaction text using
// various providers.
//
// The embedder supports multiple providers (OpenAI, Ollama, local) and
// provides caching and retry handling for production use.
//
// # Basic Usage
//
//	// Create embedder (auto-detects provider from environment)
//	emb, err := embedder.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	// Generate single embedding
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "how do I list open ports on linux",
//	})
//	fmt.Printf("Vector dimension: %d\n", len(result.Vector))
//
// # Provider Selection
//
// The embedder selects a provider based on environment variables:
//
//  1. If HEYAI_EMBEDDING_PROVIDER is set → use specified provider
//  2. Else if OPENAI_API_KEY is set → use OpenAI
//  3. Else if HEYAI_OLLAMA_URL is set → use Ollama
//  4. Else → fallback to local provider (offline mode)
//
// Provider comparison:
//
// OpenAI:
//   - Dimensions: 1536
//   - Quality: Excellent (general purpose)
//   - Cost: Pay per token
//
// Ollama:
//   - Dimensions: 768 (nomic-embed-text)
//   - Quality: Good
//   - Cost: Free (runs locally)
//
// Local (offline):
//   - Dimensions: 384
//   - Quality: Deterministic hash-derived vectors only
//   - Cost: Free, no dependencies
//
// # Caching
//
// The embedder includes an in-memory LRU cache keyed by SHA-256 of the
// input text:
//
//	cache := embedder.NewCache(10000) // cache 10k embeddings
//
// Repeated embedding of identical text is served from cache without an
// API call.
//
// # Error Handling
//
// Transient API failures are retried with exponential backoff. After
// retries are exhausted the error wraps ErrProviderFailed:
//
//	emb, err := provider.GenerateEmbedding(ctx, req)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // API unavailable; callers degrade to keyword-only search
//	}
package embedder

// Package embedder provides text embedding clients for vector representations.
//
// This package defines the Client interface and provides implementations for
// the supported embedding providers, plus the Port used by the rest of
// studygraph.
//
// # Supported Providers
//
//   - embedeverything: local sentence-transformer models (default
//     all-MiniLM-L6-v2, 384 dimensions)
//   - openai: OpenAI or any OpenAI-compatible /embeddings endpoint
//   - hash: deterministic feature hashing, for offline runs and tests
//
// # Wrappers
//
// Clients compose:
//
//	client, err := embedder.New(embedder.Config{Provider: "openai", Model: "text-embedding-3-small"})
//	client = embedder.NewBreakerClient(client, embedder.DefaultBreakerConfig(), logger)
//	port := embedder.NewSafePort(client, logger)
//
//	vec := port.Vector(ctx, "What is paging?") // never fails, len(vec) == port.Dimensions()
//
// SafePort is the only place where embedding errors are absorbed: blank
// text, provider errors, an open circuit breaker or a mis-sized vector all
// produce the zero vector and a warning log.
package embedder

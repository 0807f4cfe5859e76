package studygraph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/soundprediction/studygraph/pkg/alert"
	"github.com/soundprediction/studygraph/pkg/config"
	"github.com/soundprediction/studygraph/pkg/driver"
	"github.com/soundprediction/studygraph/pkg/embedder"
)

// NewStore opens the graph store named by cfg.Driver.
func NewStore(cfg config.DatabaseConfig, dims int) (driver.GraphStore, error) {
	opts := []driver.Option{driver.WithEmbeddingDim(dims)}

	switch driver.GraphProvider(cfg.Driver) {
	case driver.GraphProviderNeo4j, "":
		d, err := driver.NewNeo4jDriver(cfg.URI, cfg.Username, cfg.Password, cfg.Database, opts...)
		if err != nil {
			return nil, err
		}
		return d, nil
	case driver.GraphProviderLadybug:
		d, err := driver.NewLadybugDriver(cfg.URI, opts...)
		if err != nil {
			return nil, err
		}
		return d, nil
	case driver.GraphProviderMemory:
		return driver.NewMemoryDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// NewEmbedder builds the embedding client described by cfg: the provider,
// optionally behind a Redis cache, behind a circuit breaker.
func NewEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (embedder.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := embedder.New(embedder.Config{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	if cfg.Embedding.RedisURL != "" {
		cached, err := embedder.NewCachedClient(client, cfg.Embedding.RedisURL, cfg.Embedding.Model, cfg.Embedding.CacheTTLDuration(), logger)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to create embedding cache: %w", err)
		}
		if err := cached.Ping(ctx); err != nil {
			logger.Warn("Embedding cache unreachable, continuing without hits", "error", err)
		}
		client = cached
	}

	if cfg.CircuitBreaker.Enabled {
		bc := embedder.DefaultBreakerConfig()
		if cfg.CircuitBreaker.MaxRequests > 0 {
			bc.MaxRequests = cfg.CircuitBreaker.MaxRequests
		}
		if cfg.CircuitBreaker.Interval > 0 {
			bc.Interval = time.Duration(cfg.CircuitBreaker.Interval) * time.Second
		}
		if cfg.CircuitBreaker.Timeout > 0 {
			bc.Timeout = time.Duration(cfg.CircuitBreaker.Timeout) * time.Second
		}
		if cfg.CircuitBreaker.ReadyToTripRatio > 0 {
			bc.ReadyToTripRatio = cfg.CircuitBreaker.ReadyToTripRatio
		}
		bc.Alerter = alert.New(cfg.Alert)
		client = embedder.NewBreakerClient(client, bc, logger)
	}

	return client, nil
}

// NewFromConfig opens the store and embedder described by cfg and returns
// a client over them.
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	store, err := NewStore(cfg.Database, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}

	emb, err := NewEmbedder(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	return NewClient(store, emb, &Config{
		BatchRate:     cfg.Ingest.BatchRate,
		DefaultK:      cfg.Ingest.DefaultResults,
		WeakThreshold: cfg.Ingest.WeakThreshold,
	}, logger)
}

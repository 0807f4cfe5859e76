package studygraph

import (
	"errors"
	"log/slog"

	"github.com/soundprediction/studygraph/pkg/builder"
	"github.com/soundprediction/studygraph/pkg/driver"
	"github.com/soundprediction/studygraph/pkg/embedder"
	"github.com/soundprediction/studygraph/pkg/progress"
	"github.com/soundprediction/studygraph/pkg/retriever"
)

var (
	// ErrNilStore is returned when NewClient is called without a graph store.
	ErrNilStore = errors.New("graph store is required")
	// ErrNilEmbedder is returned when NewClient is called without an embedder.
	ErrNilEmbedder = errors.New("embedder is required")
)

// Client is the main implementation of the StudyGraph interface.
type Client struct {
	store     driver.GraphStore
	port      *embedder.SafePort
	builder   *builder.Builder
	retriever *retriever.Retriever
	tracker   *progress.Tracker
	config    *Config
	logger    *slog.Logger
}

// Config holds configuration for the studygraph client.
type Config struct {
	// BatchRate caps chunk batches per second; zero disables pacing.
	BatchRate float64
	// DefaultK is used when a search asks for k <= 0 through the server or CLI.
	DefaultK int
	// WeakThreshold is the default accuracy percentage below which a topic is weak.
	WeakThreshold float64
}

// NewDefaultConfig returns the default client configuration.
func NewDefaultConfig() *Config {
	return &Config{
		DefaultK:      retriever.DefaultK,
		WeakThreshold: progress.DefaultWeakThreshold,
	}
}

// NewClient creates a client over store. Embedding failures never surface
// as errors: the client is wrapped in a SafePort that degrades to zero
// vectors.
func NewClient(store driver.GraphStore, embedderClient embedder.Client, config *Config, logger *slog.Logger) (*Client, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if embedderClient == nil {
		return nil, ErrNilEmbedder
	}
	if config == nil {
		config = NewDefaultConfig()
	}
	if config.DefaultK <= 0 {
		config.DefaultK = retriever.DefaultK
	}
	if config.WeakThreshold <= 0 {
		config.WeakThreshold = progress.DefaultWeakThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}

	port := embedder.NewSafePort(embedderClient, logger)
	return &Client{
		store:     store,
		port:      port,
		builder:   builder.NewBuilder(store, port, &builder.Options{Logger: logger, BatchRate: config.BatchRate}),
		retriever: retriever.NewRetriever(store, port, logger),
		tracker:   progress.NewTracker(store, logger),
		config:    config,
		logger:    logger,
	}, nil
}

// GetStore returns the underlying graph store
func (c *Client) GetStore() driver.GraphStore {
	return c.store
}

// GetEmbedder returns the embedding port
func (c *Client) GetEmbedder() *embedder.SafePort {
	return c.port
}

// GetBuilder returns the graph builder
func (c *Client) GetBuilder() *builder.Builder {
	return c.builder
}

// GetConfig returns the client configuration
func (c *Client) GetConfig() *Config {
	return c.config
}

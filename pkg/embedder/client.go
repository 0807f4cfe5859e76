package embedder

import (
	"context"
	"errors"
	"fmt"
)

// Default model settings for the local provider.
const (
	DefaultModel      = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultDimensions = 384
	DefaultBatchSize  = 32
)

// Provider names accepted by New.
const (
	ProviderEmbedEverything = "embedeverything"
	ProviderOpenAI          = "openai"
)

var (
	// ErrNoEmbeddings is returned when a provider answers with fewer vectors
	// than texts.
	ErrNoEmbeddings = errors.New("no embeddings returned")

	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// Client produces embedding vectors from text.
type Client interface {
	// Embed returns one vector per text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle embeds a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the length of the vectors this client produces.
	Dimensions() int

	// Close releases any resources held by the client.
	Close() error
}

// Port is the embedding boundary used by ingestion and retrieval. Vector
// never fails: it always returns a vector of length Dimensions().
type Port interface {
	Vector(ctx context.Context, text string) []float32
	Dimensions() int
}

// Config holds the settings shared by every provider.
type Config struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
}

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Dimensions <= 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
}

// New builds the Client named by cfg.Provider.
func New(cfg Config) (Client, error) {
	cfg.applyDefaults()
	switch cfg.Provider {
	case "", ProviderEmbedEverything:
		c, err := NewEmbedEverythingClient(&EmbedEverythingConfig{Config: &cfg})
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderOpenAI:
		c, err := NewOpenAIEmbedder(cfg.APIKey, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderHash:
		return NewHashClient(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// embedSingle is the EmbedSingle shared by the providers.
func embedSingle(ctx context.Context, c Client, text string) ([]float32, error) {
	embeddings, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, ErrNoEmbeddings
	}
	return embeddings[0], nil
}

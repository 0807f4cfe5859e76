package embedder

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	config Config
}

// NewOpenAIEmbedder creates a client for OpenAI or a compatible service
// reachable at config.BaseURL.
func NewOpenAIEmbedder(apiKey string, config Config) (*OpenAIEmbedder, error) {
	config.applyDefaults()

	var client *openai.Client
	if config.BaseURL != "" {
		if err := validateBaseURL(config.BaseURL); err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		// Some compatible services don't require authentication.
		if apiKey == "" {
			apiKey = "dummy-key"
		}
		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
		if !hasAPIPath(clientConfig.BaseURL) {
			clientConfig.BaseURL += "/v1"
		}
		client = openai.NewClientWithConfig(clientConfig)
	} else {
		client = openai.NewClient(apiKey)
	}

	return &OpenAIEmbedder{client: client, config: config}, nil
}

// Embed generates embeddings for the given texts, BatchSize texts per request.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(texts))
		batch := texts[start:end]

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      batch,
			Model:      openai.EmbeddingModel(e.config.Model),
			Dimensions: e.requestDimensions(),
		})
		if err != nil {
			return nil, fmt.Errorf("openai embeddings request failed: %w", err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("%w: got %d for %d texts", ErrNoEmbeddings, len(resp.Data), len(batch))
		}

		vectors := make([][]float32, len(batch))
		for i, d := range resp.Data {
			idx := d.Index
			if idx < 0 || idx >= len(batch) {
				idx = i
			}
			vectors[idx] = d.Embedding
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// requestDimensions asks text-embedding-3 models to truncate to the
// configured size; older models reject the parameter.
func (e *OpenAIEmbedder) requestDimensions() int {
	if strings.HasPrefix(e.config.Model, "text-embedding-3") {
		return e.config.Dimensions
	}
	return 0
}

// EmbedSingle generates an embedding for a single text.
func (e *OpenAIEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, e, text)
}

// Dimensions returns the configured vector length.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.config.Dimensions
}

// Close is a no-op; the HTTP client holds no resources.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

func validateBaseURL(baseURL string) error {
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid baseURL format: %w", err)
	}
	if parsedURL.Scheme == "" {
		return fmt.Errorf("baseURL must include scheme (http:// or https://)")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("baseURL must include host")
	}
	return nil
}

// hasAPIPath reports whether baseURL already ends in a versioned API path.
func hasAPIPath(baseURL string) bool {
	for _, path := range []string{"/v1", "/api"} {
		if strings.HasSuffix(baseURL, path) {
			return true
		}
	}
	return false
}

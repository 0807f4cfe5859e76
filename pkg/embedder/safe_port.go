package embedder

import (
	"context"
	"log/slog"
	"strings"

	"github.com/soundprediction/studygraph/pkg/utils"
)

// SafePort adapts a Client to Port. Blank text, client errors and vectors
// of the wrong length all yield the zero vector, so ingestion never stores
// a missing or mis-sized embedding.
type SafePort struct {
	client Client
	dims   int
	logger *slog.Logger
}

// NewSafePort wraps client. A nil logger falls back to slog.Default().
func NewSafePort(client Client, logger *slog.Logger) *SafePort {
	if logger == nil {
		logger = slog.Default()
	}
	dims := client.Dimensions()
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &SafePort{
		client: client,
		dims:   dims,
		logger: logger.With("component", "embedder"),
	}
}

// Vector embeds text, degrading to the zero vector on any failure.
func (p *SafePort) Vector(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return utils.ZeroVector(p.dims)
	}
	vec, err := p.client.EmbedSingle(ctx, text)
	if err != nil {
		p.logger.Warn("embedding failed, using zero vector", "error", err, "text_len", len(text))
		return utils.ZeroVector(p.dims)
	}
	if len(vec) != p.dims {
		p.logger.Warn("embedding has wrong dimension, using zero vector", "got", len(vec), "want", p.dims)
		return utils.ZeroVector(p.dims)
	}
	return vec
}

// Vectors embeds texts in one client call with the same per-text fallback
// as Vector. If the batch call itself fails every text is retried alone.
func (p *SafePort) Vectors(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	var pending []string
	var positions []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = utils.ZeroVector(p.dims)
			continue
		}
		pending = append(pending, text)
		positions = append(positions, i)
	}
	if len(pending) == 0 {
		return out
	}

	vecs, err := p.client.Embed(ctx, pending)
	if err != nil || len(vecs) != len(pending) {
		p.logger.Warn("batch embedding failed, embedding individually", "error", err, "texts", len(pending))
		for j, i := range positions {
			out[i] = p.Vector(ctx, pending[j])
		}
		return out
	}
	for j, i := range positions {
		if len(vecs[j]) != p.dims {
			p.logger.Warn("embedding has wrong dimension, using zero vector", "got", len(vecs[j]), "want", p.dims)
			out[i] = utils.ZeroVector(p.dims)
			continue
		}
		out[i] = vecs[j]
	}
	return out
}

// Dimensions returns the configured vector length.
func (p *SafePort) Dimensions() int {
	return p.dims
}

// Close closes the underlying client.
func (p *SafePort) Close() error {
	return p.client.Close()
}

var _ Port = (*SafePort)(nil)

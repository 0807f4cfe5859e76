package embedder

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/soundprediction/studygraph/pkg/utils"
)

// ProviderHash selects HashClient.
const ProviderHash = "hash"

// HashClient is a deterministic bag-of-words embedder using feature
// hashing. It needs no model and no network, which makes it the provider
// for offline runs and tests. Texts sharing words have positive similarity.
type HashClient struct {
	dims int
}

// NewHashClient returns a HashClient producing vectors of length dims.
func NewHashClient(dims int) *HashClient {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashClient{dims: dims}
}

// Embed implements Client.
func (h *HashClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *HashClient) vector(text string) []float32 {
	v := make([]float32, h.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		f := fnv.New64a()
		_, _ = f.Write([]byte(w))
		sum := f.Sum64()
		idx := int(sum % uint64(h.dims))
		if sum&(1<<63) != 0 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	return utils.NormalizeL2(v)
}

// EmbedSingle implements Client.
func (h *HashClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, h, text)
}

// Dimensions implements Client.
func (h *HashClient) Dimensions() int {
	return h.dims
}

// Close implements Client.
func (h *HashClient) Close() error {
	return nil
}

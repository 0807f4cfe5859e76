package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "studygraph:emb:"

// CachedClient stores embeddings in Redis keyed by model and text. Redis
// failures are logged and fall through to the wrapped client.
type CachedClient struct {
	client Client
	rdb    *redis.Client
	model  string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedClient connects to the Redis server at redisURL
// (redis://host:port/db). A zero ttl keeps entries forever.
func NewCachedClient(client Client, redisURL, model string, ttl time.Duration, logger *slog.Logger) (*CachedClient, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClient{
		client: client,
		rdb:    redis.NewClient(opts),
		model:  model,
		ttl:    ttl,
		logger: logger.With("component", "embedding_cache"),
	}, nil
}

// Ping checks that Redis is reachable.
func (c *CachedClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Embed returns cached vectors where present and embeds the rest.
func (c *CachedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = cacheKey(c.model, t)
	}

	out := make([][]float32, len(texts))
	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("embedding cache read failed", "error", err)
		cached = nil
	}

	var missTexts []string
	var missIdx []int
	for i := range texts {
		if i < len(cached) {
			if s, ok := cached[i].(string); ok {
				if vec, ok := decodeVector([]byte(s)); ok && len(vec) == c.client.Dimensions() {
					out[i] = vec
					continue
				}
			}
		}
		missTexts = append(missTexts, texts[i])
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := c.client.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("%w: got %d for %d texts", ErrNoEmbeddings, len(fresh), len(missTexts))
	}

	_, err = c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for j, i := range missIdx {
			out[i] = fresh[j]
			pipe.Set(ctx, keys[i], encodeVector(fresh[j]), c.ttl)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("embedding cache write failed", "error", err)
	}
	return out, nil
}

// EmbedSingle implements Client.
func (c *CachedClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return embedSingle(ctx, c, text)
}

// Dimensions implements Client.
func (c *CachedClient) Dimensions() int {
	return c.client.Dimensions()
}

// Close closes the Redis connection and the wrapped client.
func (c *CachedClient) Close() error {
	rerr := c.rdb.Close()
	if err := c.client.Close(); err != nil {
		return err
	}
	return rerr
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// encodeVector packs v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, bool) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, true
}

package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/soundprediction/studygraph/pkg/alert"
)

// BreakerConfig configures BreakerClient.
type BreakerConfig struct {
	Name             string        `mapstructure:"name"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MinRequests      uint32        `mapstructure:"min_requests"`
	ReadyToTripRatio float64       `mapstructure:"ready_to_trip_ratio"`
	// Alerter is notified when the breaker opens. Nil disables alerts.
	Alerter alert.Alerter `mapstructure:"-"`
}

// DefaultBreakerConfig trips after three requests with a failure ratio of
// at least 0.6 and probes again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "embedder",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		MinRequests:      3,
		ReadyToTripRatio: 0.6,
	}
}

// BreakerClient wraps a Client with circuit breaking. While the breaker is
// open calls fail fast with gobreaker.ErrOpenState.
type BreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps client.
func NewBreakerClient(client Client, cfg BreakerConfig, logger *slog.Logger) *BreakerClient {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.ReadyToTripRatio <= 0 {
		cfg.ReadyToTripRatio = def.ReadyToTripRatio
	}

	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Error("circuit breaker opened", "breaker", name, "from", from.String())
				alert.Async(cfg.Alerter, logger, fmt.Sprintf("Circuit breaker tripped - %s", name),
					fmt.Sprintf("Circuit breaker '%s' changed from %s to %s. Embedding requests fail fast and chunks are stored with zero vectors until it recovers.", name, from, to))
				return
			}
			logger.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &BreakerClient{
		client: client,
		cb:     gobreaker.NewCircuitBreaker(st),
	}
}

// Embed implements Client.
func (c *BreakerClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.Embed(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	return resp.([][]float32), nil
}

// EmbedSingle implements Client.
func (c *BreakerClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.client.EmbedSingle(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return resp.([]float32), nil
}

// State returns the current breaker state.
func (c *BreakerClient) State() gobreaker.State {
	return c.cb.State()
}

// Dimensions implements Client.
func (c *BreakerClient) Dimensions() int {
	return c.client.Dimensions()
}

// Close implements Client.
func (c *BreakerClient) Close() error {
	return c.client.Close()
}

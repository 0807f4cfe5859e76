package studygraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/soundprediction/studygraph/pkg/types"
)

// CreateIndices creates database indices and constraints for optimal performance.
func (c *Client) CreateIndices(ctx context.Context) error {
	if err := c.store.CreateIndices(ctx); err != nil {
		return fmt.Errorf("failed to create indices: %w", err)
	}
	c.logger.Info("Indices created", "provider", c.store.Provider())
	return nil
}

// VerifyConnectivity checks that the graph store is reachable.
func (c *Client) VerifyConnectivity(ctx context.Context) error {
	return c.store.VerifyConnectivity(ctx)
}

// Statistics returns node counts per label.
func (c *Client) Statistics(ctx context.Context) (*types.Statistics, error) {
	return c.builder.Statistics(ctx)
}

// Clear removes every node and edge from the graph.
func (c *Client) Clear(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear graph: %w", err)
	}
	c.logger.Warn("Graph cleared", "provider", c.store.Provider())
	return nil
}

// Close closes the store and the embedding client.
func (c *Client) Close() error {
	return errors.Join(c.store.Close(), c.port.Close())
}

//go:build integration
// +build integration

package studygraph_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/studygraph"
	"github.com/soundprediction/studygraph/pkg/driver"
	"github.com/soundprediction/studygraph/pkg/embedder"
	"github.com/soundprediction/studygraph/pkg/types"
)

// Integration tests require a running Neo4j and are marked with build tag
// Run with: go test -tags=integration

func TestNeo4jIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}

	ctx := context.Background()
	store, err := driver.NewNeo4jDriver(uri, os.Getenv("NEO4J_USER"), os.Getenv("NEO4J_PASSWORD"), "neo4j",
		driver.WithEmbeddingDim(dims))
	require.NoError(t, err)
	if err := store.VerifyConnectivity(ctx); err != nil {
		t.Skipf("Neo4j unreachable: %v", err)
	}

	c, err := studygraph.NewClient(store, embedder.NewHashClient(dims), nil, nil)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Clear(ctx))
	require.NoError(t, c.CreateIndices(ctx))
	require.NoError(t, c.CreateIndices(ctx))
	seed(t, c)

	result, err := c.HybridSearch(ctx, "semaphores coordinate access to shared resources", "Operating Systems", "", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Chunks)

	_, err = c.RecordAttempt(types.WithUserID(ctx, "it-user"), types.AttemptRecord{
		QuestionText: "What is a race condition?",
		Subject:      "Operating Systems",
		Topic:        "Process Management",
		Correct:      true,
	})
	require.NoError(t, err)
	require.NoError(t, c.Clear(ctx))
}

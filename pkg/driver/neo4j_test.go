package driver_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soundprediction/studygraph/pkg/driver"
)

// getNeo4jConnectionInfo returns connection info from environment or defaults.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD env vars to override.
func getNeo4jConnectionInfo() (uri, user, password string) {
	uri = os.Getenv("NEO4J_URI")
	if uri == "" {
		uri = "bolt://localhost:7687"
	}
	user = os.Getenv("NEO4J_USER")
	if user == "" {
		user = "neo4j"
	}
	password = os.Getenv("NEO4J_PASSWORD")
	if password == "" {
		password = "password"
	}
	return
}

// skipIfNeo4jUnavailable skips the test if Neo4j is not available
func skipIfNeo4jUnavailable(t *testing.T) *driver.Neo4jDriver {
	t.Helper()

	uri, user, password := getNeo4jConnectionInfo()
	d, err := driver.NewNeo4jDriver(uri, user, password, "neo4j", driver.WithConnectTimeout(3*time.Second))
	if err != nil {
		t.Skipf("Neo4j not available at %s: %v", uri, err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.VerifyConnectivity(ctx); err != nil {
		d.Close()
		t.Skipf("Neo4j connection failed: %v", err)
		return nil
	}
	return d
}

func TestNeo4jDriverContract(t *testing.T) {
	d := skipIfNeo4jUnavailable(t)
	defer d.Close()

	runStoreSuite(t, func(t *testing.T) driver.GraphStore {
		require.NoError(t, d.Clear(context.Background()))
		return d
	})
}

func TestNeo4jCreateIndicesIsIdempotent(t *testing.T) {
	d := skipIfNeo4jUnavailable(t)
	defer d.Close()

	ctx := context.Background()
	require.NoError(t, d.CreateIndices(ctx))
	require.NoError(t, d.CreateIndices(ctx))
}

package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/soundprediction/studygraph/pkg/types"
	"github.com/soundprediction/studygraph/pkg/utils"
)

// Neo4jDriver implements GraphStore for Neo4j databases.
type Neo4jDriver struct {
	client       neo4j.DriverWithContext
	database     string
	embeddingDim int
}

// NewNeo4jDriver creates a new Neo4j driver instance.
func NewNeo4jDriver(uri, username, password, database string, opts ...Option) (*Neo4jDriver, error) {
	o := applyOptions(opts)
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""), func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = o.MaxConnectionPoolSize
		cfg.SocketConnectTimeout = o.ConnectTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	return &Neo4jDriver{
		client:       driver,
		database:     database,
		embeddingDim: o.EmbeddingDim,
	}, nil
}

type neo4jRow struct {
	rec *db.Record
}

func (r neo4jRow) get(key string) (any, bool) {
	return r.rec.Get(key)
}

func (n *Neo4jDriver) read(ctx context.Context, query string, params map[string]any) ([]*db.Record, error) {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*db.Record), nil
}

func (n *Neo4jDriver) write(ctx context.Context, query string, params map[string]any) ([]*db.Record, error) {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.([]*db.Record), nil
}

// UpsertNode merges a node by label and match properties.
func (n *Neo4jDriver) UpsertNode(ctx context.Context, label string, match, set Props) (*Node, error) {
	if err := validateUpsert(NodeRef{Label: label, Match: match}, set); err != nil {
		return nil, err
	}

	b := newCypherBuilder(dialectNeo4j)
	query := b.compileUpsertNode(label, match, set, utils.GenerateUUID(), time.Now())
	records, err := n.write(ctx, query, b.params)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s: %w", label, err)
	}
	return firstNode(dialectNeo4j, neo4jRows(records), label)
}

// CreateNode unconditionally creates a node.
func (n *Neo4jDriver) CreateNode(ctx context.Context, label string, attrs Props) (*Node, error) {
	if err := validateIdentifier(label); err != nil {
		return nil, err
	}
	if err := validateProps(attrs); err != nil {
		return nil, err
	}

	id := utils.GenerateUUID()
	props := newNodeProps(attrs, id, time.Now())
	b := newCypherBuilder(dialectNeo4j)
	if _, err := n.write(ctx, b.compileCreateNode(label, props), b.params); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", label, err)
	}
	return &Node{UUID: id, Label: label, Props: props}, nil
}

// CreateAnchored creates a node linked from anchor, or nothing when the
// anchor is missing.
func (n *Neo4jDriver) CreateAnchored(ctx context.Context, anchor NodeRef, edgeType, label string, attrs Props) (*Node, error) {
	if err := validateAnchored(anchor, edgeType, label, attrs); err != nil {
		return nil, err
	}

	id := utils.GenerateUUID()
	props := newNodeProps(attrs, id, time.Now())
	b := newCypherBuilder(dialectNeo4j)
	records, err := n.write(ctx, b.compileCreateAnchored(anchor, edgeType, label, props), b.params)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", label, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s %v", ErrAnchorNotFound, anchor.Label, anchor.Match)
	}
	return &Node{UUID: id, Label: label, Props: props}, nil
}

// UpsertAnchored merges a node linked from anchor.
func (n *Neo4jDriver) UpsertAnchored(ctx context.Context, anchor NodeRef, edgeType, label string, match, set Props) (*Node, error) {
	if err := validateAnchored(anchor, edgeType, label, set); err != nil {
		return nil, err
	}
	if err := validateUpsert(NodeRef{Label: label, Match: match}, set); err != nil {
		return nil, err
	}

	b := newCypherBuilder(dialectNeo4j)
	query := b.compileUpsertAnchored(anchor, edgeType, label, match, set, utils.GenerateUUID(), time.Now())
	records, err := n.write(ctx, query, b.params)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s: %w", label, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s %v", ErrAnchorNotFound, anchor.Label, anchor.Match)
	}
	return firstNode(dialectNeo4j, neo4jRows(records), label)
}

// CreateEdge links the first nodes matching from and to.
func (n *Neo4jDriver) CreateEdge(ctx context.Context, from, to NodeRef, edgeType string, attrs Props, mode EdgeMode) (*Edge, error) {
	if err := validateEdge(from, to, edgeType); err != nil {
		return nil, err
	}
	if err := validateProps(attrs); err != nil {
		return nil, err
	}

	b := newCypherBuilder(dialectNeo4j)
	records, err := n.write(ctx, b.compileCreateEdge(from, to, edgeType, attrs, mode), b.params)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s edge: %w", edgeType, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s edge endpoints", ErrNodeNotFound, edgeType)
	}
	return decodeEdgeRow(dialectNeo4j, neo4jRow{records[0]}, edgeType), nil
}

// MergeEdge upserts the edge between every pair of matching endpoints.
func (n *Neo4jDriver) MergeEdge(ctx context.Context, from, to NodeRef, edgeType string, update EdgeUpdate) ([]*Edge, error) {
	if err := validateEdge(from, to, edgeType); err != nil {
		return nil, err
	}
	if err := update.validate(); err != nil {
		return nil, err
	}

	b := newCypherBuilder(dialectNeo4j)
	records, err := n.write(ctx, b.compileMergeEdge(from, to, edgeType, update), b.params)
	if err != nil {
		return nil, fmt.Errorf("failed to merge %s edge: %w", edgeType, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s edge endpoints", ErrNodeNotFound, edgeType)
	}
	edges := make([]*Edge, len(records))
	for i, rec := range records {
		edges[i] = decodeEdgeRow(dialectNeo4j, neo4jRow{rec}, edgeType)
	}
	return edges, nil
}

// Query returns one Record per pattern match.
func (n *Neo4jDriver) Query(ctx context.Context, pattern *Pattern) ([]Record, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}

	b := newCypherBuilder(dialectNeo4j)
	records, err := n.read(ctx, b.compileQuery(pattern), b.params)
	if err != nil {
		return nil, fmt.Errorf("failed to query graph: %w", err)
	}
	out := make([]Record, len(records))
	for i, rec := range records {
		out[i] = decodeRecord(dialectNeo4j, neo4jRow{rec}, pattern)
	}
	return out, nil
}

// CountMatches counts distinct nodes bound to the pattern's last alias.
func (n *Neo4jDriver) CountMatches(ctx context.Context, pattern *Pattern) (int64, error) {
	if err := pattern.Validate(); err != nil {
		return 0, err
	}

	b := newCypherBuilder(dialectNeo4j)
	return n.count(ctx, b.compileCount(pattern), b.params)
}

// Count returns the number of nodes with label.
func (n *Neo4jDriver) Count(ctx context.Context, label string) (int64, error) {
	if err := validateIdentifier(label); err != nil {
		return 0, err
	}
	return n.count(ctx, fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS count", label), nil)
}

func (n *Neo4jDriver) count(ctx context.Context, query string, params map[string]any) (int64, error) {
	records, err := n.read(ctx, query, params)
	if err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	v, _ := records[0].Get("count")
	c, _ := AsInt64(v)
	return c, nil
}

// VectorSearch ranks nodes by cosine similarity. Unfiltered searches use
// the vector index when one is named; filtered searches scan the reachable
// candidates exactly.
func (n *Neo4jDriver) VectorSearch(ctx context.Context, q VectorQuery) ([]ScoredNode, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if utils.IsZeroVector(q.Vector) {
		return nil, nil
	}

	b := newCypherBuilder(dialectNeo4j)
	var query string
	if q.Filter == nil && q.IndexName != "" {
		query = fmt.Sprintf(`CALL db.index.vector.queryNodes(%s, %s, %s) YIELD node AS n, score
RETURN n, score
ORDER BY score DESC`, b.param(q.IndexName), b.param(int64(q.K)), b.param(q.Vector))
	} else {
		query = b.compileExactVectorSearch(q)
	}

	records, err := n.read(ctx, query, b.params)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	hits := make([]ScoredNode, 0, len(records))
	for _, rec := range records {
		node, ok := decodeNode(dialectNeo4j, neo4jRow{rec}, "n", q.Label)
		if !ok {
			continue
		}
		v, _ := rec.Get("score")
		score, _ := AsFloat64(v)
		// Neo4j reports cosine similarity rescaled to [0, 1].
		hits = append(hits, ScoredNode{Node: node, Score: 2*score - 1})
	}
	return hits, nil
}

// CreateIndices creates uniqueness constraints, lookup indexes and the
// chunk vector index.
func (n *Neo4jDriver) CreateIndices(ctx context.Context) error {
	session := n.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: n.database})
	defer session.Close(ctx)

	var statements []string
	for _, c := range uniqueConstraints {
		statements = append(statements, fmt.Sprintf(
			"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE (%s) IS UNIQUE",
			c.Name, c.Label, qualify("n", c.Properties)))
	}
	for _, idx := range propertyIndexes {
		statements = append(statements, fmt.Sprintf(
			"CREATE INDEX %s IF NOT EXISTS FOR (n:%s) ON (%s)",
			idx.Name, idx.Label, qualify("n", idx.Properties)))
	}
	statements = append(statements, fmt.Sprintf(
		"CREATE VECTOR INDEX %s IF NOT EXISTS FOR (n:%s) ON (n.%s) "+
			"OPTIONS {indexConfig: {`vector.dimensions`: %d, `vector.similarity_function`: 'cosine'}}",
		types.ChunkVectorIndex, types.LabelChunk, types.EmbeddingProperty, n.embeddingDim))

	for _, statement := range statements {
		_, err := session.Run(ctx, statement, nil)
		if err != nil {
			if !strings.Contains(err.Error(), "already exists") && !strings.Contains(err.Error(), "An equivalent") {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}
	}
	return nil
}

// Clear removes every node and edge.
func (n *Neo4jDriver) Clear(ctx context.Context) error {
	_, err := n.write(ctx, "MATCH (n) DETACH DELETE n", nil)
	return err
}

// VerifyConnectivity checks if the driver can connect to the database.
func (n *Neo4jDriver) VerifyConnectivity(ctx context.Context) error {
	return n.client.VerifyConnectivity(ctx)
}

// Provider returns the provider type.
func (n *Neo4jDriver) Provider() GraphProvider {
	return GraphProviderNeo4j
}

// Close closes the driver.
func (n *Neo4jDriver) Close() error {
	return n.client.Close(context.Background())
}

func neo4jRows(records []*db.Record) []row {
	rows := make([]row, len(records))
	for i, rec := range records {
		rows[i] = neo4jRow{rec}
	}
	return rows
}

func firstNode(d dialect, rows []row, label string) (*Node, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, label)
	}
	node, ok := decodeNode(d, rows[0], "n", label)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, label)
	}
	return node, nil
}

func qualify(alias string, props []string) string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = alias + "." + p
	}
	return strings.Join(out, ", ")
}

func validateUpsert(ref NodeRef, set Props) error {
	if err := ref.validate(); err != nil {
		return err
	}
	if len(ref.Match) == 0 {
		return fmt.Errorf("%w: upsert of %s needs match properties", ErrInvalidPattern, ref.Label)
	}
	return validateProps(set)
}

func validateAnchored(anchor NodeRef, edgeType, label string, attrs Props) error {
	if err := anchor.validate(); err != nil {
		return err
	}
	if err := validateIdentifier(edgeType); err != nil {
		return err
	}
	if err := validateIdentifier(label); err != nil {
		return err
	}
	return validateProps(attrs)
}

func validateEdge(from, to NodeRef, edgeType string) error {
	if err := from.validate(); err != nil {
		return err
	}
	if err := to.validate(); err != nil {
		return err
	}
	return validateIdentifier(edgeType)
}

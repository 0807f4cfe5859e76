//go:build cgo

package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	ladybug "github.com/LadybugDB/go-ladybug"

	"github.com/soundprediction/studygraph/pkg/utils"
)

// ErrCGORequired is returned when Ladybug operations are called without CGO support
var ErrCGORequired = errors.New("ladybug driver requires CGO; build with CGO_ENABLED=1")

// LadybugDriverConfig holds configuration options for LadybugDriver
type LadybugDriverConfig struct {
	// Database path (defaults to ":memory:")
	DBPath string

	// Maximum threads used by a single query (defaults to 1)
	MaxConcurrentQueries int

	// Buffer pool size in bytes (defaults to 1GB)
	BufferPoolSize uint64

	// Enable compression (defaults to true)
	EnableCompression bool

	// Maximum database size in bytes (defaults to 8TB)
	MaxDbSize uint64
}

// DefaultLadybugDriverConfig returns a LadybugDriverConfig with sensible defaults
func DefaultLadybugDriverConfig() *LadybugDriverConfig {
	return &LadybugDriverConfig{
		DBPath:               ":memory:",
		MaxConcurrentQueries: 1,
		BufferPoolSize:       1024 * 1024 * 1024, // 1GB
		EnableCompression:    true,
		MaxDbSize:            1 << 43, // 8TB
	}
}

// LadybugDriver implements GraphStore on an embedded Ladybug database.
// The connection is not safe for concurrent use, so every statement runs
// under mu.
type LadybugDriver struct {
	db     *ladybug.Database
	client *ladybug.Connection
	dbPath string
	mu     sync.Mutex
	closed bool
}

// NewLadybugDriver opens (or creates) the database at dbPath and ensures the
// schema exists. An empty path opens an in-memory database.
func NewLadybugDriver(dbPath string, opts ...Option) (*LadybugDriver, error) {
	o := applyOptions(opts)
	config := DefaultLadybugDriverConfig()
	if dbPath != "" {
		config.DBPath = dbPath
	}
	if o.MaxConcurrentQueries > 0 {
		config.MaxConcurrentQueries = o.MaxConcurrentQueries
	}
	return NewLadybugDriverWithConfig(config)
}

// NewLadybugDriverWithConfig opens a database with explicit settings.
func NewLadybugDriverWithConfig(config *LadybugDriverConfig) (*LadybugDriver, error) {
	if config == nil {
		config = DefaultLadybugDriverConfig()
	}
	if config.DBPath == "" {
		config.DBPath = ":memory:"
	}
	if config.MaxConcurrentQueries <= 0 {
		config.MaxConcurrentQueries = 1
	}
	if config.BufferPoolSize == 0 {
		config.BufferPoolSize = 1024 * 1024 * 1024
	}
	if config.MaxDbSize == 0 {
		config.MaxDbSize = 1 << 43
	}

	systemConfig := ladybug.SystemConfig{
		BufferPoolSize:    config.BufferPoolSize,
		MaxNumThreads:     uint64(config.MaxConcurrentQueries),
		EnableCompression: config.EnableCompression,
		ReadOnly:          false,
		MaxDbSize:         config.MaxDbSize,
	}

	database, err := ladybug.OpenDatabase(config.DBPath, systemConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open ladybug database: %w", err)
	}

	client, err := ladybug.OpenConnection(database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to open ladybug connection: %w", err)
	}

	driver := &LadybugDriver{
		db:     database,
		client: client,
		dbPath: config.DBPath,
	}
	if err := driver.setupSchema(); err != nil {
		driver.Close()
		return nil, err
	}
	return driver, nil
}

func (k *LadybugDriver) setupSchema() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, statement := range schemaStatements() {
		if _, err := k.execLocked(statement, nil); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// execLocked runs one statement and collects its rows. Callers hold k.mu.
func (k *LadybugDriver) execLocked(query string, params map[string]any) ([]mapRow, error) {
	if k.closed {
		return nil, ErrStoreClosed
	}

	var results *ladybug.QueryResult
	var err error
	if len(params) > 0 {
		prepared, perr := k.client.Prepare(query)
		if perr != nil {
			slog.Debug("Error preparing ladybug query", "error", perr, "query", query)
			return nil, perr
		}
		results, err = k.client.Execute(prepared, params)
	} else {
		results, err = k.client.Query(query)
	}
	if err != nil {
		slog.Debug("Error executing ladybug query", "error", err, "query", query)
		return nil, err
	}
	defer results.Close()

	columns := results.GetColumnNames()
	var rows []mapRow
	for results.HasNext() {
		tuple, err := results.Next()
		if err != nil {
			return nil, err
		}
		values, err := tuple.GetAsSlice()
		if err != nil {
			return nil, err
		}
		r := make(mapRow, len(columns))
		for i, v := range values {
			if i < len(columns) {
				r[columns[i]] = v
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func (k *LadybugDriver) exec(ctx context.Context, query string, params map[string]any) ([]mapRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.execLocked(query, params)
}

// inTransactionLocked runs fn between BEGIN and COMMIT, rolling back on error.
func (k *LadybugDriver) inTransactionLocked(fn func() error) error {
	if _, err := k.execLocked("BEGIN TRANSACTION", nil); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if _, rbErr := k.execLocked("ROLLBACK", nil); rbErr != nil {
			slog.Warn("ladybug rollback failed", "error", rbErr)
		}
		return err
	}
	_, err := k.execLocked("COMMIT", nil)
	return err
}

// firstUUIDLocked returns the uuid of the first node matching ref, or "".
func (k *LadybugDriver) firstUUIDLocked(ref NodeRef) (string, error) {
	b := newCypherBuilder(dialectLadybug)
	rows, err := k.execLocked(fmt.Sprintf("MATCH %s\nRETURN n.uuid AS uuid\nLIMIT 1", b.node("n", ref.Label, ref.Match)), b.params)
	if err != nil || len(rows) == 0 {
		return "", err
	}
	id, _ := AsString(rows[0]["uuid"])
	return id, nil
}

// upsertLocked finds the first node matching match and updates it, or
// creates it. Ladybug cannot assign a primary key from ON CREATE SET, so
// the merge is split into a lookup and a write.
func (k *LadybugDriver) upsertLocked(label string, match, set Props, now time.Time) (*Node, error) {
	id, err := k.firstUUIDLocked(NodeRef{Label: label, Match: match})
	if err != nil {
		return nil, err
	}

	b := newCypherBuilder(dialectLadybug)
	var query string
	if id == "" {
		props := match.Clone()
		for key, v := range set {
			if _, ok := match[key]; !ok {
				props[key] = v
			}
		}
		props["uuid"] = utils.GenerateUUID()
		props["created_at"] = now
		props["updated_at"] = now
		query = fmt.Sprintf("CREATE %s\nRETURN %s", b.node("n", label, props), strings.Join(b.projectNode("n", label), ", "))
	} else {
		sets := append([]string{"n.updated_at = " + b.param(now)}, b.setList("n", set, match)...)
		query = fmt.Sprintf("MATCH %s\nSET %s\nRETURN %s",
			b.node("n", label, Props{"uuid": id}), strings.Join(sets, ", "), strings.Join(b.projectNode("n", label), ", "))
	}

	rows, err := k.execLocked(query, b.params)
	if err != nil {
		return nil, err
	}
	return firstNode(dialectLadybug, ladybugRows(rows), label)
}

// UpsertNode merges a node by label and match properties.
func (k *LadybugDriver) UpsertNode(ctx context.Context, label string, match, set Props) (*Node, error) {
	if err := validateUpsert(NodeRef{Label: label, Match: match}, set); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	var node *Node
	err := k.inTransactionLocked(func() error {
		var err error
		node, err = k.upsertLocked(label, match, set, time.Now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s: %w", label, err)
	}
	return node, nil
}

// CreateNode unconditionally creates a node.
func (k *LadybugDriver) CreateNode(ctx context.Context, label string, attrs Props) (*Node, error) {
	if err := validateIdentifier(label); err != nil {
		return nil, err
	}
	if err := validateProps(attrs); err != nil {
		return nil, err
	}

	props := newNodeProps(attrs, utils.GenerateUUID(), time.Now())
	b := newCypherBuilder(dialectLadybug)
	if _, err := k.exec(ctx, b.compileCreateNode(label, props), b.params); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", label, err)
	}
	return &Node{UUID: props["uuid"].(string), Label: label, Props: props}, nil
}

// CreateAnchored creates a node linked from anchor in one statement.
func (k *LadybugDriver) CreateAnchored(ctx context.Context, anchor NodeRef, edgeType, label string, attrs Props) (*Node, error) {
	if err := validateAnchored(anchor, edgeType, label, attrs); err != nil {
		return nil, err
	}

	props := newNodeProps(attrs, utils.GenerateUUID(), time.Now())
	b := newCypherBuilder(dialectLadybug)
	rows, err := k.exec(ctx, b.compileCreateAnchored(anchor, edgeType, label, props), b.params)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", label, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s %v", ErrAnchorNotFound, anchor.Label, anchor.Match)
	}
	return &Node{UUID: props["uuid"].(string), Label: label, Props: props}, nil
}

// UpsertAnchored merges a node and its edge from anchor in one transaction.
func (k *LadybugDriver) UpsertAnchored(ctx context.Context, anchor NodeRef, edgeType, label string, match, set Props) (*Node, error) {
	if err := validateAnchored(anchor, edgeType, label, set); err != nil {
		return nil, err
	}
	if err := validateUpsert(NodeRef{Label: label, Match: match}, set); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	var node *Node
	err := k.inTransactionLocked(func() error {
		anchorUUID, err := k.firstUUIDLocked(anchor)
		if err != nil {
			return err
		}
		if anchorUUID == "" {
			return fmt.Errorf("%w: %s %v", ErrAnchorNotFound, anchor.Label, anchor.Match)
		}
		node, err = k.upsertLocked(label, match, set, time.Now())
		if err != nil {
			return err
		}
		b := newCypherBuilder(dialectLadybug)
		_, err = k.execLocked(fmt.Sprintf("MATCH %s\nMATCH %s\nMERGE (a)-[:%s]->(n)",
			b.node("a", anchor.Label, Props{"uuid": anchorUUID}),
			b.node("n", label, Props{"uuid": node.UUID}), edgeType), b.params)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrAnchorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to upsert %s: %w", label, err)
	}
	return node, nil
}

// CreateEdge links the first nodes matching from and to.
func (k *LadybugDriver) CreateEdge(ctx context.Context, from, to NodeRef, edgeType string, attrs Props, mode EdgeMode) (*Edge, error) {
	if err := validateEdge(from, to, edgeType); err != nil {
		return nil, err
	}
	if err := validateProps(attrs); err != nil {
		return nil, err
	}

	b := newCypherBuilder(dialectLadybug)
	rows, err := k.exec(ctx, b.compileCreateEdge(from, to, edgeType, attrs, mode), b.params)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s edge: %w", edgeType, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s edge endpoints", ErrNodeNotFound, edgeType)
	}
	return decodeEdgeRow(dialectLadybug, rows[0], edgeType), nil
}

// MergeEdge upserts the edge between every pair of matching endpoints.
func (k *LadybugDriver) MergeEdge(ctx context.Context, from, to NodeRef, edgeType string, update EdgeUpdate) ([]*Edge, error) {
	if err := validateEdge(from, to, edgeType); err != nil {
		return nil, err
	}
	if err := update.validate(); err != nil {
		return nil, err
	}

	b := newCypherBuilder(dialectLadybug)
	rows, err := k.exec(ctx, b.compileMergeEdge(from, to, edgeType, update), b.params)
	if err != nil {
		return nil, fmt.Errorf("failed to merge %s edge: %w", edgeType, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s edge endpoints", ErrNodeNotFound, edgeType)
	}
	edges := make([]*Edge, len(rows))
	for i, r := range rows {
		edges[i] = decodeEdgeRow(dialectLadybug, r, edgeType)
	}
	return edges, nil
}

// Query returns one Record per pattern match.
func (k *LadybugDriver) Query(ctx context.Context, pattern *Pattern) ([]Record, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}

	b := newCypherBuilder(dialectLadybug)
	rows, err := k.exec(ctx, b.compileQuery(pattern), b.params)
	if err != nil {
		return nil, fmt.Errorf("failed to query graph: %w", err)
	}
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = decodeRecord(dialectLadybug, r, pattern)
	}
	return out, nil
}

// CountMatches counts distinct nodes bound to the pattern's last alias.
func (k *LadybugDriver) CountMatches(ctx context.Context, pattern *Pattern) (int64, error) {
	if err := pattern.Validate(); err != nil {
		return 0, err
	}
	b := newCypherBuilder(dialectLadybug)
	return k.count(ctx, b.compileCount(pattern), b.params)
}

// Count returns the number of nodes with label.
func (k *LadybugDriver) Count(ctx context.Context, label string) (int64, error) {
	if err := validateIdentifier(label); err != nil {
		return 0, err
	}
	return k.count(ctx, fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS count", label), nil)
}

func (k *LadybugDriver) count(ctx context.Context, query string, params map[string]any) (int64, error) {
	rows, err := k.exec(ctx, query, params)
	if err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	c, _ := AsInt64(rows[0]["count"])
	return c, nil
}

// VectorSearch ranks candidates by exact cosine similarity.
func (k *LadybugDriver) VectorSearch(ctx context.Context, q VectorQuery) ([]ScoredNode, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if utils.IsZeroVector(q.Vector) {
		return nil, nil
	}

	b := newCypherBuilder(dialectLadybug)
	rows, err := k.exec(ctx, b.compileExactVectorSearch(q), b.params)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	hits := make([]ScoredNode, 0, len(rows))
	for _, r := range rows {
		node, ok := decodeNode(dialectLadybug, r, "n", q.Label)
		if !ok {
			continue
		}
		score, ok := AsFloat64(r["score"])
		if !ok || math.IsNaN(score) || utils.IsZeroVector(node.Vector(q.Property)) {
			continue
		}
		hits = append(hits, ScoredNode{Node: node, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > q.K {
		hits = hits[:q.K]
	}
	return hits, nil
}

// CreateIndices ensures the schema exists. Primary keys are the only
// indexes Ladybug maintains, and vector ranking is an exact scan.
func (k *LadybugDriver) CreateIndices(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return k.setupSchema()
}

// Clear removes every node and edge.
func (k *LadybugDriver) Clear(ctx context.Context) error {
	_, err := k.exec(ctx, "MATCH (n) DETACH DELETE n", nil)
	return err
}

// VerifyConnectivity runs a trivial query.
func (k *LadybugDriver) VerifyConnectivity(ctx context.Context) error {
	_, err := k.exec(ctx, "RETURN 1 AS ok", nil)
	return err
}

// Provider returns the provider type.
func (k *LadybugDriver) Provider() GraphProvider {
	return GraphProviderLadybug
}

// Close releases the connection and database.
func (k *LadybugDriver) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil
	}
	k.closed = true
	if k.client != nil {
		k.client.Close()
	}
	if k.db != nil {
		k.db.Close()
	}
	return nil
}

func ladybugRows(rows []mapRow) []row {
	out := make([]row, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

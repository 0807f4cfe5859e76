package driver

import (
	"context"
)

// This file defines focused interfaces that follow the Interface Segregation Principle.
// The GraphStore interface is composed from these smaller interfaces.
// Consumers should depend on the smallest interface that meets their needs.

// NodeWriter provides node creation and upsert.
type NodeWriter interface {
	// UpsertNode merges a node by label and match properties. On create it
	// assigns uuid and created_at; set and updated_at are always written.
	UpsertNode(ctx context.Context, label string, match, set Props) (*Node, error)

	// CreateNode unconditionally creates a node.
	CreateNode(ctx context.Context, label string, attrs Props) (*Node, error)

	// CreateAnchored creates a node and links it from anchor in a single
	// conditional write. Returns ErrAnchorNotFound and writes nothing when
	// the anchor does not exist.
	CreateAnchored(ctx context.Context, anchor NodeRef, edgeType, label string, attrs Props) (*Node, error)

	// UpsertAnchored merges a node and links it from anchor in a single
	// conditional write. Returns ErrAnchorNotFound when the anchor does not exist.
	UpsertAnchored(ctx context.Context, anchor NodeRef, edgeType, label string, match, set Props) (*Node, error)
}

// EdgeWriter provides relationship writes.
type EdgeWriter interface {
	// CreateEdge links the first nodes matching from and to. Returns
	// ErrNodeNotFound when either endpoint is missing.
	CreateEdge(ctx context.Context, from, to NodeRef, edgeType string, attrs Props, mode EdgeMode) (*Edge, error)

	// MergeEdge upserts the edge between every pair of matching endpoints
	// and returns the resulting edges. Returns ErrNodeNotFound when nothing matched.
	MergeEdge(ctx context.Context, from, to NodeRef, edgeType string, update EdgeUpdate) ([]*Edge, error)
}

// GraphReader provides read-only pattern queries.
type GraphReader interface {
	// Query returns one Record per pattern match.
	Query(ctx context.Context, pattern *Pattern) ([]Record, error)

	// CountMatches counts the distinct nodes bound to the last node alias
	// of the pattern.
	CountMatches(ctx context.Context, pattern *Pattern) (int64, error)

	// Count returns the number of nodes with label.
	Count(ctx context.Context, label string) (int64, error)
}

// VectorSearcher provides similarity search over stored vectors.
type VectorSearcher interface {
	// VectorSearch returns up to q.K nodes ordered by descending cosine
	// similarity. Nodes with a zero or missing vector are never returned.
	VectorSearch(ctx context.Context, q VectorQuery) ([]ScoredNode, error)
}

// DatabaseAdmin provides administrative operations for database maintenance.
type DatabaseAdmin interface {
	// CreateIndices creates property indexes, uniqueness constraints and
	// the chunk vector index. Existing indexes are left untouched.
	CreateIndices(ctx context.Context) error

	// Clear removes every node and edge. Administrative use only.
	Clear(ctx context.Context) error

	// VerifyConnectivity checks that the backend is reachable.
	VerifyConnectivity(ctx context.Context) error
}

// GraphStore is the full store interface used by studygraph.
type GraphStore interface {
	NodeWriter
	EdgeWriter
	GraphReader
	VectorSearcher
	DatabaseAdmin

	// Provider returns the type of graph database provider.
	Provider() GraphProvider

	// Close releases all resources held by the store.
	Close() error
}

var (
	_ GraphStore = (*Neo4jDriver)(nil)
	_ GraphStore = (*LadybugDriver)(nil)
	_ GraphStore = (*MemoryDriver)(nil)
)

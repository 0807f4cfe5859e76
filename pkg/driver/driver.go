package driver

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/soundprediction/studygraph/pkg/types"
)

// GraphProvider represents the type of graph database provider
type GraphProvider string

const (
	GraphProviderNeo4j   GraphProvider = "neo4j"
	GraphProviderLadybug GraphProvider = "ladybug"
	GraphProviderMemory  GraphProvider = "memory"
)

var (
	// ErrNodeNotFound is returned when an edge endpoint does not match any node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrAnchorNotFound is returned by anchored writes when the anchor node
	// does not exist. Nothing is written in that case.
	ErrAnchorNotFound = errors.New("anchor node not found")

	// ErrInvalidIdentifier is returned for labels, types or keys that are
	// not plain identifiers.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidPattern is returned for malformed query patterns.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("graph store is closed")
)

// Props is a set of node or edge properties.
type Props map[string]any

// Clone returns a shallow copy of p.
func (p Props) Clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// sortedKeys returns the keys of p in lexical order so generated queries
// are stable.
func (p Props) sortedKeys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Node is a labelled node read from the store.
type Node struct {
	UUID  string `json:"uuid"`
	Label string `json:"label"`
	Props Props  `json:"props"`
}

// String returns a string property or "".
func (n *Node) String(key string) string {
	s, _ := AsString(n.Props[key])
	return s
}

// Int returns an integer property or 0.
func (n *Node) Int(key string) int {
	i, _ := AsInt64(n.Props[key])
	return int(i)
}

// Int64 returns an integer property or 0.
func (n *Node) Int64(key string) int64 {
	i, _ := AsInt64(n.Props[key])
	return i
}

// Strings returns a string list property or nil.
func (n *Node) Strings(key string) []string {
	s, _ := AsStringSlice(n.Props[key])
	return s
}

// Vector returns a float list property as []float32 or nil.
func (n *Node) Vector(key string) []float32 {
	v, _ := AsFloat32Slice(n.Props[key])
	return v
}

// Time returns a time property or the zero time.
func (n *Node) Time(key string) time.Time {
	t, _ := AsTime(n.Props[key])
	return t
}

// Edge is a typed relationship read from the store. From and To hold the
// uuids of the source and target nodes.
type Edge struct {
	Type  string `json:"type"`
	From  string `json:"from"`
	To    string `json:"to"`
	Props Props  `json:"props"`
}

// Int64 returns an integer property or 0.
func (e *Edge) Int64(key string) int64 {
	i, _ := AsInt64(e.Props[key])
	return i
}

// Time returns a time property or the zero time.
func (e *Edge) Time(key string) time.Time {
	t, _ := AsTime(e.Props[key])
	return t
}

// NodeRef selects nodes by label and property equality.
type NodeRef struct {
	Label string
	Match Props
}

// Ref builds a NodeRef.
func Ref(label string, match Props) NodeRef {
	return NodeRef{Label: label, Match: match}
}

func (r NodeRef) validate() error {
	if err := validateIdentifier(r.Label); err != nil {
		return err
	}
	for k := range r.Match {
		if err := validateIdentifier(k); err != nil {
			return err
		}
	}
	return nil
}

// EdgeMode selects merge or create semantics for CreateEdge.
type EdgeMode int

const (
	// EdgeMerge creates the edge only if no edge of the same type already
	// joins the two endpoints.
	EdgeMerge EdgeMode = iota
	// EdgeCreate always creates a new edge.
	EdgeCreate
)

// EdgeUpdate describes an edge upsert. OnCreate is applied only when the
// edge is new, Set always. Increment adds to counters on match and
// initialises them on create.
type EdgeUpdate struct {
	OnCreate  Props
	Set       Props
	Increment map[string]int64
}

func (u EdgeUpdate) validate() error {
	for _, p := range []Props{u.OnCreate, u.Set} {
		for k := range p {
			if err := validateIdentifier(k); err != nil {
				return err
			}
		}
	}
	for k := range u.Increment {
		if err := validateIdentifier(k); err != nil {
			return err
		}
	}
	return nil
}

// Record is one row of a pattern query, keyed by alias.
type Record struct {
	Nodes map[string]*Node
	Edges map[string]*Edge
}

// Node returns the node bound to alias, or nil.
func (r Record) Node(alias string) *Node {
	return r.Nodes[alias]
}

// Edge returns the edge bound to alias, or nil.
func (r Record) Edge(alias string) *Edge {
	return r.Edges[alias]
}

// Reachability restricts a vector search to nodes reachable from an anchor
// through one edge of the given type: (anchor)-[:EdgeType]->(candidate).
type Reachability struct {
	Anchor   NodeRef
	EdgeType string
}

// VectorQuery describes a similarity search over a vector index.
type VectorQuery struct {
	// IndexName is the backend vector index, used when the backend has one.
	IndexName string
	// Label and Property identify the indexed vectors.
	Label    string
	Property string
	Vector   []float32
	K        int
	Filter   *Reachability
}

func (q VectorQuery) validate() error {
	if q.K <= 0 {
		return fmt.Errorf("%w: k must be positive", ErrInvalidPattern)
	}
	if len(q.Vector) == 0 {
		return fmt.Errorf("%w: empty query vector", ErrInvalidPattern)
	}
	if err := validateIdentifier(q.Label); err != nil {
		return err
	}
	if err := validateIdentifier(q.Property); err != nil {
		return err
	}
	if q.Filter != nil {
		if err := q.Filter.Anchor.validate(); err != nil {
			return err
		}
		if err := validateIdentifier(q.Filter.EdgeType); err != nil {
			return err
		}
	}
	return nil
}

// ScoredNode is a vector search hit.
type ScoredNode struct {
	Node  *Node
	Score float64
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateIdentifier guards every label, type and key that is interpolated
// into a query string.
func validateIdentifier(s string) error {
	if !identifierPattern.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
	}
	return nil
}

func validateProps(p Props) error {
	for k := range p {
		if err := validateIdentifier(k); err != nil {
			return err
		}
	}
	return nil
}

// Options configures a backend. Fields left zero take their defaults.
type Options struct {
	// EmbeddingDim is the length of stored vectors and of the vector index.
	EmbeddingDim int
	// MaxConnectionPoolSize caps open connections to a server backend.
	MaxConnectionPoolSize int
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration
	// MaxConcurrentQueries bounds embedded backends that serialise access.
	MaxConcurrentQueries int
}

// Option mutates Options.
type Option func(*Options)

// WithEmbeddingDim sets the vector length.
func WithEmbeddingDim(dim int) Option {
	return func(o *Options) { o.EmbeddingDim = dim }
}

// WithMaxConnectionPoolSize sets the connection pool size.
func WithMaxConnectionPoolSize(n int) Option {
	return func(o *Options) { o.MaxConnectionPoolSize = n }
}

// WithConnectTimeout sets the connection timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) { o.ConnectTimeout = d }
}

// WithMaxConcurrentQueries sets the query concurrency of embedded backends.
func WithMaxConcurrentQueries(n int) Option {
	return func(o *Options) { o.MaxConcurrentQueries = n }
}

func applyOptions(opts []Option) Options {
	o := Options{
		EmbeddingDim:          types.DefaultEmbeddingDim,
		MaxConnectionPoolSize: 50,
		ConnectTimeout:        10 * time.Second,
		MaxConcurrentQueries:  1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.EmbeddingDim <= 0 {
		o.EmbeddingDim = types.DefaultEmbeddingDim
	}
	return o
}

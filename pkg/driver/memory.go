package driver

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soundprediction/studygraph/pkg/utils"
)

// MemoryDriver is an in-process GraphStore. Nodes and edges are kept in
// insertion order, which makes result order deterministic wherever the
// query itself leaves ties.
type MemoryDriver struct {
	mu     sync.RWMutex
	nodes  []*Node
	byUUID map[string]*Node
	edges  []*Edge
	closed bool
}

// NewMemoryDriver returns an empty in-memory store.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{byUUID: make(map[string]*Node)}
}

func (m *MemoryDriver) checkOpen() error {
	if m.closed {
		return ErrStoreClosed
	}
	return nil
}

// UpsertNode merges a node by label and match properties.
func (m *MemoryDriver) UpsertNode(ctx context.Context, label string, match, set Props) (*Node, error) {
	if err := validateUpsert(NodeRef{Label: label, Match: match}, set); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	return cloneNode(m.upsertLocked(label, match, set, time.Now())), nil
}

func (m *MemoryDriver) upsertLocked(label string, match, set Props, now time.Time) *Node {
	node := m.firstLocked(NodeRef{Label: label, Match: match})
	if node == nil {
		node = m.insertLocked(label, match, now)
	}
	for k, v := range set {
		if _, ok := match[k]; ok {
			continue
		}
		node.Props[k] = storeValue(v)
	}
	node.Props["updated_at"] = now.UTC()
	return node
}

// CreateNode unconditionally creates a node.
func (m *MemoryDriver) CreateNode(ctx context.Context, label string, attrs Props) (*Node, error) {
	if err := validateIdentifier(label); err != nil {
		return nil, err
	}
	if err := validateProps(attrs); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	return cloneNode(m.insertLocked(label, attrs, time.Now())), nil
}

// CreateAnchored creates a node linked from the first anchor match, or
// nothing when the anchor is missing.
func (m *MemoryDriver) CreateAnchored(ctx context.Context, anchor NodeRef, edgeType, label string, attrs Props) (*Node, error) {
	if err := validateAnchored(anchor, edgeType, label, attrs); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	a := m.firstLocked(anchor)
	if a == nil {
		return nil, fmt.Errorf("%w: %s %v", ErrAnchorNotFound, anchor.Label, anchor.Match)
	}
	node := m.insertLocked(label, attrs, time.Now())
	m.edges = append(m.edges, &Edge{Type: edgeType, From: a.UUID, To: node.UUID, Props: Props{}})
	return cloneNode(node), nil
}

// UpsertAnchored merges a node and its edge from the first anchor match.
func (m *MemoryDriver) UpsertAnchored(ctx context.Context, anchor NodeRef, edgeType, label string, match, set Props) (*Node, error) {
	if err := validateAnchored(anchor, edgeType, label, set); err != nil {
		return nil, err
	}
	if err := validateUpsert(NodeRef{Label: label, Match: match}, set); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	a := m.firstLocked(anchor)
	if a == nil {
		return nil, fmt.Errorf("%w: %s %v", ErrAnchorNotFound, anchor.Label, anchor.Match)
	}
	node := m.upsertLocked(label, match, set, time.Now())
	if m.edgeLocked(edgeType, a.UUID, node.UUID) == nil {
		m.edges = append(m.edges, &Edge{Type: edgeType, From: a.UUID, To: node.UUID, Props: Props{}})
	}
	return cloneNode(node), nil
}

// CreateEdge links the first nodes matching from and to.
func (m *MemoryDriver) CreateEdge(ctx context.Context, from, to NodeRef, edgeType string, attrs Props, mode EdgeMode) (*Edge, error) {
	if err := validateEdge(from, to, edgeType); err != nil {
		return nil, err
	}
	if err := validateProps(attrs); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	a, b := m.firstLocked(from), m.firstLocked(to)
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: %s edge endpoints", ErrNodeNotFound, edgeType)
	}

	var edge *Edge
	if mode == EdgeMerge {
		edge = m.edgeLocked(edgeType, a.UUID, b.UUID)
	}
	if edge == nil {
		edge = &Edge{Type: edgeType, From: a.UUID, To: b.UUID, Props: Props{}}
		m.edges = append(m.edges, edge)
	}
	for k, v := range attrs {
		edge.Props[k] = storeValue(v)
	}
	return cloneEdge(edge), nil
}

// MergeEdge upserts the edge between every pair of matching endpoints.
func (m *MemoryDriver) MergeEdge(ctx context.Context, from, to NodeRef, edgeType string, update EdgeUpdate) ([]*Edge, error) {
	if err := validateEdge(from, to, edgeType); err != nil {
		return nil, err
	}
	if err := update.validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	sources, targets := m.allLocked(from), m.allLocked(to)
	if len(sources) == 0 || len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s edge endpoints", ErrNodeNotFound, edgeType)
	}

	var out []*Edge
	for _, a := range sources {
		for _, b := range targets {
			edge := m.edgeLocked(edgeType, a.UUID, b.UUID)
			if edge == nil {
				edge = &Edge{Type: edgeType, From: a.UUID, To: b.UUID, Props: Props{}}
				m.edges = append(m.edges, edge)
				for k, v := range update.OnCreate {
					edge.Props[k] = storeValue(v)
				}
				for k, inc := range update.Increment {
					edge.Props[k] = inc
				}
			} else {
				for k, inc := range update.Increment {
					cur, _ := AsInt64(edge.Props[k])
					edge.Props[k] = cur + inc
				}
			}
			for k, v := range update.Set {
				edge.Props[k] = storeValue(v)
			}
			out = append(out, cloneEdge(edge))
		}
	}
	return out, nil
}

// Query returns one Record per pattern match.
func (m *MemoryDriver) Query(ctx context.Context, pattern *Pattern) ([]Record, error) {
	if err := pattern.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	bindings := m.matchLocked(pattern)
	sortBindings(bindings, pattern)
	if pattern.limit > 0 && len(bindings) > pattern.limit {
		bindings = bindings[:pattern.limit]
	}

	out := make([]Record, len(bindings))
	for i, bnd := range bindings {
		rec := Record{Nodes: make(map[string]*Node), Edges: make(map[string]*Edge)}
		for alias, n := range bnd.nodes {
			rec.Nodes[alias] = cloneNode(n)
		}
		for alias, e := range bnd.edges {
			rec.Edges[alias] = cloneEdge(e)
		}
		out[i] = rec
	}
	return out, nil
}

// CountMatches counts distinct nodes bound to the pattern's last alias.
func (m *MemoryDriver) CountMatches(ctx context.Context, pattern *Pattern) (int64, error) {
	if err := pattern.Validate(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return 0, err
	}

	target := pattern.Target()
	seen := make(map[string]bool)
	for _, bnd := range m.matchLocked(pattern) {
		seen[bnd.nodes[target].UUID] = true
	}
	return int64(len(seen)), nil
}

// Count returns the number of nodes with label.
func (m *MemoryDriver) Count(ctx context.Context, label string) (int64, error) {
	if err := validateIdentifier(label); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return 0, err
	}

	var c int64
	for _, n := range m.nodes {
		if n.Label == label {
			c++
		}
	}
	return c, nil
}

// VectorSearch ranks candidates by exact cosine similarity. Ties keep
// insertion order.
func (m *MemoryDriver) VectorSearch(ctx context.Context, q VectorQuery) ([]ScoredNode, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	if utils.IsZeroVector(q.Vector) {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.checkOpen(); err != nil {
		return nil, err
	}

	var allowed map[string]bool
	if q.Filter != nil {
		allowed = make(map[string]bool)
		for _, a := range m.allLocked(q.Filter.Anchor) {
			for _, e := range m.edges {
				if e.Type == q.Filter.EdgeType && e.From == a.UUID {
					allowed[e.To] = true
				}
			}
		}
	}

	var hits []ScoredNode
	for _, n := range m.nodes {
		if n.Label != q.Label || (allowed != nil && !allowed[n.UUID]) {
			continue
		}
		vec, ok := AsFloat32Slice(n.Props[q.Property])
		if !ok || len(vec) != len(q.Vector) || utils.IsZeroVector(vec) {
			continue
		}
		hits = append(hits, ScoredNode{Node: n, Score: utils.CosineSimilarity(q.Vector, vec)})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > q.K {
		hits = hits[:q.K]
	}
	for i := range hits {
		hits[i].Node = cloneNode(hits[i].Node)
	}
	return hits, nil
}

// CreateIndices is a no-op for the memory store.
func (m *MemoryDriver) CreateIndices(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkOpen()
}

// Clear removes every node and edge.
func (m *MemoryDriver) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.nodes = nil
	m.edges = nil
	m.byUUID = make(map[string]*Node)
	return nil
}

// VerifyConnectivity reports ErrStoreClosed after Close.
func (m *MemoryDriver) VerifyConnectivity(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkOpen()
}

// Provider returns the provider type.
func (m *MemoryDriver) Provider() GraphProvider {
	return GraphProviderMemory
}

// Close releases the store. Later calls return ErrStoreClosed.
func (m *MemoryDriver) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MemoryDriver) insertLocked(label string, attrs Props, now time.Time) *Node {
	props := make(Props, len(attrs)+3)
	for k, v := range attrs {
		props[k] = storeValue(v)
	}
	id := utils.GenerateUUID()
	props["uuid"] = id
	props["created_at"] = now.UTC()
	node := &Node{UUID: id, Label: label, Props: props}
	m.nodes = append(m.nodes, node)
	m.byUUID[id] = node
	return node
}

func (m *MemoryDriver) firstLocked(ref NodeRef) *Node {
	for _, n := range m.nodes {
		if nodeMatches(n, ref.Label, ref.Match) {
			return n
		}
	}
	return nil
}

func (m *MemoryDriver) allLocked(ref NodeRef) []*Node {
	var out []*Node
	for _, n := range m.nodes {
		if nodeMatches(n, ref.Label, ref.Match) {
			out = append(out, n)
		}
	}
	return out
}

func (m *MemoryDriver) edgeLocked(edgeType, from, to string) *Edge {
	for _, e := range m.edges {
		if e.Type == edgeType && e.From == from && e.To == to {
			return e
		}
	}
	return nil
}

type binding struct {
	nodes map[string]*Node
	edges map[string]*Edge
}

func (b binding) value(alias, property string) any {
	if n, ok := b.nodes[alias]; ok {
		return n.Props[property]
	}
	if e, ok := b.edges[alias]; ok {
		return e.Props[property]
	}
	return nil
}

// matchLocked expands the path depth first and filters by conditions.
func (m *MemoryDriver) matchLocked(p *Pattern) []binding {
	var out []binding
	nodes := make([]*Node, len(p.nodes))
	edges := make([]*Edge, len(p.edges))

	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(p.nodes) {
			b := binding{nodes: make(map[string]*Node, len(nodes)), edges: make(map[string]*Edge)}
			for i, n := range nodes {
				b.nodes[p.nodes[i].Alias] = n
			}
			for i, e := range edges {
				if p.edges[i].Alias != "" {
					b.edges[p.edges[i].Alias] = e
				}
			}
			if conditionsHold(b, p.conditions) {
				out = append(out, b)
			}
			return
		}

		np := p.nodes[depth]
		if depth == 0 {
			for _, n := range m.nodes {
				if nodeMatches(n, np.Label, np.Props) {
					nodes[0] = n
					walk(1)
				}
			}
			return
		}

		ep := p.edges[depth-1]
		prev := nodes[depth-1]
		for _, e := range m.edges {
			if e.Type != ep.Type || edgeUsed(edges[:depth-1], e) {
				continue
			}
			var next string
			switch {
			case !ep.Inbound && e.From == prev.UUID:
				next = e.To
			case ep.Inbound && e.To == prev.UUID:
				next = e.From
			default:
				continue
			}
			n := m.byUUID[next]
			if n == nil || !nodeMatches(n, np.Label, np.Props) {
				continue
			}
			nodes[depth] = n
			edges[depth-1] = e
			walk(depth + 1)
		}
	}
	walk(0)
	return out
}

func edgeUsed(edges []*Edge, e *Edge) bool {
	for _, used := range edges {
		if used == e {
			return true
		}
	}
	return false
}

func nodeMatches(n *Node, label string, props Props) bool {
	if n.Label != label {
		return false
	}
	for k, want := range props {
		if !valuesEqual(n.Props[k], want) {
			return false
		}
	}
	return true
}

func conditionsHold(b binding, conds []Condition) bool {
	for _, c := range conds {
		v := b.value(c.Alias, c.Property)
		if v == nil || c.Value == nil {
			return false
		}
		if c.Op == OpEq || c.Op == OpNe {
			eq := valuesEqual(v, c.Value)
			if eq != (c.Op == OpEq) {
				return false
			}
			continue
		}
		cmp, ok := compareValues(v, c.Value)
		if !ok {
			return false
		}
		switch c.Op {
		case OpLt:
			ok = cmp < 0
		case OpLte:
			ok = cmp <= 0
		case OpGt:
			ok = cmp > 0
		case OpGte:
			ok = cmp >= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

// sortBindings applies the pattern's order keys. Missing values sort after
// every present value in ascending order and before them in descending order.
func sortBindings(bindings []binding, p *Pattern) {
	if len(p.orders) == 0 {
		return
	}
	sort.SliceStable(bindings, func(i, j int) bool {
		for _, o := range p.orders {
			a, b := bindings[i].value(o.Alias, o.Property), bindings[j].value(o.Alias, o.Property)
			var cmp int
			switch {
			case a == nil && b == nil:
				cmp = 0
			case a == nil:
				cmp = 1
			case b == nil:
				cmp = -1
			default:
				cmp, _ = compareValues(a, b)
			}
			if o.Desc {
				cmp = -cmp
			}
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
}

func valuesEqual(a, b any) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(normalizeValue(a), normalizeValue(b))
}

// compareValues orders two scalars of compatible kinds.
func compareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if fa, ok := AsFloat64(a); ok {
		fb, ok := AsFloat64(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	if sa, ok := a.(string); ok {
		sb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(sa, sb), true
	}
	if ta, ok := AsTime(a); ok {
		tb, ok := AsTime(b)
		if !ok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	if ba, ok := a.(bool); ok {
		bb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case ba == bb:
			return 0, true
		case !ba:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// storeValue copies slices so callers cannot mutate stored properties.
func storeValue(v any) any {
	switch s := v.(type) {
	case []float32:
		return append([]float32(nil), s...)
	case []string:
		return append([]string(nil), s...)
	}
	return normalizeValue(v)
}

func cloneNode(n *Node) *Node {
	return &Node{UUID: n.UUID, Label: n.Label, Props: n.Props.Clone()}
}

func cloneEdge(e *Edge) *Edge {
	return &Edge{Type: e.Type, From: e.From, To: e.To, Props: e.Props.Clone()}
}

package driver

import (
	"fmt"
	"strings"
	"time"
)

// dialect selects how a Cypher statement projects and decodes its results.
// Neo4j returns whole node and relationship values; Ladybug returns one
// column per property, named alias__property.
type dialect int

const (
	dialectNeo4j dialect = iota
	dialectLadybug
)

const columnSep = "__"

// row is a single result row from either backend.
type row interface {
	get(key string) (any, bool)
}

type mapRow map[string]any

func (m mapRow) get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// cypherBuilder accumulates parameters while a statement is assembled.
type cypherBuilder struct {
	dialect dialect
	params  map[string]any
}

func newCypherBuilder(d dialect) *cypherBuilder {
	return &cypherBuilder{dialect: d, params: make(map[string]any)}
}

// param registers a value and returns its placeholder.
func (b *cypherBuilder) param(v any) string {
	if b.dialect == dialectLadybug {
		if literal, ok := ladybugLiteral(v); ok {
			return literal
		}
	}
	name := fmt.Sprintf("p%d", len(b.params))
	b.params[name] = normalizeValue(v)
	return "$" + name
}

// propMap renders {k: $p0, ...} or "" for no properties.
func (b *cypherBuilder) propMap(p Props) string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, 0, len(p))
	for _, k := range p.sortedKeys() {
		parts = append(parts, fmt.Sprintf("%s: %s", k, b.param(p[k])))
	}
	return " {" + strings.Join(parts, ", ") + "}"
}

func (b *cypherBuilder) node(alias, label string, p Props) string {
	return fmt.Sprintf("(%s:%s%s)", alias, label, b.propMap(p))
}

// setList renders alias.k = $pN for each property, skipping keys in skip.
func (b *cypherBuilder) setList(alias string, p Props, skip Props) []string {
	parts := make([]string, 0, len(p))
	for _, k := range p.sortedKeys() {
		if _, ok := skip[k]; ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s.%s = %s", alias, k, b.param(p[k])))
	}
	return parts
}

// projectNode renders the RETURN items for a node alias.
func (b *cypherBuilder) projectNode(alias, label string) []string {
	if b.dialect == dialectNeo4j {
		return []string{alias}
	}
	props := nodeProperties(label)
	items := make([]string, len(props))
	for i, p := range props {
		items[i] = fmt.Sprintf("%s.%s AS %s%s%s", alias, p, alias, columnSep, p)
	}
	return items
}

// projectEdge renders the RETURN items for an edge alias.
func (b *cypherBuilder) projectEdge(alias, edgeType string) []string {
	if b.dialect == dialectNeo4j {
		return []string{alias}
	}
	props := edgeProperties(edgeType)
	items := make([]string, len(props))
	for i, p := range props {
		items[i] = fmt.Sprintf("%s.%s AS %s%s%s", alias, p, alias, columnSep, p)
	}
	return items
}

// orderKey renders a sort key. Ladybug sorts on the projected column.
func (b *cypherBuilder) orderKey(alias, property string) string {
	if b.dialect == dialectNeo4j {
		return alias + "." + property
	}
	return alias + columnSep + property
}

// matchClause renders MATCH <path> [WHERE ...] for a pattern.
func (b *cypherBuilder) matchClause(p *Pattern) string {
	var sb strings.Builder
	sb.WriteString("MATCH ")
	for i, n := range p.nodes {
		if i > 0 {
			e := p.edges[i-1]
			if e.Inbound {
				fmt.Fprintf(&sb, "<-[%s:%s]-", e.Alias, e.Type)
			} else {
				fmt.Fprintf(&sb, "-[%s:%s]->", e.Alias, e.Type)
			}
		}
		sb.WriteString(b.node(n.Alias, n.Label, n.Props))
	}
	if len(p.conditions) > 0 {
		conds := make([]string, len(p.conditions))
		for i, c := range p.conditions {
			conds[i] = fmt.Sprintf("%s.%s %s %s", c.Alias, c.Property, c.Op, b.param(c.Value))
		}
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	return sb.String()
}

// compileQuery renders a read query returning every node and named edge.
func (b *cypherBuilder) compileQuery(p *Pattern) string {
	var items []string
	for _, n := range p.nodes {
		items = append(items, b.projectNode(n.Alias, n.Label)...)
	}
	for _, e := range p.edges {
		if e.Alias != "" {
			items = append(items, b.projectEdge(e.Alias, e.Type)...)
		}
	}

	var sb strings.Builder
	sb.WriteString(b.matchClause(p))
	sb.WriteString("\nRETURN ")
	sb.WriteString(strings.Join(items, ", "))
	if len(p.orders) > 0 {
		keys := make([]string, len(p.orders))
		for i, o := range p.orders {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			keys[i] = b.orderKey(o.Alias, o.Property) + " " + dir
		}
		sb.WriteString("\nORDER BY ")
		sb.WriteString(strings.Join(keys, ", "))
	}
	if p.limit > 0 {
		sb.WriteString("\nLIMIT ")
		sb.WriteString(b.param(int64(p.limit)))
	}
	return sb.String()
}

// compileCount renders a distinct count of the pattern's last node.
func (b *cypherBuilder) compileCount(p *Pattern) string {
	return fmt.Sprintf("%s\nRETURN count(DISTINCT %s) AS count", b.matchClause(p), p.Target())
}

// compileCreateNode renders an unconditional create. Only the uuid is
// returned; the caller already holds every other property.
func (b *cypherBuilder) compileCreateNode(label string, props Props) string {
	return fmt.Sprintf("CREATE %s\nRETURN n.uuid AS uuid", b.node("n", label, props))
}

// compileCreateAnchored renders the single conditional write
// MATCH anchor, CREATE node, CREATE edge. No row is returned when the
// anchor is missing.
func (b *cypherBuilder) compileCreateAnchored(anchor NodeRef, edgeType, label string, props Props) string {
	return fmt.Sprintf(`%s
WITH a LIMIT 1
CREATE %s
CREATE (a)-[:%s]->(n)
RETURN n.uuid AS uuid`,
		"MATCH "+b.node("a", anchor.Label, anchor.Match),
		b.node("n", label, props),
		edgeType)
}

// compileUpsertNode renders a MERGE by match properties.
func (b *cypherBuilder) compileUpsertNode(label string, match, set Props, uuid string, now time.Time) string {
	return b.mergeNode(label, match, set, uuid, now) + "\nRETURN " + strings.Join(b.projectNode("n", label), ", ")
}

// compileUpsertAnchored renders MATCH anchor, MERGE node, MERGE edge.
func (b *cypherBuilder) compileUpsertAnchored(anchor NodeRef, edgeType, label string, match, set Props, uuid string, now time.Time) string {
	head := "MATCH " + b.node("a", anchor.Label, anchor.Match) + "\nWITH a LIMIT 1\n"
	return head + b.mergeNode(label, match, set, uuid, now) +
		fmt.Sprintf("\nMERGE (a)-[:%s]->(n)\nRETURN ", edgeType) +
		strings.Join(b.projectNode("n", label), ", ")
}

func (b *cypherBuilder) mergeNode(label string, match, set Props, uuid string, now time.Time) string {
	nowParam := b.param(now)
	var sb strings.Builder
	sb.WriteString("MERGE ")
	sb.WriteString(b.node("n", label, match))
	fmt.Fprintf(&sb, "\nON CREATE SET n.uuid = %s, n.created_at = %s", b.param(uuid), nowParam)
	sets := append([]string{"n.updated_at = " + nowParam}, b.setList("n", set, match)...)
	sb.WriteString("\nSET ")
	sb.WriteString(strings.Join(sets, ", "))
	return sb.String()
}

// compileCreateEdge renders MATCH both endpoints, MERGE or CREATE the edge.
func (b *cypherBuilder) compileCreateEdge(from, to NodeRef, edgeType string, attrs Props, mode EdgeMode) string {
	verb := "MERGE"
	if mode == EdgeCreate {
		verb = "CREATE"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "MATCH %s\nMATCH %s\nWITH a, b LIMIT 1\n%s (a)-[r:%s]->(b)",
		b.node("a", from.Label, from.Match), b.node("b", to.Label, to.Match), verb, edgeType)
	if sets := b.setList("r", attrs, nil); len(sets) > 0 {
		sb.WriteString("\nSET ")
		sb.WriteString(strings.Join(sets, ", "))
	}
	sb.WriteString(b.edgeReturn(edgeType))
	return sb.String()
}

// compileMergeEdge renders an edge upsert with create, match and set clauses.
func (b *cypherBuilder) compileMergeEdge(from, to NodeRef, edgeType string, u EdgeUpdate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "MATCH %s\nMATCH %s\nMERGE (a)-[r:%s]->(b)",
		b.node("a", from.Label, from.Match), b.node("b", to.Label, to.Match), edgeType)

	onCreate := b.setList("r", u.OnCreate, nil)
	var onMatch []string
	for _, k := range sortedCounterKeys(u.Increment) {
		p := b.param(u.Increment[k])
		onCreate = append(onCreate, fmt.Sprintf("r.%s = %s", k, p))
		onMatch = append(onMatch, fmt.Sprintf("r.%s = coalesce(r.%s, 0) + %s", k, k, p))
	}
	if len(onCreate) > 0 {
		sb.WriteString("\nON CREATE SET ")
		sb.WriteString(strings.Join(onCreate, ", "))
	}
	if len(onMatch) > 0 {
		sb.WriteString("\nON MATCH SET ")
		sb.WriteString(strings.Join(onMatch, ", "))
	}
	if sets := b.setList("r", u.Set, nil); len(sets) > 0 {
		sb.WriteString("\nSET ")
		sb.WriteString(strings.Join(sets, ", "))
	}
	sb.WriteString(b.edgeReturn(edgeType))
	return sb.String()
}

func (b *cypherBuilder) edgeReturn(edgeType string) string {
	items := append([]string{"a.uuid AS from_uuid", "b.uuid AS to_uuid"}, b.projectEdge("r", edgeType)...)
	return "\nRETURN " + strings.Join(items, ", ")
}

// compileExactVectorSearch renders a brute-force cosine ranking, optionally
// restricted to nodes reachable from an anchor. Ranking happens after the
// restriction so filtered searches are never short.
func (b *cypherBuilder) compileExactVectorSearch(q VectorQuery) string {
	var sb strings.Builder
	if q.Filter != nil {
		fmt.Fprintf(&sb, "MATCH %s-[:%s]->(n:%s)", b.node("a", q.Filter.Anchor.Label, q.Filter.Anchor.Match), q.Filter.EdgeType, q.Label)
	} else {
		fmt.Fprintf(&sb, "MATCH (n:%s)", q.Label)
	}
	fmt.Fprintf(&sb, "\nWHERE n.%s IS NOT NULL", q.Property)
	if b.dialect == dialectLadybug {
		fmt.Fprintf(&sb, " AND size(n.%s) = %d", q.Property, len(q.Vector))
	}
	sb.WriteString("\nWITH DISTINCT n")

	vec := b.param(q.Vector)
	if b.dialect == dialectNeo4j {
		fmt.Fprintf(&sb, "\nWITH n, vector.similarity.cosine(n.%s, %s) AS score\nWHERE score IS NOT NULL", q.Property, vec)
	} else {
		fmt.Fprintf(&sb, "\nWITH n, array_cosine_similarity(n.%s, CAST(%s AS FLOAT[%d])) AS score", q.Property, vec, len(q.Vector))
	}
	items := append(b.projectNode("n", q.Label), "score")
	fmt.Fprintf(&sb, "\nRETURN %s\nORDER BY score DESC", strings.Join(items, ", "))
	// Ladybug scores zero vectors as NaN, which has no place in ORDER BY;
	// its caller drops them and applies K itself.
	if b.dialect == dialectNeo4j {
		fmt.Fprintf(&sb, "\nLIMIT %s", b.param(int64(q.K)))
	}
	return sb.String()
}

// ladybugLiteral types values Ladybug cannot infer from a parameter: empty
// lists need an explicit cast. Zero vectors are ordinary parameters and are
// stored as written.
func ladybugLiteral(v any) (string, bool) {
	switch s := v.(type) {
	case []string:
		if len(s) == 0 {
			return "CAST([] AS STRING[])", true
		}
	case []float32:
		if len(s) == 0 {
			return "CAST([] AS FLOAT[])", true
		}
	case []float64:
		if len(s) == 0 {
			return "CAST([] AS FLOAT[])", true
		}
	}
	return "", false
}

func sortedCounterKeys(m map[string]int64) []string {
	p := make(Props, len(m))
	for k := range m {
		p[k] = nil
	}
	return p.sortedKeys()
}

// decodeNode reads the node bound to alias from r. The second result is
// false when the alias is unbound in this row.
func decodeNode(d dialect, r row, alias, label string) (*Node, bool) {
	if d == dialectNeo4j {
		v, ok := r.get(alias)
		if !ok {
			return nil, false
		}
		dbNode, ok := AsDBNode(v)
		if !ok {
			return nil, false
		}
		props := Props(dbNode.Props).Clone()
		if label == "" && len(dbNode.Labels) > 0 {
			label = dbNode.Labels[0]
		}
		uuid, _ := AsString(props["uuid"])
		return &Node{UUID: uuid, Label: label, Props: props}, true
	}

	props := make(Props)
	for _, p := range nodeProperties(label) {
		if v, ok := r.get(alias + columnSep + p); ok && v != nil {
			props[p] = v
		}
	}
	uuid, ok := AsString(props["uuid"])
	if !ok || uuid == "" {
		return nil, false
	}
	return &Node{UUID: uuid, Label: label, Props: props}, true
}

// decodeEdgeProps reads the properties of the edge bound to alias.
func decodeEdgeProps(d dialect, r row, alias, edgeType string) Props {
	if d == dialectNeo4j {
		v, _ := r.get(alias)
		rel, ok := AsDBRelationship(v)
		if !ok {
			return Props{}
		}
		return Props(rel.Props).Clone()
	}
	props := make(Props)
	for _, p := range edgeProperties(edgeType) {
		if v, ok := r.get(alias + columnSep + p); ok && v != nil {
			props[p] = v
		}
	}
	return props
}

// decodeRecord assembles a Record for one row of a compiled pattern query.
func decodeRecord(d dialect, r row, p *Pattern) Record {
	rec := Record{Nodes: make(map[string]*Node), Edges: make(map[string]*Edge)}
	for _, n := range p.nodes {
		if node, ok := decodeNode(d, r, n.Alias, n.Label); ok {
			rec.Nodes[n.Alias] = node
		}
	}
	for i, e := range p.edges {
		if e.Alias == "" {
			continue
		}
		left, right := rec.Nodes[p.nodes[i].Alias], rec.Nodes[p.nodes[i+1].Alias]
		edge := &Edge{Type: e.Type, Props: decodeEdgeProps(d, r, e.Alias, e.Type)}
		if left != nil && right != nil {
			edge.From, edge.To = left.UUID, right.UUID
			if e.Inbound {
				edge.From, edge.To = right.UUID, left.UUID
			}
		}
		rec.Edges[e.Alias] = edge
	}
	return rec
}

// decodeEdgeRow reads the result of compileCreateEdge or compileMergeEdge.
func decodeEdgeRow(d dialect, r row, edgeType string) *Edge {
	from, _ := r.get("from_uuid")
	to, _ := r.get("to_uuid")
	fromUUID, _ := AsString(from)
	toUUID, _ := AsString(to)
	return &Edge{
		Type:  edgeType,
		From:  fromUUID,
		To:    toUUID,
		Props: decodeEdgeProps(d, r, "r", edgeType),
	}
}

// newNodeProps returns attrs plus the identity properties every created
// node carries.
func newNodeProps(attrs Props, uuid string, now time.Time) Props {
	props := attrs.Clone()
	props["uuid"] = uuid
	props["created_at"] = now
	return props
}

package driver

import (
	"fmt"
)

// Op is a comparison operator in a Where condition.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "<>"
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// NodePattern matches nodes by label and property equality.
type NodePattern struct {
	Alias string
	Label string
	Props Props
}

// EdgePattern joins two consecutive node patterns. Inbound reverses the
// direction: (left)<-[:Type]-(right).
type EdgePattern struct {
	Alias   string
	Type    string
	Inbound bool
}

// Condition filters on a property of an aliased node or edge.
type Condition struct {
	Alias    string
	Property string
	Op       Op
	Value    any
}

// Order sorts results by a property of an aliased node or edge.
type Order struct {
	Alias    string
	Property string
	Desc     bool
}

// Pattern is a linear path query: node patterns joined by edges, with
// optional conditions, ordering and a limit. Build one with Match.
type Pattern struct {
	nodes      []NodePattern
	edges      []EdgePattern
	conditions []Condition
	orders     []Order
	limit      int
}

// Match starts a pattern with a single node.
func Match(alias, label string, props Props) *Pattern {
	return &Pattern{nodes: []NodePattern{{Alias: alias, Label: label, Props: props}}}
}

// Out extends the path with (prev)-[:edgeType]->(alias:label).
func (p *Pattern) Out(edgeType, alias, label string, props Props) *Pattern {
	p.edges = append(p.edges, EdgePattern{Type: edgeType})
	p.nodes = append(p.nodes, NodePattern{Alias: alias, Label: label, Props: props})
	return p
}

// In extends the path with (prev)<-[:edgeType]-(alias:label).
func (p *Pattern) In(edgeType, alias, label string, props Props) *Pattern {
	p.edges = append(p.edges, EdgePattern{Type: edgeType, Inbound: true})
	p.nodes = append(p.nodes, NodePattern{Alias: alias, Label: label, Props: props})
	return p
}

// As names the most recently added edge so it is returned in each Record.
func (p *Pattern) As(edgeAlias string) *Pattern {
	if len(p.edges) > 0 {
		p.edges[len(p.edges)-1].Alias = edgeAlias
	}
	return p
}

// Where adds a condition. All conditions must hold.
func (p *Pattern) Where(alias, property string, op Op, value any) *Pattern {
	p.conditions = append(p.conditions, Condition{Alias: alias, Property: property, Op: op, Value: value})
	return p
}

// OrderBy appends a sort key.
func (p *Pattern) OrderBy(alias, property string, desc bool) *Pattern {
	p.orders = append(p.orders, Order{Alias: alias, Property: property, Desc: desc})
	return p
}

// Limit caps the number of records. Zero means no limit.
func (p *Pattern) Limit(n int) *Pattern {
	p.limit = n
	return p
}

// Target returns the alias of the last node in the path.
func (p *Pattern) Target() string {
	if len(p.nodes) == 0 {
		return ""
	}
	return p.nodes[len(p.nodes)-1].Alias
}

// nodeLabel returns the label bound to a node alias, or "".
func (p *Pattern) nodeLabel(alias string) string {
	for _, n := range p.nodes {
		if n.Alias == alias {
			return n.Label
		}
	}
	return ""
}

// edgeIndex returns the index of the edge bound to alias, or -1.
func (p *Pattern) edgeIndex(alias string) int {
	for i, e := range p.edges {
		if e.Alias != "" && e.Alias == alias {
			return i
		}
	}
	return -1
}

// Validate checks identifiers and alias references.
func (p *Pattern) Validate() error {
	if p == nil || len(p.nodes) == 0 {
		return fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if len(p.edges) != len(p.nodes)-1 {
		return fmt.Errorf("%w: %d nodes joined by %d edges", ErrInvalidPattern, len(p.nodes), len(p.edges))
	}
	if p.limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidPattern)
	}

	aliases := make(map[string]bool)
	for _, n := range p.nodes {
		if err := validateIdentifier(n.Alias); err != nil {
			return err
		}
		if aliases[n.Alias] {
			return fmt.Errorf("%w: duplicate alias %q", ErrInvalidPattern, n.Alias)
		}
		aliases[n.Alias] = true
		if err := validateIdentifier(n.Label); err != nil {
			return err
		}
		if err := validateProps(n.Props); err != nil {
			return err
		}
	}
	for _, e := range p.edges {
		if err := validateIdentifier(e.Type); err != nil {
			return err
		}
		if e.Alias == "" {
			continue
		}
		if err := validateIdentifier(e.Alias); err != nil {
			return err
		}
		if aliases[e.Alias] {
			return fmt.Errorf("%w: duplicate alias %q", ErrInvalidPattern, e.Alias)
		}
		aliases[e.Alias] = true
	}
	for _, c := range p.conditions {
		if !aliases[c.Alias] {
			return fmt.Errorf("%w: unknown alias %q in condition", ErrInvalidPattern, c.Alias)
		}
		if err := validateIdentifier(c.Property); err != nil {
			return err
		}
		switch c.Op {
		case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		default:
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidPattern, c.Op)
		}
	}
	for _, o := range p.orders {
		if !aliases[o.Alias] {
			return fmt.Errorf("%w: unknown alias %q in order", ErrInvalidPattern, o.Alias)
		}
		if err := validateIdentifier(o.Property); err != nil {
			return err
		}
	}
	return nil
}

package driver

import (
	"strings"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/studygraph/pkg/types"
)

func questionsPattern() *Pattern {
	return Match("s", types.LabelSubject, Props{"name": "Math"}).
		Out(types.EdgeHasTopic, "t", types.LabelTopic, nil).
		Out(types.EdgeHasQuestion, "q", types.LabelQuestion, nil).
		Where("q", "year", OpGte, 2020).
		OrderBy("q", "year", true).
		Limit(5)
}

func TestCompileQueryNeo4j(t *testing.T) {
	b := newCypherBuilder(dialectNeo4j)
	query := b.compileQuery(questionsPattern())

	assert.Equal(t, "MATCH (s:Subject {name: $p0})-[:HAS_TOPIC]->(t:Topic)-[:HAS_QUESTION]->(q:Question)\n"+
		"WHERE q.year >= $p1\n"+
		"RETURN s, t, q\n"+
		"ORDER BY q.year DESC\n"+
		"LIMIT $p2", query)
	assert.Equal(t, map[string]any{"p0": "Math", "p1": int64(2020), "p2": int64(5)}, b.params)
}

func TestCompileQueryLadybug(t *testing.T) {
	b := newCypherBuilder(dialectLadybug)
	query := b.compileQuery(questionsPattern())

	assert.Contains(t, query, "RETURN s.uuid AS s__uuid, ")
	assert.Contains(t, query, "t.difficulty_level AS t__difficulty_level")
	assert.Contains(t, query, "q.embedding AS q__embedding")
	assert.Contains(t, query, "ORDER BY q__year DESC")
	assert.Len(t, b.params, 3)
}

func TestCompileQueryNamedInboundEdge(t *testing.T) {
	p := Match("q", types.LabelQuestion, Props{"uuid": "q1"}).
		In(types.EdgeAttempted, "u", types.LabelUser, nil).As("r")

	b := newCypherBuilder(dialectNeo4j)
	assert.Equal(t, "MATCH (q:Question {uuid: $p0})<-[r:ATTEMPTED]-(u:User)\nRETURN q, u, r", b.compileQuery(p))

	lb := newCypherBuilder(dialectLadybug)
	assert.Contains(t, lb.compileQuery(p), "r.attempt_count AS r__attempt_count")
}

func TestCompileCount(t *testing.T) {
	p := Match("t", types.LabelTopic, Props{"subject": "Math"}).
		Out(types.EdgeHasQuestion, "q", types.LabelQuestion, nil)

	b := newCypherBuilder(dialectNeo4j)
	assert.Equal(t, "MATCH (t:Topic {subject: $p0})-[:HAS_QUESTION]->(q:Question)\nRETURN count(DISTINCT q) AS count", b.compileCount(p))
}

func TestCompileCreateAnchored(t *testing.T) {
	b := newCypherBuilder(dialectNeo4j)
	query := b.compileCreateAnchored(
		Ref(types.LabelTopic, Props{"name": "Sorting", "subject": "Algo"}),
		types.EdgeHasQuestion, types.LabelQuestion,
		Props{"text": "Q", "uuid": "u"})

	assert.Equal(t, "MATCH (a:Topic {name: $p0, subject: $p1})\n"+
		"WITH a LIMIT 1\n"+
		"CREATE (n:Question {text: $p2, uuid: $p3})\n"+
		"CREATE (a)-[:HAS_QUESTION]->(n)\n"+
		"RETURN n.uuid AS uuid", query)
	assert.Equal(t, "Algo", b.params["p1"])
}

func TestCompileUpsertNode(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	b := newCypherBuilder(dialectNeo4j)
	query := b.compileUpsertNode(types.LabelSubject,
		Props{"name": "Math"},
		Props{"name": "ignored", "description": "Numbers"},
		"uuid-1", now)

	assert.Equal(t, "MERGE (n:Subject {name: $p1})\n"+
		"ON CREATE SET n.uuid = $p2, n.created_at = $p0\n"+
		"SET n.updated_at = $p0, n.description = $p3\n"+
		"RETURN n", query)
	assert.Equal(t, now, b.params["p0"])
	assert.Equal(t, "uuid-1", b.params["p2"])
	assert.Equal(t, "Numbers", b.params["p3"])
}

func TestCompileMergeEdge(t *testing.T) {
	now := time.Now()
	b := newCypherBuilder(dialectNeo4j)
	query := b.compileMergeEdge(
		Ref(types.LabelUser, Props{"id": "u1"}),
		Ref(types.LabelQuestion, Props{"uuid": "q1"}),
		types.EdgeAttempted,
		EdgeUpdate{
			OnCreate:  Props{"first_attempt": now},
			Set:       Props{"last_attempt": now},
			Increment: map[string]int64{"correct_count": 0, "attempt_count": 1},
		})

	assert.Equal(t, "MATCH (a:User {id: $p0})\n"+
		"MATCH (b:Question {uuid: $p1})\n"+
		"MERGE (a)-[r:ATTEMPTED]->(b)\n"+
		"ON CREATE SET r.first_attempt = $p2, r.attempt_count = $p3, r.correct_count = $p4\n"+
		"ON MATCH SET r.attempt_count = coalesce(r.attempt_count, 0) + $p3, r.correct_count = coalesce(r.correct_count, 0) + $p4\n"+
		"SET r.last_attempt = $p5\n"+
		"RETURN a.uuid AS from_uuid, b.uuid AS to_uuid, r", query)
	assert.Equal(t, int64(1), b.params["p3"])
}

func TestCompileCreateEdgeModes(t *testing.T) {
	from := Ref(types.LabelTopic, Props{"name": "Sorting"})
	to := Ref(types.LabelChunk, Props{"uuid": "c1"})

	merge := newCypherBuilder(dialectNeo4j).compileCreateEdge(from, to, types.EdgeExplainedBy, nil, EdgeMerge)
	assert.Contains(t, merge, "WITH a, b LIMIT 1\nMERGE (a)-[r:EXPLAINED_BY]->(b)")

	create := newCypherBuilder(dialectNeo4j).compileCreateEdge(from, to, types.EdgeExplainedBy, nil, EdgeCreate)
	assert.Contains(t, create, "CREATE (a)-[r:EXPLAINED_BY]->(b)")
	assert.NotContains(t, create, "\nSET ")
}

func TestCompileExactVectorSearch(t *testing.T) {
	q := VectorQuery{
		Label:    types.LabelChunk,
		Property: types.EmbeddingProperty,
		Vector:   []float32{1, 0},
		K:        3,
		Filter: &Reachability{
			Anchor:   Ref(types.LabelTopic, Props{"subject": "Algo"}),
			EdgeType: types.EdgeExplainedBy,
		},
	}

	b := newCypherBuilder(dialectNeo4j)
	assert.Equal(t, "MATCH (a:Topic {subject: $p0})-[:EXPLAINED_BY]->(n:Chunk)\n"+
		"WHERE n.embedding IS NOT NULL\n"+
		"WITH DISTINCT n\n"+
		"WITH n, vector.similarity.cosine(n.embedding, $p1) AS score\n"+
		"WHERE score IS NOT NULL\n"+
		"RETURN n, score\n"+
		"ORDER BY score DESC\n"+
		"LIMIT $p2", b.compileExactVectorSearch(q))
	assert.Equal(t, []float64{1, 0}, b.params["p1"])

	q.Filter = nil
	lb := newCypherBuilder(dialectLadybug)
	query := lb.compileExactVectorSearch(q)
	assert.Contains(t, query, "MATCH (n:Chunk)\nWHERE n.embedding IS NOT NULL AND size(n.embedding) = 2")
	assert.Contains(t, query, "array_cosine_similarity(n.embedding, CAST($p0 AS FLOAT[2])) AS score")
	assert.True(t, strings.HasSuffix(query, "ORDER BY score DESC"))
}

func TestLadybugLiterals(t *testing.T) {
	b := newCypherBuilder(dialectLadybug)
	assert.Equal(t, "CAST([] AS STRING[])", b.param([]string{}))
	assert.Equal(t, "CAST([] AS FLOAT[])", b.param([]float32{}))
	assert.Equal(t, "CAST([] AS FLOAT[])", b.param([]float64{}))
	assert.Empty(t, b.params)
	assert.Equal(t, "$p0", b.param([]string{"a"}))
	assert.Equal(t, "$p1", b.param([]float32{0, 0}))
	assert.Equal(t, []float64{0, 0}, b.params["p1"])

	neo := newCypherBuilder(dialectNeo4j)
	assert.Equal(t, "$p0", neo.param([]string{}))
}

func TestDecodeRecordLadybug(t *testing.T) {
	p := Match("q", types.LabelQuestion, nil).
		In(types.EdgeAttempted, "u", types.LabelUser, nil).As("r")
	r := mapRow{
		"q__uuid":          "q1",
		"q__text":          "What is 2+2?",
		"q__answer":        nil,
		"u__uuid":          "user-node",
		"u__id":            "alice",
		"r__attempt_count": int64(2),
		"r__last_correct":  nil,
	}

	rec := decodeRecord(dialectLadybug, r, p)
	require.NotNil(t, rec.Node("q"))
	assert.Equal(t, "What is 2+2?", rec.Node("q").String("text"))
	assert.NotContains(t, rec.Node("q").Props, "answer")
	assert.Equal(t, "alice", rec.Node("u").String("id"))

	edge := rec.Edge("r")
	require.NotNil(t, edge)
	assert.Equal(t, "user-node", edge.From)
	assert.Equal(t, "q1", edge.To)
	assert.Equal(t, int64(2), edge.Int64("attempt_count"))
	assert.NotContains(t, edge.Props, "last_correct")
}

func TestDecodeNodeNeo4j(t *testing.T) {
	r := mapRow{"n": dbtype.Node{
		Labels: []string{"Chunk"},
		Props:  map[string]any{"uuid": "c1", "embedding": []any{0.5, 0.25}},
	}}

	node, ok := decodeNode(dialectNeo4j, r, "n", "")
	require.True(t, ok)
	assert.Equal(t, "c1", node.UUID)
	assert.Equal(t, "Chunk", node.Label)
	assert.Equal(t, []float32{0.5, 0.25}, node.Vector("embedding"))

	_, ok = decodeNode(dialectNeo4j, mapRow{}, "n", "")
	assert.False(t, ok)
}

func TestSchemaStatements(t *testing.T) {
	statements := schemaStatements()
	require.Len(t, statements, len(nodeSchema)+len(edgeSchema))
	assert.Contains(t, statements[0], "CREATE NODE TABLE IF NOT EXISTS Chunk (uuid STRING PRIMARY KEY, created_at TIMESTAMP")
	assert.Contains(t, statements, "CREATE REL TABLE IF NOT EXISTS HAS_TOPIC (FROM Subject TO Topic)")

	var attempted string
	for _, s := range statements {
		if strings.Contains(s, "ATTEMPTED") {
			attempted = s
		}
	}
	assert.Equal(t, "CREATE REL TABLE IF NOT EXISTS ATTEMPTED (FROM User TO Question, attempt_count INT64, "+
		"correct_count INT64, first_attempt TIMESTAMP, last_attempt TIMESTAMP, last_correct TIMESTAMP)", attempted)
}

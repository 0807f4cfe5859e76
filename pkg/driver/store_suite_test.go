package driver_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/studygraph/pkg/driver"
	"github.com/soundprediction/studygraph/pkg/types"
)

// runStoreSuite exercises the GraphStore contract. open must return an
// empty store.
func runStoreSuite(t *testing.T, open func(t *testing.T) driver.GraphStore) {
	t.Run("UpsertNodeKeepsIdentity", func(t *testing.T) {
		testUpsertNodeKeepsIdentity(t, open(t))
	})
	t.Run("CreateAnchoredWithoutAnchor", func(t *testing.T) {
		testCreateAnchoredWithoutAnchor(t, open(t))
	})
	t.Run("AnchoredWritesBuildPath", func(t *testing.T) {
		testAnchoredWritesBuildPath(t, open(t))
	})
	t.Run("CreateEdgeModes", func(t *testing.T) {
		testCreateEdgeModes(t, open(t))
	})
	t.Run("MergeEdgeCounters", func(t *testing.T) {
		testMergeEdgeCounters(t, open(t))
	})
	t.Run("QueryFiltersOrdersAndLimits", func(t *testing.T) {
		testQueryFiltersOrdersAndLimits(t, open(t))
	})
	t.Run("CountMatchesIsDistinct", func(t *testing.T) {
		testCountMatchesIsDistinct(t, open(t))
	})
	t.Run("VectorSearch", func(t *testing.T) {
		testVectorSearch(t, open(t))
	})
	t.Run("RejectsInvalidIdentifiers", func(t *testing.T) {
		testRejectsInvalidIdentifiers(t, open(t))
	})
	t.Run("Clear", func(t *testing.T) {
		testClear(t, open(t))
	})
}

func seedTopic(t *testing.T, ctx context.Context, s driver.GraphStore, subject, topic string) *driver.Node {
	t.Helper()
	_, err := s.UpsertNode(ctx, types.LabelSubject, driver.Props{"name": subject}, nil)
	require.NoError(t, err)
	n, err := s.UpsertAnchored(ctx,
		driver.Ref(types.LabelSubject, driver.Props{"name": subject}),
		types.EdgeHasTopic, types.LabelTopic,
		driver.Props{"name": topic, "subject": subject},
		driver.Props{"difficulty_level": int64(1)})
	require.NoError(t, err)
	return n
}

func topicRef(subject, topic string) driver.NodeRef {
	return driver.Ref(types.LabelTopic, driver.Props{"name": topic, "subject": subject})
}

func testUpsertNodeKeepsIdentity(t *testing.T, s driver.GraphStore) {
	ctx := context.Background()

	first, err := s.UpsertNode(ctx, types.LabelSubject, driver.Props{"name": "Math"}, driver.Props{"description": "v1"})
	require.NoError(t, err)
	require.NotEmpty(t, first.UUID)

	second, err := s.UpsertNode(ctx, types.LabelSubject, driver.Props{"name": "Math"}, driver.Props{"description": "v2"})
	require.NoError(t, err)
	assert.Equal(t, first.UUID, second.UUID)
	assert.Equal(t, "v2", second.String("description"))
	assert.False(t, second.Time("created_at").IsZero())

	count, err := s.Count(ctx, types.LabelSubject)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = s.UpsertNode(ctx, types.LabelSubject, nil, driver.Props{"description": "x"})
	assert.ErrorIs(t, err, driver.ErrInvalidPattern)
}

func testCreateAnchoredWithoutAnchor(t *testing.T, s driver.GraphStore) {
	ctx := context.Background()

	_, err := s.CreateAnchored(ctx, topicRef("Math", "Missing"), types.EdgeHasQuestion, types.LabelQuestion,
		driver.Props{"text": "orphan?"})
	require.ErrorIs(t, err, driver.ErrAnchorNotFound)

	count, err := s.Count(ctx, types.LabelQuestion)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = s.UpsertAnchored(ctx, topicRef("Math", "Missing"), types.EdgeHasConcept, types.LabelConcept,
		driver.Props{"name": "c", "topic": "Missing", "subject": "Math"}, nil)
	require.ErrorIs(t, err, driver.ErrAnchorNotFound)
}

func testAnchoredWritesBuildPath(t *testing.T, s driver.GraphStore) {
	ctx := context.Background()
	seedTopic(t, ctx, s, "Math", "Algebra")
	seedTopic(t, ctx, s, "Math", "Algebra")

	q, err := s.CreateAnchored(ctx, topicRef("Math", "Algebra"), types.EdgeHasQuestion, types.LabelQuestion,
		driver.Props{"text": "Solve x+1=2", "year": int64(2022), "options": []string{"1", "2"}})
	require.NoError(t, err)
	assert.NotEmpty(t, q.UUID)

	topics, err := s.Count(ctx, types.LabelTopic)
	require.NoError(t, err)
	assert.Equal(t, int64(1), topics)

	records, err := s.Query(ctx, driver.Match("s", types.LabelSubject, driver.Props{"name": "Math"}).
		Out(types.EdgeHasTopic, "t", types.LabelTopic, nil).
		Out(types.EdgeHasQuestion, "q", types.LabelQuestion, nil))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Algebra", records[0].Node("t").String("name"))
	assert.Equal(t, q.UUID, records[0].Node("q").UUID)
	assert.Equal(t, "Solve x+1=2", records[0].Node("q").String("text"))
	assert.Equal(t, int64(2022), records[0].Node("q").Int64("year"))
	assert.Equal(t, []string{"1", "2"}, records[0].Node("q").Strings("options"))
}

func testCreateEdgeModes(t *testing.T, s driver.GraphStore) {
	ctx := context.Background()
	seedTopic(t, ctx, s, "Math", "Algebra")
	chunk, err := s.CreateNode(ctx, types.LabelChunk, driver.Props{"text": "intro"})
	require.NoError(t, err)

	chunkRef := driver.Ref(types.LabelChunk, driver.Props{"uuid": chunk.UUID})
	for i := 0; i < 2; i++ {
		edge, err := s.CreateEdge(ctx, topicRef("Math", "Algebra"), chunkRef, types.EdgeExplainedBy, nil, driver.EdgeMerge)
		require.NoError(t, err)
		assert.Equal(t, chunk.UUID, edge.To)
	}

	pattern := func() *driver.Pattern {
		return driver.Match("t", types.LabelTopic, nil).Out(types.EdgeExplainedBy, "c", types.LabelChunk, nil)
	}
	records, err := s.Query(ctx, pattern())
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = s.CreateEdge(ctx, topicRef("Math", "Algebra"), chunkRef, types.EdgeExplainedBy, nil, driver.EdgeCreate)
	require.NoError(t, err)
	records, err = s.Query(ctx, pattern())
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = s.CreateEdge(ctx, topicRef("Math", "Nope"), chunkRef, types.EdgeExplainedBy, nil, driver.EdgeMerge)
	assert.ErrorIs(t, err, driver.ErrNodeNotFound)
}

func testMergeEdgeCounters(t *testing.T, s driver.GraphStore) {
	ctx := context.Background()
	seedTopic(t, ctx, s, "Math", "Algebra")
	q, err := s.CreateAnchored(ctx, topicRef("Math", "Algebra"), types.EdgeHasQuestion, types.LabelQuestion,
		driver.Props{"text": "2+2?"})
	require.NoError(t, err)
	_, err = s.UpsertNode(ctx, types.LabelUser, driver.Props{"id": "alice"}, nil)
	require.NoError(t, err)

	user := driver.Ref(types.LabelUser, driver.Props{"id": "alice"})
	question := driver.Ref(types.LabelQuestion, driver.Props{"uuid": q.UUID})
	attempt := func(correct bool) []*driver.Edge {
		now := time.Now()
		var c int64
		set := driver.Props{"last_attempt": now}
		if correct {
			c = 1
			set["last_correct"] = now
		}
		edges, err := s.MergeEdge(ctx, user, question, types.EdgeAttempted, driver.EdgeUpdate{
			OnCreate:  driver.Props{"first_attempt": now},
			Set:       set,
			Increment: map[string]int64{"attempt_count": 1, "correct_count": c},
		})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		return edges
	}

	first := attempt(true)
	assert.Equal(t, int64(1), first[0].Int64("attempt_count"))
	assert.Equal(t, int64(1), first[0].Int64("correct_count"))

	second := attempt(false)
	assert.Equal(t, int64(2), second[0].Int64("attempt_count"))
	assert.Equal(t, int64(1), second[0].Int64("correct_count"))
	assert.Equal(t, q.UUID, second[0].To)
	assert.False(t, second[0].Time("first_attempt").After(second[0].Time("last_attempt")))

	records, err := s.Query(ctx, driver.Match("u", types.LabelUser, driver.Props{"id": "alice"}).
		Out(types.EdgeAttempted, "q", types.LabelQuestion, nil).As("a"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].Edge("a").Int64("attempt_count"))

	_, err = s.MergeEdge(ctx, driver.Ref(types.LabelUser, driver.Props{"id": "bob"}), question,
		types.EdgeAttempted, driver.EdgeUpdate{Increment: map[string]int64{"attempt_count": 1}})
	assert.ErrorIs(t, err, driver.ErrNodeNotFound)
}

func testQueryFiltersOrdersAndLimits(t *testing.T, s driver.GraphStore) {
	ctx := context.Background()
	seedTopic(t, ctx, s, "Math", "Algebra")
	for _, year := range []int64{2019, 2023, 2021} {
		_, err := s.CreateAnchored(ctx, topicRef("Math", "Algebra"), types.EdgeHasQuestion, types.LabelQuestion,
			driver.Props{"text": "q", "year": year})
		require.NoError(t, err)
	}

	years := func(p *driver.Pattern) []int64 {
		records, err := s.Query(ctx, p)
		require.NoError(t, err)
		out := make([]int64, len(records))
		for i, r := range records {
			out[i] = r.Node("q").Int64("year")
		}
		return out
	}
	base := func() *driver.Pattern {
		return driver.Match("t", types.LabelTopic, driver.Props{"name": "Algebra"}).
			Out(types.EdgeHasQuestion, "q", types.LabelQuestion, nil)
	}

	assert.Equal(t, []int64{2023, 2021}, years(base().Where("q", "year", driver.OpGte, 2020).OrderBy("q", "year", true)))
	assert.Equal(t, []int64{2019, 2021, 2023}, years(base().OrderBy("q", "year", false)))
	assert.Equal(t, []int64{2023}, years(base().OrderBy("q", "year", true).Limit(1)))
	assert.Equal(t, []int64{2021}, years(base().Where("q", "year", driver.OpEq, 2021)))
	assert.Empty(t, years(base().Where("q", "year", driver.OpLt, 2000)))
}

func testCountMatchesIsDistinct(t *testing.T, s driver.GraphStore) {
	ctx := context.Background()
	seedTopic(t, ctx, s, "Math", "Algebra")
	seedTopic(t, ctx, s, "Math", "Geometry")

	q, err := s.CreateAnchored(ctx, topicRef("Math", "Algebra"), types.EdgeHasQuestion, types.LabelQuestion,
		driver.Props{"text": "shared"})
	require.NoError(t, err)
	_, err = s.CreateEdge(ctx, topicRef("Math", "Geometry"), driver.Ref(types.LabelQuestion, driver.Props{"uuid": q.UUID}),
		types.EdgeHasQuestion, nil, driver.EdgeMerge)
	require.NoError(t, err)

	p := func() *driver.Pattern {
		return driver.Match("s", types.LabelSubject, driver.Props{"name": "Math"}).
			Out(types.EdgeHasTopic, "t", types.LabelTopic, nil).
			Out(types.EdgeHasQuestion, "q", types.LabelQuestion, nil)
	}
	records, err := s.Query(ctx, p())
	require.NoError(t, err)
	assert.Len(t, records, 2)

	count, err := s.CountMatches(ctx, p())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func testVectorSearch(t *testing.T, s driver.GraphStore) {
	ctx := context.Background()
	seedTopic(t, ctx, s, "Math", "Algebra")
	seedTopic(t, ctx, s, "Math", "Geometry")

	add := func(topic, text string, vec []float32) string {
		n, err := s.CreateAnchored(ctx, topicRef("Math", topic), types.EdgeExplainedBy, types.LabelChunk,
			driver.Props{"text": text, types.EmbeddingProperty: vec})
		require.NoError(t, err)
		return n.UUID
	}
	c1 := add("Algebra", "exact", []float32{1, 0, 0})
	c2 := add("Geometry", "close", []float32{0.8, 0.6, 0})
	c3 := add("Algebra", "orthogonal", []float32{0, 1, 0})
	zero := add("Algebra", "zero", []float32{0, 0, 0})

	// A zero vector is stored with its full dimension, never dropped.
	stored, err := s.Query(ctx, driver.Match("c", types.LabelChunk, driver.Props{"uuid": zero}))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, []float32{0, 0, 0}, stored[0].Node("c").Vector(types.EmbeddingProperty))

	query := driver.VectorQuery{
		Label:    types.LabelChunk,
		Property: types.EmbeddingProperty,
		Vector:   []float32{1, 0, 0},
		K:        10,
	}
	hits, err := s.VectorSearch(ctx, query)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{c1, c2, c3}, hitUUIDs(hits))
	assert.InDelta(t, 1.0, hits[0].Score, 1e-4)
	assert.InDelta(t, 0.8, hits[1].Score, 1e-4)
	assert.Equal(t, "exact", hits[0].Node.String("text"))

	query.K = 1
	hits, err = s.VectorSearch(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, []string{c1}, hitUUIDs(hits))

	query.K = 5
	query.Filter = &driver.Reachability{
		Anchor:   driver.Ref(types.LabelTopic, driver.Props{"name": "Geometry"}),
		EdgeType: types.EdgeExplainedBy,
	}
	hits, err = s.VectorSearch(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, []string{c2}, hitUUIDs(hits))

	query.Filter.Anchor = driver.Ref(types.LabelTopic, driver.Props{"subject": "Math"})
	hits, err = s.VectorSearch(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, []string{c1, c2, c3}, hitUUIDs(hits))

	query.Filter = nil
	query.Vector = []float32{0, 0, 0}
	hits, err = s.VectorSearch(ctx, query)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func hitUUIDs(hits []driver.ScoredNode) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Node.UUID
	}
	return out
}

func testRejectsInvalidIdentifiers(t *testing.T, s driver.GraphStore) {
	ctx := context.Background()

	_, err := s.CreateNode(ctx, "Topic`) DETACH DELETE (n", driver.Props{"name": "x"})
	assert.ErrorIs(t, err, driver.ErrInvalidIdentifier)

	_, err = s.UpsertNode(ctx, types.LabelTopic, driver.Props{"name; DROP": "x"}, nil)
	assert.ErrorIs(t, err, driver.ErrInvalidIdentifier)

	_, err = s.MergeEdge(ctx, driver.Ref(types.LabelUser, driver.Props{"id": "u"}),
		driver.Ref(types.LabelQuestion, driver.Props{"uuid": "q"}), "ATTEMPTED]->()",
		driver.EdgeUpdate{})
	assert.ErrorIs(t, err, driver.ErrInvalidIdentifier)

	_, err = s.Count(ctx, "Topic) RETURN 1 //")
	assert.ErrorIs(t, err, driver.ErrInvalidIdentifier)
}

func testClear(t *testing.T, s driver.GraphStore) {
	ctx := context.Background()
	seedTopic(t, ctx, s, "Math", "Algebra")

	require.NoError(t, s.Clear(ctx))
	for _, label := range []string{types.LabelSubject, types.LabelTopic} {
		count, err := s.Count(ctx, label)
		require.NoError(t, err)
		assert.Zero(t, count, label)
	}
}

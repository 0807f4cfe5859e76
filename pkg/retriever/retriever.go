// Package retriever answers study queries from the graph.
//
// Two signals are computed against the same subject/topic scope: the
// structural context of a topic (concepts, sample chunks, question count)
// and the chunks most similar to the query embedding. HybridSearch returns
// both side by side; weighting one against the other is left to the caller.
package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/studygraph/pkg/driver"
	"github.com/soundprediction/studygraph/pkg/embedder"
	"github.com/soundprediction/studygraph/pkg/types"
	"github.com/soundprediction/studygraph/pkg/utils"
)

const (
	DefaultK             = 5
	DefaultQuestionLimit = 10
	MaxSampleChunks      = 5
)

// Store is the read side of driver.GraphStore.
type Store interface {
	driver.GraphReader
	driver.VectorSearcher
}

// Retriever runs vector, graph and hybrid searches.
type Retriever struct {
	store  Store
	port   embedder.Port
	logger *slog.Logger
}

// NewRetriever creates a retriever. A nil logger falls back to slog.Default().
func NewRetriever(store Store, port embedder.Port, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		store:  store,
		port:   port,
		logger: logger.With("component", "retriever"),
	}
}

// VectorSearch embeds query and returns up to k chunks by descending cosine
// similarity. A non-empty subject or topic restricts the search to chunks
// explained by a matching topic. No score threshold is applied.
func (r *Retriever) VectorSearch(ctx context.Context, query string, k int, subject, topic string) ([]*types.ScoredChunk, error) {
	if k <= 0 {
		return nil, types.ErrInvalidLimit
	}

	vec := r.port.Vector(ctx, query)
	if utils.IsZeroVector(vec) {
		r.logger.Debug("Query embedded to zero vector, no similarity possible", "query_len", len(query))
		return []*types.ScoredChunk{}, nil
	}

	q := driver.VectorQuery{
		IndexName: types.ChunkVectorIndex,
		Label:     types.LabelChunk,
		Property:  types.EmbeddingProperty,
		Vector:    vec,
		K:         k,
	}
	if anchor := topicMatch(subject, topic); anchor != nil {
		q.Filter = &driver.Reachability{
			Anchor:   driver.Ref(types.LabelTopic, anchor),
			EdgeType: types.EdgeExplainedBy,
		}
	}

	hits, err := r.store.VectorSearch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("chunk vector search failed: %w", err)
	}

	out := make([]*types.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		sc := &types.ScoredChunk{Chunk: driver.ToChunk(h.Node, false), Score: h.Score}
		if subject != "" && topic != "" {
			sc.Subject, sc.Topic = subject, topic
		} else if err := r.locateChunk(ctx, sc); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

// locateChunk fills the subject and topic a chunk is filed under.
func (r *Retriever) locateChunk(ctx context.Context, sc *types.ScoredChunk) error {
	records, err := r.store.Query(ctx, driver.Match("t", types.LabelTopic, nil).
		Out(types.EdgeExplainedBy, "c", types.LabelChunk, driver.Props{"uuid": sc.UUID}).
		Limit(1))
	if err != nil {
		return fmt.Errorf("failed to locate chunk %s: %w", sc.UUID, err)
	}
	if len(records) > 0 {
		t := driver.ToTopic(records[0].Node("t"))
		sc.Subject, sc.Topic = t.Subject, t.Name
	}
	return nil
}

// GraphSearch summarises the static context of a topic. An unknown
// subject or topic yields an empty context, not an error.
func (r *Retriever) GraphSearch(ctx context.Context, subject, topic string, includeConcepts bool) (*types.TopicContext, error) {
	records, err := r.store.Query(ctx, driver.Match("s", types.LabelSubject, driver.Props{"name": subject}).
		Out(types.EdgeHasTopic, "t", types.LabelTopic, driver.Props{"name": topic}).
		Limit(1))
	if err != nil {
		return nil, fmt.Errorf("topic lookup failed: %w", err)
	}
	result := types.EmptyTopicContext(subject, topic)
	if len(records) == 0 {
		return result, nil
	}

	t := driver.ToTopic(records[0].Node("t"))
	result.Found = true
	result.Description = t.Description
	result.Difficulty = t.Difficulty

	if includeConcepts {
		concepts, err := r.store.Query(ctx, topicPattern(subject, topic).
			Out(types.EdgeHasConcept, "c", types.LabelConcept, nil).
			OrderBy("c", "name", false))
		if err != nil {
			return nil, fmt.Errorf("concept lookup failed: %w", err)
		}
		for _, rec := range concepts {
			result.Concepts = append(result.Concepts, rec.Node("c").String("name"))
		}
	}

	chunks, err := r.store.Query(ctx, topicPattern(subject, topic).
		Out(types.EdgeExplainedBy, "c", types.LabelChunk, nil).
		OrderBy("c", "chunk_index", false).
		Limit(MaxSampleChunks))
	if err != nil {
		return nil, fmt.Errorf("chunk sample failed: %w", err)
	}
	for _, rec := range chunks {
		result.SampleChunks = append(result.SampleChunks, rec.Node("c").String("text"))
	}

	result.QuestionCount, err = r.store.CountMatches(ctx, topicPattern(subject, topic).
		Out(types.EdgeHasQuestion, "q", types.LabelQuestion, nil))
	if err != nil {
		return nil, fmt.Errorf("question count failed: %w", err)
	}
	return result, nil
}

// HybridSearch computes the topic context and the similar chunks for one
// query and scope, and returns both unmerged.
func (r *Retriever) HybridSearch(ctx context.Context, query, subject, topic string, k int) (*types.HybridResult, error) {
	if k <= 0 {
		k = DefaultK
	}
	topicCtx, err := r.GraphSearch(ctx, subject, topic, true)
	if err != nil {
		return nil, err
	}
	chunks, err := r.VectorSearch(ctx, query, k, subject, topic)
	if err != nil {
		return nil, err
	}
	return &types.HybridResult{
		Query:        query,
		TopicContext: topicCtx,
		Chunks:       chunks,
	}, nil
}

// QuestionFilter narrows QuestionsByTopic. Zero Year and nil Difficulty
// mean no filter; zero Limit means DefaultQuestionLimit.
type QuestionFilter struct {
	Year       int
	Difficulty *int
	Limit      int
}

// QuestionsByTopic returns the questions of a topic, newest year first and
// easier questions first within a year.
func (r *Retriever) QuestionsByTopic(ctx context.Context, subject, topic string, filter QuestionFilter) ([]types.Question, error) {
	limit := filter.Limit
	if limit == 0 {
		limit = DefaultQuestionLimit
	}
	if limit < 0 {
		return nil, types.ErrInvalidLimit
	}

	match := driver.Props{}
	if filter.Year != 0 {
		match["year"] = int64(filter.Year)
	}
	if filter.Difficulty != nil {
		match["difficulty"] = int64(*filter.Difficulty)
	}

	records, err := r.store.Query(ctx, topicPattern(subject, topic).
		Out(types.EdgeHasQuestion, "q", types.LabelQuestion, match).
		OrderBy("q", "year", true).
		OrderBy("q", "difficulty", false).
		Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("question lookup failed: %w", err)
	}
	return questions(records), nil
}

// QuestionsByDifficulty returns every question of a topic ordered by
// difficulty, ascending or descending, then by year descending.
func (r *Retriever) QuestionsByDifficulty(ctx context.Context, subject, topic string, ascending bool) ([]types.Question, error) {
	records, err := r.store.Query(ctx, topicPattern(subject, topic).
		Out(types.EdgeHasQuestion, "q", types.LabelQuestion, nil).
		OrderBy("q", "difficulty", !ascending).
		OrderBy("q", "year", true))
	if err != nil {
		return nil, fmt.Errorf("question lookup failed: %w", err)
	}
	return questions(records), nil
}

// ListSubjects returns every subject ordered by name.
func (r *Retriever) ListSubjects(ctx context.Context) ([]types.Subject, error) {
	records, err := r.store.Query(ctx, driver.Match("s", types.LabelSubject, nil).OrderBy("s", "name", false))
	if err != nil {
		return nil, fmt.Errorf("subject lookup failed: %w", err)
	}
	out := make([]types.Subject, 0, len(records))
	for _, rec := range records {
		out = append(out, driver.ToSubject(rec.Node("s")))
	}
	return out, nil
}

// TopicsForSubject lists the topics of a subject with their question
// counts, ordered by name.
func (r *Retriever) TopicsForSubject(ctx context.Context, subject string) ([]types.TopicSummary, error) {
	records, err := r.store.Query(ctx, driver.Match("s", types.LabelSubject, driver.Props{"name": subject}).
		Out(types.EdgeHasTopic, "t", types.LabelTopic, nil).
		OrderBy("t", "name", false))
	if err != nil {
		return nil, fmt.Errorf("topic lookup failed: %w", err)
	}

	out := make([]types.TopicSummary, 0, len(records))
	for _, rec := range records {
		t := driver.ToTopic(rec.Node("t"))
		count, err := r.store.CountMatches(ctx, topicPattern(subject, t.Name).
			Out(types.EdgeHasQuestion, "q", types.LabelQuestion, nil))
		if err != nil {
			return nil, fmt.Errorf("question count failed: %w", err)
		}
		out = append(out, types.TopicSummary{
			Name:          t.Name,
			Description:   t.Description,
			Difficulty:    t.Difficulty,
			QuestionCount: count,
		})
	}
	return out, nil
}

func topicPattern(subject, topic string) *driver.Pattern {
	return driver.Match("t", types.LabelTopic, driver.Props{"name": topic, "subject": subject})
}

// topicMatch returns the topic properties selected by a scope, or nil for
// an unscoped search.
func topicMatch(subject, topic string) driver.Props {
	if subject == "" && topic == "" {
		return nil
	}
	match := driver.Props{}
	if subject != "" {
		match["subject"] = subject
	}
	if topic != "" {
		match["name"] = topic
	}
	return match
}

func questions(records []driver.Record) []types.Question {
	out := make([]types.Question, 0, len(records))
	for _, rec := range records {
		out = append(out, driver.ToQuestion(rec.Node("q"), false))
	}
	return out
}

package studygraph

import (
	"context"

	"github.com/soundprediction/studygraph/pkg/metrics"
	"github.com/soundprediction/studygraph/pkg/retriever"
	"github.com/soundprediction/studygraph/pkg/types"
)

// VectorSearch returns the k chunks most similar to query, optionally
// restricted to a subject or a single topic.
func (c *Client) VectorSearch(ctx context.Context, query string, k int, subject, topic string) ([]*types.ScoredChunk, error) {
	defer metrics.Timer("vector_search")()
	return c.retriever.VectorSearch(ctx, query, k, subject, topic)
}

// GraphSearch returns the structural context of a topic. An unknown topic
// yields a context with Found == false.
func (c *Client) GraphSearch(ctx context.Context, subject, topic string, includeConcepts bool) (*types.TopicContext, error) {
	defer metrics.Timer("graph_search")()
	return c.retriever.GraphSearch(ctx, subject, topic, includeConcepts)
}

// HybridSearch returns the topic context and the similar chunks for query.
func (c *Client) HybridSearch(ctx context.Context, query, subject, topic string, k int) (*types.HybridResult, error) {
	defer metrics.Timer("hybrid_search")()
	return c.retriever.HybridSearch(ctx, query, subject, topic, k)
}

// QuestionsByTopic lists a topic's questions.
func (c *Client) QuestionsByTopic(ctx context.Context, subject, topic string, filter retriever.QuestionFilter) ([]types.Question, error) {
	defer metrics.Timer("questions_by_topic")()
	return c.retriever.QuestionsByTopic(ctx, subject, topic, filter)
}

// QuestionsByDifficulty lists a topic's questions ordered by difficulty.
func (c *Client) QuestionsByDifficulty(ctx context.Context, subject, topic string, ascending bool) ([]types.Question, error) {
	defer metrics.Timer("questions_by_difficulty")()
	return c.retriever.QuestionsByDifficulty(ctx, subject, topic, ascending)
}

// ListSubjects returns every subject ordered by name.
func (c *Client) ListSubjects(ctx context.Context) ([]types.Subject, error) {
	return c.retriever.ListSubjects(ctx)
}

// TopicsForSubject summarises the topics of a subject.
func (c *Client) TopicsForSubject(ctx context.Context, subject string) ([]types.TopicSummary, error) {
	return c.retriever.TopicsForSubject(ctx, subject)
}

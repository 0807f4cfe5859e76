package studygraph

import (
	"context"

	"github.com/soundprediction/studygraph/pkg/builder"
	"github.com/soundprediction/studygraph/pkg/metrics"
	"github.com/soundprediction/studygraph/pkg/types"
)

// LoadCurriculum upserts one Subject per key and one Topic per listed topic.
func (c *Client) LoadCurriculum(ctx context.Context, curriculum types.Curriculum) (*builder.CurriculumResult, error) {
	result, err := c.builder.LoadCurriculum(ctx, curriculum)
	if err == nil {
		metrics.RecordsIngested.WithLabelValues(types.KindTopic).Add(float64(len(result.Topics)))
	}
	return result, err
}

// AddQuestion creates a Question under its topic.
func (c *Client) AddQuestion(ctx context.Context, rec types.QuestionRecord) (*types.Question, error) {
	q, err := c.builder.AddQuestion(ctx, rec)
	metrics.ObserveRecord(types.KindQuestion, err)
	return q, err
}

// AddQuestionsBatch applies AddQuestion to every record in order.
func (c *Client) AddQuestionsBatch(ctx context.Context, records []types.QuestionRecord) (*types.BatchResult, error) {
	result, err := c.builder.AddQuestionsBatch(ctx, records)
	metrics.ObserveBatch(types.KindQuestion, result)
	return result, err
}

// AddChunk creates a Chunk under its topic.
func (c *Client) AddChunk(ctx context.Context, rec types.ChunkRecord) (*types.Chunk, error) {
	chunk, err := c.builder.AddChunk(ctx, rec)
	metrics.ObserveRecord(types.KindChunk, err)
	return chunk, err
}

// AddChunksBatch applies AddChunk to every record, batchSize at a time.
func (c *Client) AddChunksBatch(ctx context.Context, records []types.ChunkRecord, batchSize int) (*types.BatchResult, error) {
	result, err := c.builder.AddChunksBatch(ctx, records, batchSize)
	metrics.ObserveBatch(types.KindChunk, result)
	return result, err
}

// AddConcept upserts a Concept under its topic.
func (c *Client) AddConcept(ctx context.Context, name, explanation, topic, subject string) (*types.Concept, error) {
	concept, err := c.builder.AddConcept(ctx, name, explanation, topic, subject)
	metrics.ObserveRecord(types.KindConcept, err)
	return concept, err
}

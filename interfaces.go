package studygraph

import (
	"context"

	"github.com/soundprediction/studygraph/pkg/builder"
	"github.com/soundprediction/studygraph/pkg/retriever"
	"github.com/soundprediction/studygraph/pkg/types"
)

// Consumers should depend on the smallest interface that meets their needs.

// Ingestor writes curriculum and content records into the graph.
type Ingestor interface {
	// LoadCurriculum upserts subjects and topics. It is idempotent.
	LoadCurriculum(ctx context.Context, curriculum types.Curriculum) (*builder.CurriculumResult, error)

	// AddQuestion creates one question under its topic.
	AddQuestion(ctx context.Context, rec types.QuestionRecord) (*types.Question, error)

	// AddQuestionsBatch adds questions in order, collecting rejections.
	AddQuestionsBatch(ctx context.Context, records []types.QuestionRecord) (*types.BatchResult, error)

	// AddChunk creates one chunk under its topic.
	AddChunk(ctx context.Context, rec types.ChunkRecord) (*types.Chunk, error)

	// AddChunksBatch adds chunks in order, batchSize at a time.
	AddChunksBatch(ctx context.Context, records []types.ChunkRecord, batchSize int) (*types.BatchResult, error)

	// AddConcept upserts a concept under its topic.
	AddConcept(ctx context.Context, name, explanation, topic, subject string) (*types.Concept, error)
}

// Querier provides read-only retrieval over the graph.
type Querier interface {
	// VectorSearch returns the k chunks most similar to query.
	VectorSearch(ctx context.Context, query string, k int, subject, topic string) ([]*types.ScoredChunk, error)

	// GraphSearch returns the structural context of a topic.
	GraphSearch(ctx context.Context, subject, topic string, includeConcepts bool) (*types.TopicContext, error)

	// HybridSearch returns both retrieval signals for one query.
	HybridSearch(ctx context.Context, query, subject, topic string, k int) (*types.HybridResult, error)

	// QuestionsByTopic lists a topic's questions, newest year first.
	QuestionsByTopic(ctx context.Context, subject, topic string, filter retriever.QuestionFilter) ([]types.Question, error)

	// QuestionsByDifficulty lists a topic's questions ordered by difficulty.
	QuestionsByDifficulty(ctx context.Context, subject, topic string, ascending bool) ([]types.Question, error)

	// ListSubjects returns every subject ordered by name.
	ListSubjects(ctx context.Context) ([]types.Subject, error)

	// TopicsForSubject summarises the topics of a subject.
	TopicsForSubject(ctx context.Context, subject string) ([]types.TopicSummary, error)
}

// ProgressTracker records and reports learner attempts. The learner is
// read from the context with types.UserIDFromContext.
type ProgressTracker interface {
	RecordAttempt(ctx context.Context, rec types.AttemptRecord) (*types.Attempt, error)
	UserStats(ctx context.Context, subject, topic string) (*types.UserStats, error)
	TopicProgress(ctx context.Context, subject string) ([]types.TopicProgress, error)
	WeakTopics(ctx context.Context, subject string, threshold float64) ([]types.WeakTopic, error)
}

// GraphAdmin provides administrative operations for the knowledge graph.
type GraphAdmin interface {
	// CreateIndices creates indexes, constraints and the chunk vector index.
	CreateIndices(ctx context.Context) error

	// VerifyConnectivity checks that the graph store is reachable.
	VerifyConnectivity(ctx context.Context) error

	// Statistics returns node counts per label.
	Statistics(ctx context.Context) (*types.Statistics, error)

	// Clear removes every node and edge.
	Clear(ctx context.Context) error

	// Close closes all connections and cleans up resources.
	Close() error
}

// StudyGraph is the full client interface.
type StudyGraph interface {
	Ingestor
	Querier
	ProgressTracker
	GraphAdmin
}

var _ StudyGraph = (*Client)(nil)

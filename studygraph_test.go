package studygraph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/studygraph"
	"github.com/soundprediction/studygraph/pkg/config"
	"github.com/soundprediction/studygraph/pkg/driver"
	"github.com/soundprediction/studygraph/pkg/embedder"
	"github.com/soundprediction/studygraph/pkg/retriever"
	"github.com/soundprediction/studygraph/pkg/types"
)

const dims = 32

func newTestClient(t *testing.T) *studygraph.Client {
	t.Helper()
	client, err := studygraph.NewClient(driver.NewMemoryDriver(), embedder.NewHashClient(dims), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func seed(t *testing.T, c *studygraph.Client) {
	t.Helper()
	ctx := context.Background()

	_, err := c.LoadCurriculum(ctx, types.Curriculum{
		"Operating Systems": {
			Description: "Core OS concepts",
			Topics: []types.TopicSpec{
				{Name: "Process Management", Difficulty: 3},
				{Name: "Memory Management", Difficulty: 2},
			},
		},
	})
	require.NoError(t, err)

	result, err := c.AddQuestionsBatch(ctx, []types.QuestionRecord{
		{QuestionText: "What is a race condition?", Subject: "Operating Systems", Topic: "Process Management", Year: 2022, Difficulty: 2},
		{QuestionText: "Explain thrashing", Subject: "Operating Systems", Topic: "Memory Management", Year: 2021},
		{QuestionText: "Explain TCP handshake", Subject: "Networks", Topic: "Transport"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Succeeded)
	require.Len(t, result.Rejected, 1)

	chunks, err := c.AddChunksBatch(ctx, []types.ChunkRecord{
		{Text: "semaphores coordinate access to shared resources", Subject: "Operating Systems", Topic: "Process Management"},
		{Text: "paging divides memory into fixed size frames", Subject: "Operating Systems", Topic: "Memory Management"},
	}, 1)
	require.NoError(t, err)
	require.Equal(t, 2, chunks.Succeeded)

	_, err = c.AddConcept(ctx, "Semaphore", "A counter guarding a resource", "Process Management", "Operating Systems")
	require.NoError(t, err)
}

func TestNewClientRequiresDependencies(t *testing.T) {
	_, err := studygraph.NewClient(nil, embedder.NewHashClient(dims), nil, nil)
	assert.ErrorIs(t, err, studygraph.ErrNilStore)

	_, err = studygraph.NewClient(driver.NewMemoryDriver(), nil, nil, nil)
	assert.ErrorIs(t, err, studygraph.ErrNilEmbedder)
}

func TestNewClientDefaults(t *testing.T) {
	c := newTestClient(t)
	assert.Equal(t, retriever.DefaultK, c.GetConfig().DefaultK)
	assert.Equal(t, 60.0, c.GetConfig().WeakThreshold)
	assert.Equal(t, dims, c.GetEmbedder().Dimensions())
	assert.Equal(t, driver.GraphProviderMemory, c.GetStore().Provider())
}

func TestIngestAndRetrieve(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	seed(t, c)

	stats, err := c.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, &types.Statistics{Subjects: 1, Topics: 2, Questions: 2, Chunks: 2, Concepts: 1}, stats)

	hybrid, err := c.HybridSearch(ctx, "semaphores coordinate access to shared resources", "Operating Systems", "Process Management", 3)
	require.NoError(t, err)
	assert.True(t, hybrid.TopicContext.Found)
	assert.Equal(t, []string{"Semaphore"}, hybrid.TopicContext.Concepts)
	assert.Equal(t, int64(1), hybrid.TopicContext.QuestionCount)
	require.Len(t, hybrid.Chunks, 1)
	assert.Equal(t, "Process Management", hybrid.Chunks[0].Topic)

	all, err := c.VectorSearch(ctx, "paging divides memory into fixed size frames", 5, "", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Memory Management", all[0].Topic)

	questions, err := c.QuestionsByTopic(ctx, "Operating Systems", "Process Management", retriever.QuestionFilter{})
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, 2022, questions[0].Year)

	subjects, err := c.ListSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, subjects, 1)

	topics, err := c.TopicsForSubject(ctx, "Operating Systems")
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, "Memory Management", topics[0].Name)
}

func TestAddQuestionMissingTopic(t *testing.T) {
	c := newTestClient(t)
	_, err := c.AddQuestion(context.Background(), types.QuestionRecord{QuestionText: "?", Subject: "X", Topic: "Y"})
	assert.ErrorIs(t, err, types.ErrTopicNotFound)
	_, ok := types.AsRejection(err)
	assert.True(t, ok)
}

func TestProgressPerLearner(t *testing.T) {
	c := newTestClient(t)
	seed(t, c)

	alice := types.WithUserID(context.Background(), "alice")
	bob := types.WithUserID(context.Background(), "bob")

	for _, correct := range []bool{true, false, false} {
		_, err := c.RecordAttempt(alice, types.AttemptRecord{
			QuestionText: "Explain thrashing",
			Subject:      "Operating Systems",
			Topic:        "Memory Management",
			Correct:      correct,
		})
		require.NoError(t, err)
	}

	stats, err := c.UserStats(alice, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Attempted)
	assert.Equal(t, int64(1), stats.Correct)
	assert.Equal(t, 33.3, stats.Accuracy)

	other, err := c.UserStats(bob, "", "")
	require.NoError(t, err)
	assert.Zero(t, other.Attempted)

	weak, err := c.WeakTopics(alice, "", 0)
	require.NoError(t, err)
	require.Len(t, weak, 1)
	assert.Equal(t, "Memory Management", weak[0].Topic)

	progress, err := c.TopicProgress(alice, "Operating Systems")
	require.NoError(t, err)
	assert.Len(t, progress, 2)

	_, err = c.RecordAttempt(alice, types.AttemptRecord{QuestionID: "missing"})
	assert.ErrorIs(t, err, types.ErrQuestionNotFound)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	seed(t, c)

	require.NoError(t, c.Clear(ctx))
	stats, err := c.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, &types.Statistics{}, stats)
}

func TestNewStore(t *testing.T) {
	store, err := studygraph.NewStore(config.DatabaseConfig{Driver: "memory"}, dims)
	require.NoError(t, err)
	assert.Equal(t, driver.GraphProviderMemory, store.Provider())

	_, err = studygraph.NewStore(config.DatabaseConfig{Driver: "sqlite"}, dims)
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{
		Database:       config.DatabaseConfig{Driver: "memory"},
		Embedding:      config.EmbeddingConfig{Provider: embedder.ProviderHash, Dimensions: dims},
		CircuitBreaker: config.CircuitBreakerConfig{Enabled: true, Timeout: 5},
		Ingest:         config.IngestConfig{DefaultResults: 7, WeakThreshold: 50},
	}

	c, err := studygraph.NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 7, c.GetConfig().DefaultK)
	assert.Equal(t, 50.0, c.GetConfig().WeakThreshold)
	assert.Equal(t, dims, c.GetEmbedder().Dimensions())
}

package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/soundprediction/studygraph/pkg/driver"
	"github.com/soundprediction/studygraph/pkg/embedder"
	"github.com/soundprediction/studygraph/pkg/types"
	"github.com/soundprediction/studygraph/pkg/utils"
)

// Store is the subset of driver.GraphStore the builder writes through.
type Store interface {
	driver.NodeWriter
	Count(ctx context.Context, label string) (int64, error)
}

// Builder writes curriculum and content records into the graph.
type Builder struct {
	store   Store
	port    embedder.Port
	logger  *slog.Logger
	limiter *rate.Limiter
}

// Options configures a Builder.
type Options struct {
	Logger *slog.Logger
	// BatchRate caps chunk batches per second in AddChunksBatch. Zero
	// disables pacing.
	BatchRate float64
}

// NewBuilder creates a builder writing to store and embedding with port.
func NewBuilder(store Store, port embedder.Port, opts *Options) *Builder {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{
		store:  store,
		port:   port,
		logger: logger.With("component", "builder"),
	}
	if opts.BatchRate > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(opts.BatchRate), 1)
	}
	return b
}

// CurriculumResult reports what LoadCurriculum wrote.
type CurriculumResult struct {
	Subjects []types.Subject `json:"subjects"`
	Topics   []types.Topic   `json:"topics"`
}

// LoadCurriculum upserts one Subject per key and one Topic per listed
// topic, linked by HAS_TOPIC. Re-running it with the same tree updates
// descriptions and difficulty without duplicating nodes.
func (b *Builder) LoadCurriculum(ctx context.Context, curriculum types.Curriculum) (*CurriculumResult, error) {
	if err := curriculum.Validate(); err != nil {
		return nil, err
	}

	result := &CurriculumResult{}
	for _, name := range curriculum.SubjectNames() {
		spec := curriculum[name]
		subject, err := b.store.UpsertNode(ctx, types.LabelSubject,
			driver.Props{"name": name},
			driver.Props{"description": spec.Description})
		if err != nil {
			return result, fmt.Errorf("failed to upsert subject %q: %w", name, err)
		}
		result.Subjects = append(result.Subjects, driver.ToSubject(subject))

		for _, t := range spec.Topics {
			topic, err := b.store.UpsertAnchored(ctx, driver.SubjectRef(name), types.EdgeHasTopic, types.LabelTopic,
				driver.Props{"name": t.Name, "subject": name},
				driver.Props{"description": t.Description, "difficulty_level": int64(t.Difficulty)})
			if err != nil {
				return result, fmt.Errorf("failed to upsert topic %q/%q: %w", name, t.Name, err)
			}
			result.Topics = append(result.Topics, driver.ToTopic(topic))
		}
		b.logger.Debug("Loaded subject", "subject", name, "topics", len(spec.Topics))
	}

	b.logger.Info("Curriculum loaded", "subjects", len(result.Subjects), "topics", len(result.Topics))
	return result, nil
}

// AddQuestion creates a Question under its topic. It embeds the question
// text followed by its options, one per line. A record that fails
// validation or names a missing topic is returned as a *types.Rejection.
func (b *Builder) AddQuestion(ctx context.Context, rec types.QuestionRecord) (*types.Question, error) {
	if err := rec.Validate(); err != nil {
		return nil, types.NewRejection(types.KindQuestion, 0, rec.Subject, rec.Topic, err)
	}

	attrs := driver.Props{
		"text":                  rec.QuestionText,
		"year":                  int64(rec.Year),
		"paper_set":             rec.PaperSet,
		"options":               rec.Options,
		"answer":                rec.Answer,
		"difficulty":            int64(rec.Difficulty),
		"marks":                 int64(rec.Marks),
		types.EmbeddingProperty: b.port.Vector(ctx, rec.EmbeddingText()),
	}

	node, err := b.store.CreateAnchored(ctx, driver.TopicRef(rec.Subject, rec.Topic),
		types.EdgeHasQuestion, types.LabelQuestion, attrs)
	if err != nil {
		return nil, b.contentError(types.KindQuestion, rec.Subject, rec.Topic, err)
	}

	q := driver.ToQuestion(node, false)
	return &q, nil
}

// AddQuestionsBatch applies AddQuestion to every record in order. Rejected
// records are collected; a backend error stops the batch and is returned
// along with the partial result.
func (b *Builder) AddQuestionsBatch(ctx context.Context, records []types.QuestionRecord) (*types.BatchResult, error) {
	result := &types.BatchResult{Rejected: []*types.Rejection{}}
	for i, rec := range records {
		q, err := b.AddQuestion(ctx, rec)
		if err != nil {
			if rej, ok := types.AsRejection(err); ok {
				rej.Index = i
				result.Rejected = append(result.Rejected, rej)
				continue
			}
			return result, fmt.Errorf("question %d: %w", i, err)
		}
		result.Succeeded++
		result.Created = append(result.Created, q.UUID)
	}

	b.logger.Info("Question batch processed",
		"succeeded", result.Succeeded,
		"rejected", len(result.Rejected))
	return result, nil
}

// AddChunk creates a Chunk under its topic. A supplied embedding of the
// configured dimension is stored as-is; otherwise the text is embedded.
func (b *Builder) AddChunk(ctx context.Context, rec types.ChunkRecord) (*types.Chunk, error) {
	if err := rec.Validate(); err != nil {
		return nil, types.NewRejection(types.KindChunk, 0, rec.Subject, rec.Topic, err)
	}

	embedding := rec.Embedding
	if len(embedding) != b.port.Dimensions() {
		if len(embedding) > 0 {
			b.logger.Warn("Supplied chunk embedding has wrong dimension, recomputing",
				"got", len(embedding), "want", b.port.Dimensions())
		}
		embedding = b.port.Vector(ctx, rec.Text)
	}

	attrs := driver.Props{
		"text":                  rec.Text,
		"source_file":           rec.SourceFile,
		"source_type":           rec.SourceType,
		"page_number":           int64(rec.PageNumber),
		"chunk_index":           int64(rec.ChunkIndex),
		types.EmbeddingProperty: embedding,
	}

	node, err := b.store.CreateAnchored(ctx, driver.TopicRef(rec.Subject, rec.Topic),
		types.EdgeExplainedBy, types.LabelChunk, attrs)
	if err != nil {
		return nil, b.contentError(types.KindChunk, rec.Subject, rec.Topic, err)
	}

	c := driver.ToChunk(node, false)
	return &c, nil
}

// AddChunksBatch applies AddChunk to every record in order, batchSize
// records at a time. Batching only paces I/O: the outcome per record is
// the same as calling AddChunk on each.
func (b *Builder) AddChunksBatch(ctx context.Context, records []types.ChunkRecord, batchSize int) (*types.BatchResult, error) {
	result := &types.BatchResult{Rejected: []*types.Rejection{}}
	offset := 0
	for n, batch := range utils.Batch(records, batchSize) {
		if n > 0 && b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return result, err
			}
		}
		for i, rec := range batch {
			c, err := b.AddChunk(ctx, rec)
			if err != nil {
				if rej, ok := types.AsRejection(err); ok {
					rej.Index = offset + i
					result.Rejected = append(result.Rejected, rej)
					continue
				}
				return result, fmt.Errorf("chunk %d: %w", offset+i, err)
			}
			result.Succeeded++
			result.Created = append(result.Created, c.UUID)
		}
		offset += len(batch)
		b.logger.Debug("Chunk batch written", "batch", n, "processed", offset, "total", len(records))
	}

	b.logger.Info("Chunk batch processed",
		"succeeded", result.Succeeded,
		"rejected", len(result.Rejected))
	return result, nil
}

// AddConcept upserts a Concept by (name, topic, subject) and links it from
// its topic.
func (b *Builder) AddConcept(ctx context.Context, name, explanation, topic, subject string) (*types.Concept, error) {
	if name == "" || topic == "" || subject == "" {
		return nil, types.NewRejection(types.KindConcept, 0, subject, topic,
			fmt.Errorf("%w: concept name, topic and subject are required", types.ErrInvalidRecord))
	}

	node, err := b.store.UpsertAnchored(ctx, driver.TopicRef(subject, topic), types.EdgeHasConcept, types.LabelConcept,
		driver.Props{"name": name, "topic": topic, "subject": subject},
		driver.Props{"explanation": explanation})
	if err != nil {
		return nil, b.contentError(types.KindConcept, subject, topic, err)
	}

	c := driver.ToConcept(node)
	return &c, nil
}

// Statistics counts the nodes of every curriculum and content label.
func (b *Builder) Statistics(ctx context.Context) (*types.Statistics, error) {
	stats := &types.Statistics{}
	counts := []struct {
		label string
		dst   *int64
	}{
		{types.LabelSubject, &stats.Subjects},
		{types.LabelTopic, &stats.Topics},
		{types.LabelQuestion, &stats.Questions},
		{types.LabelChunk, &stats.Chunks},
		{types.LabelConcept, &stats.Concepts},
	}
	for _, c := range counts {
		n, err := b.store.Count(ctx, c.label)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s nodes: %w", c.label, err)
		}
		*c.dst = n
	}
	return stats, nil
}

// contentError maps a missing topic anchor to a rejection and passes
// backend errors through.
func (b *Builder) contentError(kind, subject, topic string, err error) error {
	if errors.Is(err, driver.ErrAnchorNotFound) {
		b.logger.Warn("Topic not found, record rejected", "kind", kind, "subject", subject, "topic", topic)
		return types.NewRejection(kind, 0, subject, topic,
			fmt.Errorf("%w: %s/%s", types.ErrTopicNotFound, subject, topic))
	}
	return fmt.Errorf("failed to create %s: %w", kind, err)
}

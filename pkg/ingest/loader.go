package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/studygraph/pkg/alert"
	"github.com/soundprediction/studygraph/pkg/builder"
	"github.com/soundprediction/studygraph/pkg/checkpoint"
	"github.com/soundprediction/studygraph/pkg/metrics"
	"github.com/soundprediction/studygraph/pkg/types"
	"github.com/soundprediction/studygraph/pkg/utils"
)

// Writer is the part of builder.Builder a Loader drives.
type Writer interface {
	LoadCurriculum(ctx context.Context, curriculum types.Curriculum) (*builder.CurriculumResult, error)
	AddQuestionsBatch(ctx context.Context, records []types.QuestionRecord) (*types.BatchResult, error)
	AddChunksBatch(ctx context.Context, records []types.ChunkRecord, batchSize int) (*types.BatchResult, error)
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	Logger *slog.Logger
	// Checkpoints enables resumable loads. Nil disables checkpointing.
	Checkpoints *checkpoint.CheckpointManager
	// Embedder, when set, precomputes chunk embeddings before writing.
	Embedder BatchEmbedder
	// Alerter is notified when a load stops on an error.
	Alerter     alert.Alerter
	BatchSize   int
	Concurrency int
}

// Loader reads record files and writes them through a Writer, saving a
// checkpoint after every batch.
type Loader struct {
	writer      Writer
	checkpoints *checkpoint.CheckpointManager
	embedder    BatchEmbedder
	alerter     alert.Alerter
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// LoadReport summarises a file load, including records written by earlier
// interrupted runs of the same file.
type LoadReport struct {
	Path    string             `json:"path"`
	Total   int                `json:"total"`
	Resumed bool               `json:"resumed"`
	Skipped int                `json:"skipped"`
	Result  *types.BatchResult `json:"result"`
}

// NewLoader creates a loader writing through w.
func NewLoader(w Writer, opts *LoaderOptions) *Loader {
	if opts == nil {
		opts = &LoaderOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = utils.DefaultBatchSize
	}
	return &Loader{
		writer:      w,
		checkpoints: opts.Checkpoints,
		embedder:    opts.Embedder,
		alerter:     opts.Alerter,
		batchSize:   batchSize,
		concurrency: opts.Concurrency,
		logger:      logger.With("component", "loader"),
	}
}

// LoadCurriculum reads and writes a curriculum file. Curriculum writes are
// idempotent so no checkpoint is kept.
func (l *Loader) LoadCurriculum(ctx context.Context, path string) (*builder.CurriculumResult, error) {
	curriculum, err := ReadCurriculum(path)
	if err != nil {
		return nil, err
	}
	return l.writer.LoadCurriculum(ctx, curriculum)
}

// LoadQuestions reads question records from path and writes them in batches.
func (l *Loader) LoadQuestions(ctx context.Context, path string) (*LoadReport, error) {
	records, err := ReadQuestions(path)
	if err != nil {
		return nil, err
	}
	return load(ctx, l, types.KindQuestion, path, records,
		func(ctx context.Context, batch []types.QuestionRecord) (*types.BatchResult, error) {
			return l.writer.AddQuestionsBatch(ctx, batch)
		})
}

// LoadChunks reads chunk records from path, precomputes missing embeddings
// when an embedder is configured, and writes them in batches.
func (l *Loader) LoadChunks(ctx context.Context, path string) (*LoadReport, error) {
	records, err := ReadChunks(path)
	if err != nil {
		return nil, err
	}
	return load(ctx, l, types.KindChunk, path, records,
		func(ctx context.Context, batch []types.ChunkRecord) (*types.BatchResult, error) {
			if l.embedder != nil {
				n, err := PrecomputeEmbeddings(ctx, l.embedder, batch, l.batchSize, l.concurrency)
				if err != nil {
					return nil, fmt.Errorf("failed to precompute embeddings: %w", err)
				}
				l.logger.Debug("Precomputed chunk embeddings", "count", n)
			}
			return l.writer.AddChunksBatch(ctx, batch, l.batchSize)
		})
}

// load drives one file through write, batch by batch, resuming after the
// last checkpointed offset.
func load[T any](ctx context.Context, l *Loader, kind, path string, records []T,
	write func(context.Context, []T) (*types.BatchResult, error)) (*LoadReport, error) {

	report := &LoadReport{Path: path, Total: len(records)}

	var cp *checkpoint.LoadCheckpoint
	if l.checkpoints != nil {
		var err error
		cp, report.Resumed, err = l.checkpoints.LoadOrCreate(ctx, kind, path, len(records))
		if err != nil {
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		if report.Resumed {
			l.logger.Info("Resuming load from checkpoint", "path", path, "progress", cp.GetProgress())
		}
	} else {
		cp = checkpoint.NewCheckpoint(kind, path, len(records))
	}

	remaining := checkpoint.Remaining(cp, records)
	report.Skipped = len(records) - len(remaining)

	for _, batch := range utils.Batch(remaining, l.batchSize) {
		result, err := write(ctx, batch)
		if err != nil {
			// Records the batch wrote before failing are kept so a resume
			// does not write them again.
			if result != nil && result.Processed() > 0 {
				metrics.ObserveBatch(kind, result)
				cp.Advance(result.Processed(), result)
			}
			if l.checkpoints != nil {
				if saveErr := l.checkpoints.SaveWithError(ctx, cp, err); saveErr != nil {
					l.logger.Error("Failed to save checkpoint", "error", saveErr)
				}
			}
			err = fmt.Errorf("load %s stopped at record %d: %w", path, cp.Offset, err)
			alert.Async(l.alerter, l.logger, fmt.Sprintf("Load failed - %s", kind), err.Error())
			return nil, err
		}
		metrics.ObserveBatch(kind, result)
		cp.Advance(len(batch), result)

		if l.checkpoints != nil {
			if err := l.checkpoints.Save(ctx, cp); err != nil {
				return nil, err
			}
		}
		l.logger.Debug("Batch loaded", "kind", kind, "progress", cp.GetProgress())
	}
	cp.Step = checkpoint.StepCompleted

	report.Result = &types.BatchResult{
		Succeeded: cp.Succeeded,
		Rejected:  cp.Rejected,
	}
	if l.checkpoints != nil {
		if err := l.checkpoints.Delete(ctx, cp.LoadID); err != nil {
			l.logger.Warn("Failed to delete completed checkpoint", "error", err)
		}
	}

	l.logger.Info("Records loaded",
		"kind", kind,
		"path", path,
		"succeeded", report.Result.Succeeded,
		"rejected", len(report.Result.Rejected),
		"skipped", report.Skipped)
	return report, nil
}

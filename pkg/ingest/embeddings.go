package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/soundprediction/studygraph/pkg/types"
	"github.com/soundprediction/studygraph/pkg/utils"
)

// BatchEmbedder embeds texts in one call, degrading per text instead of
// failing. embedder.SafePort implements it.
type BatchEmbedder interface {
	Vectors(ctx context.Context, texts []string) [][]float32
	Dimensions() int
}

// PrecomputeEmbeddings fills the Embedding of every chunk record whose
// embedding is missing or of the wrong dimension. Batches of batchSize are
// embedded with at most concurrency calls in flight. It returns the number
// of records embedded.
func PrecomputeEmbeddings(ctx context.Context, port BatchEmbedder, records []types.ChunkRecord, batchSize, concurrency int) (int, error) {
	dims := port.Dimensions()
	var pending []int
	for i := range records {
		if len(records[i].Embedding) != dims {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}
	if concurrency <= 0 {
		concurrency = utils.GetSemaphoreLimit()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, batch := range utils.Batch(pending, batchSize) {
		g.Go(func() (err error) {
			defer utils.Recover("embed chunk batch", &err)
			if err := gctx.Err(); err != nil {
				return err
			}
			texts := make([]string, len(batch))
			for j, idx := range batch {
				texts[j] = records[idx].Text
			}
			vecs := port.Vectors(gctx, texts)
			for j, idx := range batch {
				records[idx].Embedding = vecs[j]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(pending), nil
}

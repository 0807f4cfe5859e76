package studygraph

import (
	"context"

	"github.com/soundprediction/studygraph/pkg/metrics"
	"github.com/soundprediction/studygraph/pkg/types"
)

// RecordAttempt records one attempt by the learner in ctx.
func (c *Client) RecordAttempt(ctx context.Context, rec types.AttemptRecord) (*types.Attempt, error) {
	attempt, err := c.tracker.RecordAttempt(ctx, rec)
	if err == nil {
		metrics.ObserveAttempt(rec.Correct)
	}
	return attempt, err
}

// UserStats aggregates the learner's attempts, optionally within a subject or topic.
func (c *Client) UserStats(ctx context.Context, subject, topic string) (*types.UserStats, error) {
	return c.tracker.UserStats(ctx, subject, topic)
}

// TopicProgress reports the learner's progress per topic of subject.
func (c *Client) TopicProgress(ctx context.Context, subject string) ([]types.TopicProgress, error) {
	return c.tracker.TopicProgress(ctx, subject)
}

// WeakTopics returns topics where the learner's accuracy is below
// threshold. A threshold <= 0 uses the configured default.
func (c *Client) WeakTopics(ctx context.Context, subject string, threshold float64) ([]types.WeakTopic, error) {
	if threshold <= 0 {
		threshold = c.config.WeakThreshold
	}
	return c.tracker.WeakTopics(ctx, subject, threshold)
}

// Package progress tracks learners' attempts at questions.
//
// Each learner is a User node keyed by id; the id comes from the request
// context (types.UserIDFromContext) and defaults to types.DefaultUserID.
// Attempts accumulate on a single ATTEMPTED edge per (User, Question):
// counters are incremented in the same statement that creates the edge,
// so concurrent attempts never replace each other.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/soundprediction/studygraph/pkg/driver"
	"github.com/soundprediction/studygraph/pkg/types"
)

const (
	// DefaultWeakThreshold is the accuracy percentage below which a topic
	// counts as weak.
	DefaultWeakThreshold = 60.0
	// MinWeakAttempts is the number of attempts a topic needs before it can
	// be reported as weak.
	MinWeakAttempts = 3
	// MaxWeakTopics caps WeakTopics results.
	MaxWeakTopics = 10
)

// Store is the subset of driver.GraphStore used for progress tracking.
type Store interface {
	driver.NodeWriter
	driver.EdgeWriter
	driver.GraphReader
}

// Tracker records attempts and summarises accuracy.
type Tracker struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewTracker creates a tracker. A nil logger falls back to slog.Default().
func NewTracker(store Store, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:  store,
		logger: logger.With("component", "progress"),
		now:    time.Now,
	}
}

// RecordAttempt adds one attempt by the context's learner. The question is
// addressed by uuid, or by text within a topic; with text addressing every
// matching question in the topic is updated and the first is returned.
// Returns types.ErrQuestionNotFound when nothing matches, before the
// learner's User node is created.
func (t *Tracker) RecordAttempt(ctx context.Context, rec types.AttemptRecord) (*types.Attempt, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	userID := types.UserIDFromContext(ctx)

	questionIDs := []string{rec.QuestionID}
	if rec.QuestionID != "" {
		n, err := t.store.CountMatches(ctx, driver.Match("q", types.LabelQuestion, driver.Props{"uuid": rec.QuestionID}))
		if err != nil {
			return nil, fmt.Errorf("question lookup failed: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s", types.ErrQuestionNotFound, rec.QuestionID)
		}
	} else {
		ids, err := t.questionsByText(ctx, rec.Subject, rec.Topic, rec.QuestionText)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: %q in %s/%s", types.ErrQuestionNotFound, rec.QuestionText, rec.Subject, rec.Topic)
		}
		questionIDs = ids
	}

	userRef := driver.Ref(types.LabelUser, driver.Props{"id": userID})
	if _, err := t.store.UpsertNode(ctx, types.LabelUser, userRef.Match, nil); err != nil {
		return nil, fmt.Errorf("failed to ensure user %q: %w", userID, err)
	}

	now := t.now()
	update := driver.EdgeUpdate{
		OnCreate:  driver.Props{"first_attempt": now},
		Set:       driver.Props{"last_attempt": now},
		Increment: map[string]int64{"attempt_count": 1, "correct_count": 0},
	}
	if rec.Correct {
		update.Set["last_correct"] = now
		update.Increment["correct_count"] = 1
	}

	var first *types.Attempt
	for _, id := range questionIDs {
		edges, err := t.store.MergeEdge(ctx, userRef,
			driver.Ref(types.LabelQuestion, driver.Props{"uuid": id}),
			types.EdgeAttempted, update)
		if err != nil {
			if errors.Is(err, driver.ErrNodeNotFound) {
				return nil, fmt.Errorf("%w: %s", types.ErrQuestionNotFound, id)
			}
			return nil, fmt.Errorf("failed to record attempt: %w", err)
		}
		if first == nil && len(edges) > 0 {
			a := driver.ToAttempt(userID, edges[0])
			first = &a
		}
	}

	t.logger.Debug("Attempt recorded", "user_id", userID, "questions", len(questionIDs), "correct", rec.Correct)
	return first, nil
}

func (t *Tracker) questionsByText(ctx context.Context, subject, topic, text string) ([]string, error) {
	records, err := t.store.Query(ctx, driver.Match("t", types.LabelTopic, driver.Props{"name": topic, "subject": subject}).
		Out(types.EdgeHasQuestion, "q", types.LabelQuestion, driver.Props{"text": text}))
	if err != nil {
		return nil, fmt.Errorf("question lookup failed: %w", err)
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.Node("q").UUID)
	}
	return ids, nil
}

// topicTally accumulates attempt counters for one topic.
type topicTally struct {
	topic    types.Topic
	attempts int64
	correct  int64
}

// tally sums the learner's ATTEMPTED counters per topic, restricted to
// topics matching the given properties.
func (t *Tracker) tally(ctx context.Context, userID string, topicMatch driver.Props) (map[string]*topicTally, error) {
	records, err := t.store.Query(ctx, driver.Match("t", types.LabelTopic, topicMatch).
		Out(types.EdgeHasQuestion, "q", types.LabelQuestion, nil).
		In(types.EdgeAttempted, "u", types.LabelUser, driver.Props{"id": userID}).As("a"))
	if err != nil {
		return nil, fmt.Errorf("attempt lookup failed: %w", err)
	}
	tallies := make(map[string]*topicTally)
	for _, rec := range records {
		tn := rec.Node("t")
		tt, ok := tallies[tn.UUID]
		if !ok {
			tt = &topicTally{topic: driver.ToTopic(tn)}
			tallies[tn.UUID] = tt
		}
		a := rec.Edge("a")
		tt.attempts += a.Int64("attempt_count")
		tt.correct += a.Int64("correct_count")
	}
	return tallies, nil
}

// UserStats sums the context learner's attempts, optionally restricted to
// a subject or a single topic.
func (t *Tracker) UserStats(ctx context.Context, subject, topic string) (*types.UserStats, error) {
	userID := types.UserIDFromContext(ctx)
	stats := &types.UserStats{UserID: userID}

	if subject == "" && topic == "" {
		records, err := t.store.Query(ctx, driver.Match("u", types.LabelUser, driver.Props{"id": userID}).
			Out(types.EdgeAttempted, "q", types.LabelQuestion, nil).As("a"))
		if err != nil {
			return nil, fmt.Errorf("attempt lookup failed: %w", err)
		}
		for _, rec := range records {
			stats.Attempted += rec.Edge("a").Int64("attempt_count")
			stats.Correct += rec.Edge("a").Int64("correct_count")
		}
	} else {
		match := driver.Props{}
		if subject != "" {
			match["subject"] = subject
		}
		if topic != "" {
			match["name"] = topic
		}
		tallies, err := t.tally(ctx, userID, match)
		if err != nil {
			return nil, err
		}
		for _, tt := range tallies {
			stats.Attempted += tt.attempts
			stats.Correct += tt.correct
		}
	}

	stats.Accuracy = accuracy(stats.Correct, stats.Attempted)
	return stats, nil
}

// TopicProgress reports the context learner's progress in every topic of a
// subject, ordered by topic name. Topics without attempts are included.
func (t *Tracker) TopicProgress(ctx context.Context, subject string) ([]types.TopicProgress, error) {
	userID := types.UserIDFromContext(ctx)

	topics, err := t.store.Query(ctx, driver.Match("t", types.LabelTopic, driver.Props{"subject": subject}).
		OrderBy("t", "name", false))
	if err != nil {
		return nil, fmt.Errorf("topic lookup failed: %w", err)
	}
	tallies, err := t.tally(ctx, userID, driver.Props{"subject": subject})
	if err != nil {
		return nil, err
	}

	out := make([]types.TopicProgress, 0, len(topics))
	for _, rec := range topics {
		tn := rec.Node("t")
		topic := driver.ToTopic(tn)
		total, err := t.store.CountMatches(ctx, driver.Match("t", types.LabelTopic, driver.Props{"name": topic.Name, "subject": subject}).
			Out(types.EdgeHasQuestion, "q", types.LabelQuestion, nil))
		if err != nil {
			return nil, fmt.Errorf("question count failed: %w", err)
		}
		p := types.TopicProgress{
			Topic:          topic.Name,
			Difficulty:     topic.Difficulty,
			TotalQuestions: total,
		}
		if tt, ok := tallies[tn.UUID]; ok {
			p.Attempts, p.Correct = tt.attempts, tt.correct
			p.Accuracy = accuracy(tt.correct, tt.attempts)
		}
		out = append(out, p)
	}
	return out, nil
}

// WeakTopics returns up to MaxWeakTopics topics with at least
// MinWeakAttempts attempts and accuracy below threshold, weakest first and
// most attempted first among equals. A threshold <= 0 uses
// DefaultWeakThreshold.
func (t *Tracker) WeakTopics(ctx context.Context, subject string, threshold float64) ([]types.WeakTopic, error) {
	if threshold <= 0 {
		threshold = DefaultWeakThreshold
	}
	match := driver.Props{}
	if subject != "" {
		match["subject"] = subject
	}
	tallies, err := t.tally(ctx, types.UserIDFromContext(ctx), match)
	if err != nil {
		return nil, err
	}

	out := make([]types.WeakTopic, 0)
	raw := make(map[string]float64)
	for _, tt := range tallies {
		if tt.attempts < MinWeakAttempts {
			continue
		}
		acc := float64(tt.correct) / float64(tt.attempts) * 100
		if acc >= threshold {
			continue
		}
		key := tt.topic.Subject + "/" + tt.topic.Name
		raw[key] = acc
		out = append(out, types.WeakTopic{
			Topic:      tt.topic.Name,
			Subject:    tt.topic.Subject,
			Difficulty: tt.topic.Difficulty,
			Attempts:   tt.attempts,
			Correct:    tt.correct,
			Accuracy:   round1(acc),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		ai, aj := raw[out[i].Subject+"/"+out[i].Topic], raw[out[j].Subject+"/"+out[j].Topic]
		if ai != aj {
			return ai < aj
		}
		if out[i].Attempts != out[j].Attempts {
			return out[i].Attempts > out[j].Attempts
		}
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].Topic < out[j].Topic
	})
	if len(out) > MaxWeakTopics {
		out = out[:MaxWeakTopics]
	}
	return out, nil
}

// accuracy is correct/attempts as a percentage rounded to one decimal, or
// 0 when there are no attempts.
func accuracy(correct, attempts int64) float64 {
	if attempts == 0 {
		return 0
	}
	return round1(float64(correct) / float64(attempts) * 100)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

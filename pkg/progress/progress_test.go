package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/studygraph/pkg/builder"
	"github.com/soundprediction/studygraph/pkg/driver"
	"github.com/soundprediction/studygraph/pkg/embedder"
	"github.com/soundprediction/studygraph/pkg/types"
)

type fixture struct {
	tracker   *Tracker
	questions map[string]string // text -> uuid
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := driver.NewMemoryDriver()
	t.Cleanup(func() { store.Close() })

	b := builder.NewBuilder(store, embedder.NewSafePort(embedder.NewHashClient(16), nil), nil)
	_, err := b.LoadCurriculum(ctx, types.Curriculum{
		"OS": {Topics: []types.TopicSpec{
			{Name: "Deadlocks", Difficulty: 4},
			{Name: "Paging", Difficulty: 2},
			{Name: "Scheduling", Difficulty: 3},
		}},
		"Algorithms": {Topics: []types.TopicSpec{{Name: "Sorting", Difficulty: 2}}},
	})
	require.NoError(t, err)

	f := &fixture{questions: map[string]string{}, clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	for _, rec := range []types.QuestionRecord{
		{QuestionText: "Coffman conditions?", Subject: "OS", Topic: "Deadlocks"},
		{QuestionText: "Banker's algorithm?", Subject: "OS", Topic: "Deadlocks"},
		{QuestionText: "What is a TLB?", Subject: "OS", Topic: "Paging"},
		{QuestionText: "Round robin?", Subject: "OS", Topic: "Scheduling"},
		{QuestionText: "Is merge sort stable?", Subject: "Algorithms", Topic: "Sorting"},
	} {
		q, err := b.AddQuestion(ctx, rec)
		require.NoError(t, err)
		f.questions[rec.QuestionText] = q.UUID
	}

	f.tracker = NewTracker(store, nil)
	f.tracker.now = func() time.Time {
		f.clock = f.clock.Add(time.Minute)
		return f.clock
	}
	return f
}

func (f *fixture) attempt(t *testing.T, ctx context.Context, text string, correct bool) *types.Attempt {
	t.Helper()
	a, err := f.tracker.RecordAttempt(ctx, types.AttemptRecord{QuestionID: f.questions[text], Correct: correct})
	require.NoError(t, err)
	return a
}

func TestRecordAttemptAccumulates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first := f.attempt(t, ctx, "What is a TLB?", false)
	assert.Equal(t, types.DefaultUserID, first.UserID)
	assert.Equal(t, int64(1), first.AttemptCount)
	assert.Equal(t, int64(0), first.CorrectCount)
	assert.Nil(t, first.LastCorrect)
	assert.Equal(t, first.FirstAttempt, first.LastAttempt)

	second := f.attempt(t, ctx, "What is a TLB?", true)
	assert.Equal(t, int64(2), second.AttemptCount)
	assert.Equal(t, int64(1), second.CorrectCount)
	assert.Equal(t, first.FirstAttempt, second.FirstAttempt)
	assert.True(t, second.LastAttempt.After(first.LastAttempt))
	require.NotNil(t, second.LastCorrect)
	assert.Equal(t, second.LastAttempt, *second.LastCorrect)

	third := f.attempt(t, ctx, "What is a TLB?", false)
	assert.Equal(t, int64(3), third.AttemptCount)
	assert.Equal(t, int64(1), third.CorrectCount)
	assert.Equal(t, *second.LastCorrect, *third.LastCorrect)
}

func TestRecordAttemptByText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	a, err := f.tracker.RecordAttempt(ctx, types.AttemptRecord{
		QuestionText: "Round robin?", Subject: "OS", Topic: "Scheduling", Correct: true,
	})
	require.NoError(t, err)
	assert.Equal(t, f.questions["Round robin?"], a.QuestionUUID)

	_, err = f.tracker.RecordAttempt(ctx, types.AttemptRecord{
		QuestionText: "Round robin?", Subject: "OS", Topic: "Paging",
	})
	assert.ErrorIs(t, err, types.ErrQuestionNotFound)
}

func TestRecordAttemptUnknownQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	userCtx := types.WithUserID(ctx, "ghost")
	_, err := f.tracker.RecordAttempt(userCtx, types.AttemptRecord{QuestionID: "no-such-uuid"})
	assert.ErrorIs(t, err, types.ErrQuestionNotFound)
	_, err = f.tracker.RecordAttempt(userCtx, types.AttemptRecord{
		QuestionText: "Round robin?", Subject: "OS", Topic: "Paging",
	})
	assert.ErrorIs(t, err, types.ErrQuestionNotFound)

	// A failed attempt leaves no learner behind.
	users, err := f.tracker.store.Count(ctx, types.LabelUser)
	require.NoError(t, err)
	assert.Zero(t, users)

	_, err = f.tracker.RecordAttempt(ctx, types.AttemptRecord{})
	assert.ErrorIs(t, err, types.ErrInvalidRecord)
}

func TestLearnersAreSeparate(t *testing.T) {
	f := newFixture(t)
	alice := types.WithUserID(context.Background(), "alice")
	bob := types.WithUserID(context.Background(), "bob")

	f.attempt(t, alice, "What is a TLB?", true)
	f.attempt(t, alice, "What is a TLB?", true)
	f.attempt(t, bob, "What is a TLB?", false)

	aliceStats, err := f.tracker.UserStats(alice, "", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", aliceStats.UserID)
	assert.Equal(t, int64(2), aliceStats.Attempted)
	assert.Equal(t, 100.0, aliceStats.Accuracy)

	bobStats, err := f.tracker.UserStats(bob, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobStats.Attempted)
	assert.Equal(t, 0.0, bobStats.Accuracy)

	defaultStats, err := f.tracker.UserStats(context.Background(), "", "")
	require.NoError(t, err)
	assert.Zero(t, defaultStats.Attempted)
	assert.Zero(t, defaultStats.Accuracy)
}

func TestUserStatsScopes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.attempt(t, ctx, "Coffman conditions?", true)
	f.attempt(t, ctx, "Banker's algorithm?", false)
	f.attempt(t, ctx, "Banker's algorithm?", false)
	f.attempt(t, ctx, "What is a TLB?", true)
	f.attempt(t, ctx, "Is merge sort stable?", true)

	tests := []struct {
		name      string
		subject   string
		topic     string
		attempted int64
		correct   int64
		accuracy  float64
	}{
		{"overall", "", "", 5, 3, 60},
		{"subject", "OS", "", 4, 2, 50},
		{"topic", "OS", "Deadlocks", 3, 1, 33.3},
		{"no attempts", "OS", "Scheduling", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := f.tracker.UserStats(ctx, tt.subject, tt.topic)
			require.NoError(t, err)
			assert.Equal(t, tt.attempted, stats.Attempted)
			assert.Equal(t, tt.correct, stats.Correct)
			assert.Equal(t, tt.accuracy, stats.Accuracy)
		})
	}
}

func TestTopicProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.attempt(t, ctx, "Coffman conditions?", true)
	f.attempt(t, ctx, "Coffman conditions?", false)
	f.attempt(t, ctx, "What is a TLB?", true)

	got, err := f.tracker.TopicProgress(ctx, "OS")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, types.TopicProgress{Topic: "Deadlocks", Difficulty: 4, TotalQuestions: 2, Attempts: 2, Correct: 1, Accuracy: 50}, got[0])
	assert.Equal(t, types.TopicProgress{Topic: "Paging", Difficulty: 2, TotalQuestions: 1, Attempts: 1, Correct: 1, Accuracy: 100}, got[1])
	assert.Equal(t, types.TopicProgress{Topic: "Scheduling", Difficulty: 3, TotalQuestions: 1}, got[2])
}

func TestWeakTopics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Deadlocks: 1/4 = 25%.
	f.attempt(t, ctx, "Coffman conditions?", true)
	f.attempt(t, ctx, "Coffman conditions?", false)
	f.attempt(t, ctx, "Banker's algorithm?", false)
	f.attempt(t, ctx, "Banker's algorithm?", false)
	// Paging: 1/3 = 33.3%.
	f.attempt(t, ctx, "What is a TLB?", true)
	f.attempt(t, ctx, "What is a TLB?", false)
	f.attempt(t, ctx, "What is a TLB?", false)
	// Scheduling: too few attempts.
	f.attempt(t, ctx, "Round robin?", false)
	// Sorting: 2/3 = 66.7%, above the default threshold.
	f.attempt(t, ctx, "Is merge sort stable?", true)
	f.attempt(t, ctx, "Is merge sort stable?", true)
	f.attempt(t, ctx, "Is merge sort stable?", false)

	weak, err := f.tracker.WeakTopics(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, weak, 2)
	assert.Equal(t, "Deadlocks", weak[0].Topic)
	assert.Equal(t, 25.0, weak[0].Accuracy)
	assert.Equal(t, int64(4), weak[0].Attempts)
	assert.Equal(t, "Paging", weak[1].Topic)
	assert.Equal(t, 33.3, weak[1].Accuracy)

	weak, err = f.tracker.WeakTopics(ctx, "Algorithms", 70)
	require.NoError(t, err)
	require.Len(t, weak, 1)
	assert.Equal(t, "Sorting", weak[0].Topic)

	weak, err = f.tracker.WeakTopics(ctx, "OS", 20)
	require.NoError(t, err)
	assert.Empty(t, weak)
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 0.0, accuracy(0, 0))
	assert.Equal(t, 33.3, accuracy(1, 3))
	assert.Equal(t, 66.7, accuracy(2, 3))
	assert.Equal(t, 100.0, accuracy(4, 4))
}

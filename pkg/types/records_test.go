package types

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     QuestionRecord
		wantErr bool
	}{
		{
			name: "valid record",
			rec:  QuestionRecord{QuestionText: "What is merge sort?", Subject: "Algorithms", Topic: "Sorting", Year: 2023},
		},
		{
			name: "empty text is allowed",
			rec:  QuestionRecord{Subject: "Algorithms", Topic: "Sorting"},
		},
		{
			name:    "missing subject",
			rec:     QuestionRecord{QuestionText: "q", Topic: "Sorting"},
			wantErr: true,
		},
		{
			name:    "blank topic",
			rec:     QuestionRecord{QuestionText: "q", Subject: "Algorithms", Topic: "   "},
			wantErr: true,
		},
		{
			name:    "difficulty out of range",
			rec:     QuestionRecord{QuestionText: "q", Subject: "Algorithms", Topic: "Sorting", Difficulty: 9},
			wantErr: true,
		},
		{
			name:    "negative year",
			rec:     QuestionRecord{QuestionText: "q", Subject: "Algorithms", Topic: "Sorting", Year: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRecord))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestQuestionRecordDefaults(t *testing.T) {
	rec := QuestionRecord{QuestionText: "q", Subject: " OS ", Topic: "Deadlocks "}
	require.NoError(t, rec.Validate())

	assert.Equal(t, "OS", rec.Subject)
	assert.Equal(t, "Deadlocks", rec.Topic)
	assert.Equal(t, DefaultPaperSet, rec.PaperSet)
	assert.Equal(t, DefaultMarks, rec.Marks)
	assert.NotNil(t, rec.Options)
}

func TestQuestionRecordValidationMessageUsesJSONNames(t *testing.T) {
	rec := QuestionRecord{QuestionText: "q", Topic: "Sorting"}
	err := rec.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject")
}

func TestEmbeddingText(t *testing.T) {
	rec := QuestionRecord{QuestionText: "Which is stable?", Options: []string{"A. quick", "B. merge"}}
	assert.Equal(t, "Which is stable?\nA. quick\nB. merge", rec.EmbeddingText())

	rec.Options = nil
	assert.Equal(t, "Which is stable?", rec.EmbeddingText())
}

func TestChunkRecordDefaults(t *testing.T) {
	rec := ChunkRecord{Text: "paging splits memory", Subject: "OS", Topic: "Memory Management"}
	require.NoError(t, rec.Validate())
	assert.Equal(t, DefaultSourceFile, rec.SourceFile)
	assert.Equal(t, DefaultSourceType, rec.SourceType)

	bad := ChunkRecord{Text: "x", Subject: "OS", Topic: "Memory", PageNumber: -3}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecord)
}

func TestAttemptRecordValidate(t *testing.T) {
	byID := AttemptRecord{QuestionID: "abc", Correct: true}
	assert.NoError(t, byID.Validate())

	byText := AttemptRecord{QuestionText: "What is paging?", Subject: "OS", Topic: "Memory"}
	assert.NoError(t, byText.Validate())

	missingTopic := AttemptRecord{QuestionText: "What is paging?", Subject: "OS"}
	assert.ErrorIs(t, missingTopic.Validate(), ErrInvalidRecord)

	empty := AttemptRecord{}
	assert.ErrorIs(t, empty.Validate(), ErrInvalidRecord)
}

func TestCurriculumValidate(t *testing.T) {
	c := Curriculum{
		"Algorithms": {Topics: []TopicSpec{{Name: "Sorting", Difficulty: 2}, {Name: "Searching"}}},
		"Databases":  {Description: "DBMS"},
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"Algorithms", "Databases"}, c.SubjectNames())
	assert.Equal(t, DefaultDifficulty, c["Algorithms"].Topics[1].Difficulty)

	bad := Curriculum{"Algorithms": {Topics: []TopicSpec{{Name: "Sorting", Difficulty: 7}}}}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecord)

	unnamed := Curriculum{"Algorithms": {Topics: []TopicSpec{{Name: ""}}}}
	assert.ErrorIs(t, unnamed.Validate(), ErrInvalidRecord)
}

func TestRejection(t *testing.T) {
	rej := NewRejection(KindQuestion, 3, "OS", "Paging", ErrTopicNotFound)
	var err error = rej

	assert.True(t, errors.Is(err, ErrTopicNotFound))
	got, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, 3, got.Index)
	assert.Contains(t, err.Error(), "OS/Paging")

	_, ok = AsRejection(errors.New("boom"))
	assert.False(t, ok)
}

func TestUserIDFromContext(t *testing.T) {
	assert.Equal(t, DefaultUserID, UserIDFromContext(context.Background()))
	assert.Equal(t, DefaultUserID, UserIDFromContext(WithUserID(context.Background(), "  ")))
	assert.Equal(t, "alice", UserIDFromContext(WithUserID(context.Background(), "alice")))
}

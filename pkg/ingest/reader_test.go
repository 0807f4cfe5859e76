package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/studygraph/pkg/types"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"q.jsonl", FormatJSONL, false},
		{"q.NDJSON", FormatJSONL, false},
		{"q.json", FormatJSON, false},
		{"c.parquet", FormatParquet, false},
		{"curriculum.yml", FormatYAML, false},
		{"curriculum.yaml", FormatYAML, false},
		{"notes.txt", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadCurriculumYAML(t *testing.T) {
	path := writeFile(t, "curriculum.yaml", `
Operating Systems:
  description: Core OS concepts
  topics:
    - name: Process Management
      difficulty: 3
    - name: Memory Management
      description: Paging and segmentation
`)
	c, err := ReadCurriculum(path)
	require.NoError(t, err)
	require.Contains(t, c, "Operating Systems")
	spec := c["Operating Systems"]
	assert.Equal(t, "Core OS concepts", spec.Description)
	require.Len(t, spec.Topics, 2)
	assert.Equal(t, 3, spec.Topics[0].Difficulty)
	assert.Equal(t, "Paging and segmentation", spec.Topics[1].Description)
}

func TestReadCurriculumJSON(t *testing.T) {
	path := writeFile(t, "curriculum.json", `{"DBMS": {"topics": [{"name": "Normalization", "difficulty": 2}]}}`)
	c, err := ReadCurriculum(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"DBMS"}, c.SubjectNames())
	assert.Equal(t, "Normalization", c["DBMS"].Topics[0].Name)
}

func TestReadCurriculumRejectsRecordFormats(t *testing.T) {
	_, err := ReadCurriculum(writeFile(t, "c.jsonl", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadQuestionsJSONL(t *testing.T) {
	path := writeFile(t, "q.jsonl", `{"question_text": "What is a deadlock?", "subject": "OS", "topic": "Deadlocks", "year": 2021, "options": ["A", "B"]}

{"question_text": "Define paging", "subject": "OS", "topic": "Memory"}
`)
	records, err := ReadQuestions(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2021, records[0].Year)
	assert.Equal(t, []string{"A", "B"}, records[0].Options)
	assert.Equal(t, "Memory", records[1].Topic)
}

func TestReadQuestionsJSONLBadLine(t *testing.T) {
	path := writeFile(t, "q.jsonl", "{\"question_text\": \"ok\"}\nnot json\n")
	_, err := ReadQuestions(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":2:")
}

func TestReadChunksJSONArray(t *testing.T) {
	path := writeFile(t, "c.json", `[{"text": "A process is a program in execution.", "subject": "OS", "topic": "Processes", "page_number": 4}]`)
	records, err := ReadChunks(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 4, records[0].PageNumber)
}

func TestParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "chunks.parquet")
	in := []types.ChunkRecord{
		{Text: "Semaphores guard critical sections.", Subject: "OS", Topic: "Synchronization", ChunkIndex: 1, Embedding: []float32{0.5, 0.5}},
		{Text: "Mutexes are binary semaphores.", Subject: "OS", Topic: "Synchronization", ChunkIndex: 2},
	}
	require.NoError(t, WriteParquet(path, in))

	out, err := ReadChunks(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0].Text, out[0].Text)
	assert.Equal(t, in[0].Embedding, out[0].Embedding)
	assert.Equal(t, 2, out[1].ChunkIndex)
	assert.Empty(t, out[1].Embedding)
}

func TestReadRecordsMissingFile(t *testing.T) {
	_, err := ReadQuestions(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

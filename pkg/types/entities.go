package types

import "time"

// Subject is the root of a curriculum tree. Identified by name.
type Subject struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Topic is a child of exactly one Subject. Identified by (name, subject).
type Topic struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Difficulty  int    `json:"difficulty"`
}

// Question is a past exam question. Questions have no natural key; every
// ingestion creates a new node.
type Question struct {
	UUID       string    `json:"uuid"`
	Text       string    `json:"text"`
	Year       int       `json:"year"`
	PaperSet   string    `json:"paper_set"`
	Options    []string  `json:"options"`
	Answer     string    `json:"answer"`
	Difficulty int       `json:"difficulty"`
	Marks      int       `json:"marks"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunk is a passage of source text attached to a Topic.
type Chunk struct {
	UUID       string    `json:"uuid"`
	Text       string    `json:"text"`
	SourceFile string    `json:"source_file"`
	SourceType string    `json:"source_type"`
	PageNumber int       `json:"page_number"`
	ChunkIndex int       `json:"chunk_index"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Concept is a named idea explained within a Topic. Identified by
// (name, topic, subject).
type Concept struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Topic       string `json:"topic"`
	Subject     string `json:"subject"`
	Explanation string `json:"explanation"`
}

// Attempt is the accumulated state of one learner's attempts at one question.
type Attempt struct {
	UserID       string     `json:"user_id"`
	QuestionUUID string     `json:"question_uuid"`
	AttemptCount int64      `json:"attempt_count"`
	CorrectCount int64      `json:"correct_count"`
	FirstAttempt time.Time  `json:"first_attempt"`
	LastAttempt  time.Time  `json:"last_attempt"`
	LastCorrect  *time.Time `json:"last_correct,omitempty"`
}

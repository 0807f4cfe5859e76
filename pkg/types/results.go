package types

// TopicContext is the structural summary of a topic's neighbourhood. A
// zero TopicContext (Found == false) means nothing is known about the topic
// yet; it is not an error.
type TopicContext struct {
	Found         bool     `json:"found"`
	Subject       string   `json:"subject"`
	Topic         string   `json:"topic"`
	Description   string   `json:"description,omitempty"`
	Difficulty    int      `json:"difficulty,omitempty"`
	Concepts      []string `json:"concepts"`
	SampleChunks  []string `json:"sample_chunks"`
	QuestionCount int64    `json:"question_count"`
}

// EmptyTopicContext returns the context reported for an unknown topic.
func EmptyTopicContext(subject, topic string) *TopicContext {
	return &TopicContext{
		Subject:      subject,
		Topic:        topic,
		Concepts:     []string{},
		SampleChunks: []string{},
	}
}

// ScoredChunk is a chunk returned by similarity search with its cosine score.
type ScoredChunk struct {
	Chunk
	Subject string  `json:"subject,omitempty"`
	Topic   string  `json:"topic,omitempty"`
	Score   float64 `json:"score"`
}

// HybridResult carries both retrieval signals for one query, unmerged.
type HybridResult struct {
	Query        string         `json:"query"`
	TopicContext *TopicContext  `json:"topic_context"`
	Chunks       []*ScoredChunk `json:"chunks"`
}

// Statistics holds node counts per label.
type Statistics struct {
	Subjects  int64 `json:"subjects"`
	Topics    int64 `json:"topics"`
	Questions int64 `json:"questions"`
	Chunks    int64 `json:"chunks"`
	Concepts  int64 `json:"concepts"`
}

// TopicSummary describes a topic in a subject listing.
type TopicSummary struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Difficulty    int    `json:"difficulty"`
	QuestionCount int64  `json:"question_count"`
}

// UserStats aggregates a learner's attempts. Accuracy is a percentage
// rounded to one decimal place.
type UserStats struct {
	UserID    string  `json:"user_id"`
	Attempted int64   `json:"attempted"`
	Correct   int64   `json:"correct"`
	Accuracy  float64 `json:"accuracy"`
}

// TopicProgress is a learner's progress within one topic.
type TopicProgress struct {
	Topic          string  `json:"topic"`
	Difficulty     int     `json:"difficulty"`
	TotalQuestions int64   `json:"total_questions"`
	Attempts       int64   `json:"attempts"`
	Correct        int64   `json:"correct"`
	Accuracy       float64 `json:"accuracy"`
}

// WeakTopic is a topic where the learner's accuracy is below a threshold.
type WeakTopic struct {
	Topic      string  `json:"topic"`
	Subject    string  `json:"subject"`
	Difficulty int     `json:"difficulty"`
	Attempts   int64   `json:"attempts"`
	Correct    int64   `json:"correct"`
	Accuracy   float64 `json:"accuracy"`
}

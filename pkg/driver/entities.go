package driver

import "github.com/soundprediction/studygraph/pkg/types"

// Conversions from stored nodes to the typed entities of the data model.

func ToSubject(n *Node) types.Subject {
	return types.Subject{
		UUID:        n.UUID,
		Name:        n.String("name"),
		Description: n.String("description"),
	}
}

func ToTopic(n *Node) types.Topic {
	return types.Topic{
		UUID:        n.UUID,
		Name:        n.String("name"),
		Subject:     n.String("subject"),
		Description: n.String("description"),
		Difficulty:  n.Int("difficulty_level"),
	}
}

// ToQuestion omits the embedding unless withEmbedding is set.
func ToQuestion(n *Node, withEmbedding bool) types.Question {
	q := types.Question{
		UUID:       n.UUID,
		Text:       n.String("text"),
		Year:       n.Int("year"),
		PaperSet:   n.String("paper_set"),
		Options:    n.Strings("options"),
		Answer:     n.String("answer"),
		Difficulty: n.Int("difficulty"),
		Marks:      n.Int("marks"),
		CreatedAt:  n.Time("created_at"),
	}
	if q.Options == nil {
		q.Options = []string{}
	}
	if withEmbedding {
		q.Embedding = n.Vector(types.EmbeddingProperty)
	}
	return q
}

// ToChunk omits the embedding unless withEmbedding is set.
func ToChunk(n *Node, withEmbedding bool) types.Chunk {
	c := types.Chunk{
		UUID:       n.UUID,
		Text:       n.String("text"),
		SourceFile: n.String("source_file"),
		SourceType: n.String("source_type"),
		PageNumber: n.Int("page_number"),
		ChunkIndex: n.Int("chunk_index"),
		CreatedAt:  n.Time("created_at"),
	}
	if withEmbedding {
		c.Embedding = n.Vector(types.EmbeddingProperty)
	}
	return c
}

func ToConcept(n *Node) types.Concept {
	return types.Concept{
		UUID:        n.UUID,
		Name:        n.String("name"),
		Topic:       n.String("topic"),
		Subject:     n.String("subject"),
		Explanation: n.String("explanation"),
	}
}

// ToAttempt reads an ATTEMPTED edge.
func ToAttempt(userID string, e *Edge) types.Attempt {
	a := types.Attempt{
		UserID:       userID,
		QuestionUUID: e.To,
		AttemptCount: e.Int64("attempt_count"),
		CorrectCount: e.Int64("correct_count"),
		FirstAttempt: e.Time("first_attempt"),
		LastAttempt:  e.Time("last_attempt"),
	}
	if t := e.Time("last_correct"); !t.IsZero() {
		a.LastCorrect = &t
	}
	return a
}

// TopicRef addresses a topic by its composite key.
func TopicRef(subject, topic string) NodeRef {
	return Ref(types.LabelTopic, Props{"name": topic, "subject": subject})
}

// SubjectRef addresses a subject by name.
func SubjectRef(subject string) NodeRef {
	return Ref(types.LabelSubject, Props{"name": subject})
}

package types

// Node labels.
const (
	LabelSubject  = "Subject"
	LabelTopic    = "Topic"
	LabelQuestion = "Question"
	LabelChunk    = "Chunk"
	LabelConcept  = "Concept"
	LabelUser     = "User"
)

// Relationship types.
const (
	EdgeHasTopic    = "HAS_TOPIC"
	EdgeHasQuestion = "HAS_QUESTION"
	EdgeExplainedBy = "EXPLAINED_BY"
	EdgeHasConcept  = "HAS_CONCEPT"
	EdgeAttempted   = "ATTEMPTED"
)

// Vector index over Chunk.embedding.
const (
	ChunkVectorIndex    = "chunk_embeddings"
	EmbeddingProperty   = "embedding"
	DefaultEmbeddingDim = 384
)

// Labels lists every node label of the schema.
var Labels = []string{LabelSubject, LabelTopic, LabelQuestion, LabelChunk, LabelConcept, LabelUser}

// Package types defines the data model of the study knowledge graph.
//
// This package contains the fundamental types used throughout studygraph:
//   - Entities: Subject, Topic, Question, Chunk, Concept and the learner's Attempt
//   - Records: QuestionRecord, ChunkRecord and AttemptRecord as produced by
//     upstream document processing, plus the Curriculum tree
//   - Results: TopicContext, ScoredChunk, HybridResult and the progress summaries
//
// # Graph Schema
//
//	(Subject)-[:HAS_TOPIC]->(Topic)
//	(Topic)-[:HAS_QUESTION]->(Question)
//	(Topic)-[:EXPLAINED_BY]->(Chunk)
//	(Topic)-[:HAS_CONCEPT]->(Concept)
//	(User)-[:ATTEMPTED]->(Question)
//
// # Validation
//
// Records are validated at the ingestion boundary with Validate(). A record
// that fails validation is reported as a *Rejection rather than written:
//
//	rec := types.QuestionRecord{QuestionText: "What is paging?", Subject: "OS"}
//	if err := rec.Validate(); err != nil {
//	    // err wraps ErrInvalidRecord and names the offending field
//	}
package types

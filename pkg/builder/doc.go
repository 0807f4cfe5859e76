// Package builder turns ingestion records into graph writes.
//
// A Builder loads the curriculum tree (Subject and Topic nodes), adds past
// questions and text chunks under existing topics with their embeddings,
// and upserts concepts. Content whose topic is not loaded is rejected with
// a *types.Rejection wrapping types.ErrTopicNotFound; the existence check
// and the write are a single conditional statement, so a concurrently
// loading curriculum can never leave orphaned content.
//
// Batch operations have partial-failure semantics: each record succeeds or
// is rejected on its own, and only backend errors abort the batch.
package builder

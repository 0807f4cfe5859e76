// Package studygraph provides a knowledge graph and hybrid retrieval engine
// for exam preparation.
//
// A curriculum of subjects and topics is loaded into a graph database.
// Past exam questions and textbook chunks are attached to their topics,
// each with a sentence embedding. Retrieval combines a structural view of
// a topic (concepts, sample passages, question count) with cosine
// similarity search over chunk embeddings, optionally scoped to a subject
// or topic. Learner attempts are tracked per user.
//
// # Basic Usage
//
// Create a store and an embedding client, then the studygraph client:
//
//	store, err := driver.NewNeo4jDriver("neo4j://localhost:7687", "neo4j", "password", "neo4j")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	emb, err := embedder.New(embedder.Config{Provider: embedder.ProviderEmbedEverything})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := studygraph.NewClient(store, emb, nil, slog.Default())
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Loading Content
//
//	_, err = client.LoadCurriculum(ctx, types.Curriculum{
//		"Operating Systems": {
//			Description: "Core OS concepts",
//			Topics:      []types.TopicSpec{{Name: "Process Management", Difficulty: 3}},
//		},
//	})
//
//	_, err = client.AddQuestion(ctx, types.QuestionRecord{
//		QuestionText: "What is a race condition?",
//		Subject:      "Operating Systems",
//		Topic:        "Process Management",
//		Year:         2022,
//	})
//
// Records naming a topic that does not exist are rejected with a
// *types.Rejection wrapping types.ErrTopicNotFound. Batch operations
// collect rejections and continue.
//
// # Retrieval
//
//	result, err := client.HybridSearch(ctx, "how do semaphores work", "Operating Systems", "", 5)
//
// HybridSearch returns the topic context and the similar chunks side by
// side; it does not merge or re-rank them.
//
// # Progress
//
// The learner is taken from the context:
//
//	ctx = types.WithUserID(ctx, "alice")
//	_, err = client.RecordAttempt(ctx, types.AttemptRecord{QuestionID: q.UUID, Correct: true})
//	weak, err := client.WeakTopics(ctx, "", 60)
package studygraph

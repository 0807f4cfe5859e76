// Package driver provides graph store implementations for studygraph.
//
// This package defines the GraphStore interface and provides implementations
// for Neo4j, Ladybug and an in-process memory graph.
//
// # Supported Backends
//
//   - Neo4j: server graph database with a native vector index
//   - Ladybug: embedded graph database (requires CGO)
//   - Memory: in-process graph used by tests and local experiments
//
// # Usage
//
//	store, err := driver.NewNeo4jDriver(uri, username, password, "neo4j")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	topic, err := store.UpsertNode(ctx, types.LabelTopic,
//	    driver.Props{"name": "Sorting", "subject": "Algorithms"},
//	    driver.Props{"difficulty_level": 2})
//
// # Patterns
//
// Reads are expressed as a Pattern, a chain of labelled node patterns joined
// by typed edges, which each backend compiles to its own query language:
//
//	p := driver.Match("t", types.LabelTopic, driver.Props{"name": "Sorting"}).
//	    Out(types.EdgeHasQuestion, "q", types.LabelQuestion, nil).
//	    OrderBy("q", "year", true).
//	    Limit(10)
//	records, err := store.Query(ctx, p)
//
// # Failure Semantics
//
// Backend errors are returned to the caller wrapped with context. No
// operation is retried by this package.
//
// # Type Helpers
//
// The package provides safe type conversion helpers in type_helpers.go for
// converting database values to Go types without panicking on type
// assertion failures.
package driver

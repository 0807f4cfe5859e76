// Package utils provides small helpers shared by the studygraph packages:
// vector math for similarity ranking, panic recovery for worker goroutines,
// batching, and environment-driven limits.
package utils

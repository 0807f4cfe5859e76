package utils

import (
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultSemaphoreLimit = 8
	DefaultBatchSize      = 50
)

// GetSemaphoreLimit returns the worker limit from SEMAPHORE_LIMIT or the default.
func GetSemaphoreLimit() int {
	return envInt("SEMAPHORE_LIMIT", DefaultSemaphoreLimit)
}

func envInt(key string, def int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// GenerateUUID generates a new UUID7 string
func GenerateUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Batch splits items into consecutive slices of at most batchSize.
func Batch[T any](items []T, batchSize int) [][]T {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var batches [][]T
	for i := 0; i < len(items); i += batchSize {
		end := min(i+batchSize, len(items))
		batches = append(batches, items[i:end])
	}
	return batches
}

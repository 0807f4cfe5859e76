// Package checkpoint persists the progress of bulk loads so an interrupted
// load can resume after the last record it wrote.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soundprediction/studygraph/pkg/types"
)

// ErrInvalidLoadID is returned when a load ID contains invalid characters
var ErrInvalidLoadID = errors.New("invalid load ID: contains path traversal or invalid characters")

// ErrRetryExhausted is returned when an unfinished checkpoint has failed
// too often or is too old to resume.
var ErrRetryExhausted = errors.New("checkpoint cannot be resumed")

// Retry policy applied by LoadOrCreate unless changed with WithRetryPolicy.
const (
	DefaultMaxAttempts = 5
	DefaultMaxAge      = 7 * 24 * time.Hour
)

// LoadStep is the state of a bulk load
type LoadStep string

const (
	StepStarted    LoadStep = "started"
	StepInProgress LoadStep = "in_progress"
	StepCompleted  LoadStep = "completed"
)

// LoadCheckpoint is the state of a partially processed input file
type LoadCheckpoint struct {
	// Load identification
	LoadID     string   `json:"load_id"`
	Kind       string   `json:"kind"`
	SourcePath string   `json:"source_path"`
	Step       LoadStep `json:"step"`

	// Timestamp tracking
	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	AttemptCount  int       `json:"attempt_count"`
	LastError     string    `json:"last_error,omitempty"`

	// Offset is the number of input records already processed.
	Offset    int                `json:"offset"`
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Rejected  []*types.Rejection `json:"rejected,omitempty"`
}

// CheckpointManager manages load checkpoints
type CheckpointManager struct {
	checkpointDir string
	maxAttempts   int
	maxAge        time.Duration
}

// NewCheckpointManager creates a new checkpoint manager
// If checkpointDir is empty, uses os.TempDir()/studygraph-checkpoints
func NewCheckpointManager(checkpointDir string) (*CheckpointManager, error) {
	if checkpointDir == "" {
		checkpointDir = filepath.Join(os.TempDir(), "studygraph-checkpoints")
	}

	if err := os.MkdirAll(checkpointDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	return &CheckpointManager{
		checkpointDir: checkpointDir,
		maxAttempts:   DefaultMaxAttempts,
		maxAge:        DefaultMaxAge,
	}, nil
}

// WithRetryPolicy sets how many failed attempts and how much age an
// unfinished checkpoint may have before LoadOrCreate refuses to resume it.
// Non-positive values keep the current setting.
func (m *CheckpointManager) WithRetryPolicy(maxAttempts int, maxAge time.Duration) *CheckpointManager {
	if maxAttempts > 0 {
		m.maxAttempts = maxAttempts
	}
	if maxAge > 0 {
		m.maxAge = maxAge
	}
	return m
}

// validateLoadID rejects IDs containing path separators, path traversal
// sequences, or null bytes.
func validateLoadID(loadID string) error {
	if loadID == "" {
		return ErrInvalidLoadID
	}
	if strings.Contains(loadID, "..") {
		return ErrInvalidLoadID
	}
	if strings.ContainsAny(loadID, `/\`) {
		return ErrInvalidLoadID
	}
	if strings.ContainsRune(loadID, '\x00') {
		return ErrInvalidLoadID
	}
	return nil
}

// isPathWithinDirectory checks that the resolved path is within the expected directory.
func isPathWithinDirectory(path, directory string) bool {
	cleanPath := filepath.Clean(path)
	cleanDir := filepath.Clean(directory)

	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}

	return strings.HasPrefix(cleanPath, cleanDir) || cleanPath == filepath.Clean(directory)
}

// GetCheckpointPath returns the file path for a load's checkpoint.
func (m *CheckpointManager) GetCheckpointPath(loadID string) (string, error) {
	if err := validateLoadID(loadID); err != nil {
		return "", err
	}

	fullPath := filepath.Join(m.checkpointDir, fmt.Sprintf("checkpoint_%s.json", loadID))
	if !isPathWithinDirectory(fullPath, m.checkpointDir) {
		return "", ErrInvalidLoadID
	}

	return fullPath, nil
}

// Save persists the checkpoint to disk
func (m *CheckpointManager) Save(ctx context.Context, checkpoint *LoadCheckpoint) error {
	checkpoint.LastUpdatedAt = time.Now()

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	checkpointPath, err := m.GetCheckpointPath(checkpoint.LoadID)
	if err != nil {
		return fmt.Errorf("invalid load ID: %w", err)
	}

	// Write to a temporary file first, then rename for atomic write
	tmpPath := checkpointPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}

	if err := os.Rename(tmpPath, checkpointPath); err != nil {
		return fmt.Errorf("failed to rename checkpoint file: %w", err)
	}

	return nil
}

// Load retrieves a checkpoint from disk. It returns nil, nil when none exists.
func (m *CheckpointManager) Load(ctx context.Context, loadID string) (*LoadCheckpoint, error) {
	checkpointPath, err := m.GetCheckpointPath(loadID)
	if err != nil {
		return nil, fmt.Errorf("invalid load ID: %w", err)
	}

	data, err := os.ReadFile(checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint LoadCheckpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}

	return &checkpoint, nil
}

// Delete removes a checkpoint from disk
func (m *CheckpointManager) Delete(ctx context.Context, loadID string) error {
	checkpointPath, err := m.GetCheckpointPath(loadID)
	if err != nil {
		return fmt.Errorf("invalid load ID: %w", err)
	}

	if err := os.Remove(checkpointPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}

	return nil
}

// List returns all checkpoints in the checkpoint directory
func (m *CheckpointManager) List(ctx context.Context) ([]*LoadCheckpoint, error) {
	entries, err := os.ReadDir(m.checkpointDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var checkpoints []*LoadCheckpoint
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(m.checkpointDir, entry.Name()))
		if err != nil {
			continue
		}

		var checkpoint LoadCheckpoint
		if err := json.Unmarshal(data, &checkpoint); err != nil {
			continue
		}

		checkpoints = append(checkpoints, &checkpoint)
	}

	return checkpoints, nil
}

// GetCheckpointDir returns the checkpoint directory path
func (m *CheckpointManager) GetCheckpointDir() string {
	return m.checkpointDir
}

// CleanOld removes checkpoints older than the specified duration
func (m *CheckpointManager) CleanOld(ctx context.Context, maxAge time.Duration) (int, error) {
	checkpoints, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, checkpoint := range checkpoints {
		if checkpoint.LastUpdatedAt.Before(cutoff) {
			if err := m.Delete(ctx, checkpoint.LoadID); err != nil {
				continue
			}
			removed++
		}
	}

	return removed, nil
}

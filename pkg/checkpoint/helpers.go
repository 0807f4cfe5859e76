package checkpoint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/soundprediction/studygraph/pkg/types"
)

// LoadID derives a stable checkpoint ID from the record kind and the
// absolute path of the input file.
func LoadID(kind, sourcePath string) string {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		abs = sourcePath
	}
	sum := sha256.Sum256([]byte(kind + "\x00" + abs))
	return kind + "_" + hex.EncodeToString(sum[:8])
}

// NewCheckpoint creates a checkpoint for a load at the started step
func NewCheckpoint(kind, sourcePath string, total int) *LoadCheckpoint {
	now := time.Now()
	return &LoadCheckpoint{
		LoadID:        LoadID(kind, sourcePath),
		Kind:          kind,
		SourcePath:    sourcePath,
		Step:          StepStarted,
		CreatedAt:     now,
		LastUpdatedAt: now,
		Total:         total,
		Rejected:      []*types.Rejection{},
	}
}

// Advance folds the result of one batch into the checkpoint. Rejection
// indexes are relative to the batch and are shifted to file positions.
func (c *LoadCheckpoint) Advance(processed int, result *types.BatchResult) {
	if result != nil {
		for _, rej := range result.Rejected {
			shifted := *rej
			shifted.Index += c.Offset
			c.Rejected = append(c.Rejected, &shifted)
		}
		c.Succeeded += result.Succeeded
	}
	c.Offset += processed
	c.Step = StepInProgress
	if c.Total > 0 && c.Offset >= c.Total {
		c.Step = StepCompleted
	}
}

// Remaining returns the records of a file that have not been processed yet.
func Remaining[T any](c *LoadCheckpoint, records []T) []T {
	if c == nil || c.Offset <= 0 {
		return records
	}
	if c.Offset >= len(records) {
		return nil
	}
	return records[c.Offset:]
}

// CanRetry determines if a checkpoint should be retried based on attempt count and age
func (c *LoadCheckpoint) CanRetry(maxAttempts int, maxAge time.Duration) bool {
	if c.Step == StepCompleted || c.AttemptCount >= maxAttempts {
		return false
	}
	return time.Since(c.CreatedAt) <= maxAge
}

// GetProgress returns a human-readable progress description
func (c *LoadCheckpoint) GetProgress() string {
	if c.Total <= 0 {
		return fmt.Sprintf("%d records (%s)", c.Offset, c.Step)
	}
	percentage := float64(c.Offset) / float64(c.Total) * 100
	return fmt.Sprintf("%.0f%% (%d/%d, %s)", percentage, c.Offset, c.Total, c.Step)
}

// Summary provides a human-readable summary of the checkpoint
func (c *LoadCheckpoint) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Load: %s\n", c.LoadID)
	fmt.Fprintf(&sb, "Source: %s (%s)\n", c.SourcePath, c.Kind)
	fmt.Fprintf(&sb, "Progress: %s\n", c.GetProgress())
	fmt.Fprintf(&sb, "Succeeded: %d\n", c.Succeeded)
	fmt.Fprintf(&sb, "Rejected: %d\n", len(c.Rejected))
	fmt.Fprintf(&sb, "Last Updated: %s\n", c.LastUpdatedAt.Format(time.RFC3339))
	if c.LastError != "" {
		fmt.Fprintf(&sb, "Attempts: %d\n", c.AttemptCount)
		fmt.Fprintf(&sb, "Last Error: %s\n", c.LastError)
	}
	return sb.String()
}

// SaveWithError records an error and saves in one operation
func (m *CheckpointManager) SaveWithError(ctx context.Context, checkpoint *LoadCheckpoint, err error) error {
	checkpoint.AttemptCount++
	checkpoint.LastError = err.Error()
	return m.Save(ctx, checkpoint)
}

// LoadOrCreate loads the checkpoint for a file or creates a new one. The
// boolean reports whether an existing checkpoint is being resumed. An
// unfinished checkpoint outside the retry policy yields ErrRetryExhausted.
func (m *CheckpointManager) LoadOrCreate(ctx context.Context, kind, sourcePath string, total int) (*LoadCheckpoint, bool, error) {
	existing, err := m.Load(ctx, LoadID(kind, sourcePath))
	if err != nil {
		return nil, false, err
	}
	switch {
	case existing == nil:
	case existing.Step == StepCompleted:
		// A finished load left behind starts over.
		if err := m.Delete(ctx, existing.LoadID); err != nil {
			return nil, false, err
		}
	case !existing.CanRetry(m.maxAttempts, m.maxAge):
		return nil, false, fmt.Errorf("%w: %s after %d attempts (last error: %s); remove it with 'load clean'",
			ErrRetryExhausted, existing.LoadID, existing.AttemptCount, existing.LastError)
	default:
		existing.Total = total
		return existing, true, nil
	}

	checkpoint := NewCheckpoint(kind, sourcePath, total)
	if err := m.Save(ctx, checkpoint); err != nil {
		return nil, false, err
	}
	return checkpoint, false, nil
}

// FindStalled returns unfinished checkpoints that haven't been updated recently
func (m *CheckpointManager) FindStalled(ctx context.Context, stalledDuration time.Duration) ([]*LoadCheckpoint, error) {
	checkpoints, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-stalledDuration)
	var stalled []*LoadCheckpoint
	for _, checkpoint := range checkpoints {
		if checkpoint.Step != StepCompleted && checkpoint.LastUpdatedAt.Before(cutoff) {
			stalled = append(stalled, checkpoint)
		}
	}
	return stalled, nil
}

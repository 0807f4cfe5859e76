package studygraph

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/studygraph/pkg/checkpoint"
	"github.com/soundprediction/studygraph/pkg/types"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func memoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("EMBEDDING_PROVIDER", "hash")
	t.Setenv("EMBEDDING_DIMENSION", "16")
	t.Setenv("TELEMETRY_PARQUET_PATH", t.TempDir())
}

func TestClearRequiresConfirmation(t *testing.T) {
	_, err := executeCommand(t, "clear", "--db-driver", "memory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestLoadCurriculum(t *testing.T) {
	memoryEnv(t)
	path := filepath.Join(t.TempDir(), "curriculum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
OS:
  description: Operating systems
  topics:
    - name: Scheduling
      description: CPU scheduling
      difficulty: 2
    - name: Memory
      difficulty: 3
`), 0o644))

	out, err := executeCommand(t, "load", "curriculum", path, "--db-driver", "memory", "--no-checkpoint")
	require.NoError(t, err)

	var result struct {
		Subjects []map[string]any `json:"subjects"`
		Topics   []map[string]any `json:"topics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.Subjects, 1)
	assert.Len(t, result.Topics, 2)
}

func TestLoadStatusAndClean(t *testing.T) {
	memoryEnv(t)
	dir := t.TempDir()
	manager, err := checkpoint.NewCheckpointManager(dir)
	require.NoError(t, err)

	cp := checkpoint.NewCheckpoint(types.KindQuestion, "exam.jsonl", 10)
	cp.Advance(4, &types.BatchResult{Succeeded: 4})
	require.NoError(t, manager.SaveWithError(context.Background(), cp, assert.AnError))

	out, err := executeCommand(t, "load", "status", "--checkpoint-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Checkpoints in "+dir)
	assert.Contains(t, out, "Load: "+cp.LoadID)
	assert.Contains(t, out, "Last Error: "+assert.AnError.Error())

	out, err = executeCommand(t, "load", "clean", "--checkpoint-dir", dir, "--older-than", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 checkpoint(s)")

	out, err = executeCommand(t, "load", "clean", "--checkpoint-dir", dir, "--older-than", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 checkpoint(s)")

	out, err = executeCommand(t, "load", "status", "--checkpoint-dir", dir, "--stalled", "0s")
	require.NoError(t, err)
	assert.Contains(t, out, "No unfinished loads")
}

func TestSearchHybridNeedsScope(t *testing.T) {
	_, err := executeCommand(t, "search", "paging", "--hybrid", "--db-driver", "memory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--subject")
}

func TestValidateServerConfig(t *testing.T) {
	memoryEnv(t)
	cfg, err := loadConfig(serverCmd)
	require.NoError(t, err)

	cfg.Server.Port = 0
	assert.Error(t, validateServerConfig(cfg))

	cfg.Server.Port = 8080
	cfg.Database.Driver = "memory"
	cfg.Database.URI = ""
	assert.NoError(t, validateServerConfig(cfg))
}

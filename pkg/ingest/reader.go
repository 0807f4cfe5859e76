// Package ingest reads curriculum, question and chunk files produced by
// upstream document processing and loads them through the builder.
//
// Curriculum files are YAML or JSON. Record files are JSON Lines, a JSON
// array, or Parquet, chosen by file extension.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/studygraph/pkg/types"
)

// ErrUnsupportedFormat is returned for files whose extension is not recognised.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format is the encoding of a record file.
type Format string

const (
	FormatJSONL   Format = "jsonl"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
	FormatYAML    Format = "yaml"
)

// DetectFormat returns the format implied by the extension of path.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".json":
		return FormatJSON, nil
	case ".parquet":
		return FormatParquet, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// ReadCurriculum parses a curriculum file mapping subject name to its
// description and topic list. JSON is read through the YAML decoder.
func ReadCurriculum(path string) (types.Curriculum, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if format != FormatYAML && format != FormatJSON {
		return nil, fmt.Errorf("%w: curriculum must be YAML or JSON, got %s", ErrUnsupportedFormat, format)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curriculum: %w", err)
	}

	var curriculum types.Curriculum
	if err := yaml.Unmarshal(data, &curriculum); err != nil {
		return nil, fmt.Errorf("failed to parse curriculum %s: %w", path, err)
	}
	if curriculum == nil {
		curriculum = types.Curriculum{}
	}
	return curriculum, nil
}

// ReadQuestions reads question records from path.
func ReadQuestions(path string) ([]types.QuestionRecord, error) {
	return readRecords[types.QuestionRecord](path)
}

// ReadChunks reads chunk records from path.
func ReadChunks(path string) ([]types.ChunkRecord, error) {
	return readRecords[types.ChunkRecord](path)
}

func readRecords[T any](path string) ([]T, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatParquet:
		rows, err := parquet.ReadFile[T](path)
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet %s: %w", path, err)
		}
		return rows, nil
	case FormatJSON:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		var rows []T
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return rows, nil
	case FormatJSONL:
		return readJSONL[T](path)
	default:
		return nil, fmt.Errorf("%w: records cannot be read from %s", ErrUnsupportedFormat, format)
	}
}

// readJSONL decodes one record per non-blank line.
func readJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var rows []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		var row T
		if err := json.Unmarshal(b, &row); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

// WriteParquet writes records to a Parquet file.
func WriteParquet[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return parquet.WriteFile(path, records)
}

package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soundprediction/studygraph/pkg/types"
)

// LoadCurriculumRequest carries a curriculum tree
type LoadCurriculumRequest struct {
	Curriculum types.Curriculum `json:"curriculum" binding:"required"`
}

// Validate performs validation on LoadCurriculumRequest
func (r *LoadCurriculumRequest) Validate() error {
	if len(r.Curriculum) == 0 {
		return errors.New("curriculum cannot be empty")
	}
	return nil
}

// AddQuestionsRequest carries question records to add
type AddQuestionsRequest struct {
	Questions []types.QuestionRecord `json:"questions" binding:"required"`
}

// Validate performs validation on AddQuestionsRequest. Individual records
// are validated by the builder and rejected one by one.
func (r *AddQuestionsRequest) Validate() error {
	return validateCount(len(r.Questions))
}

// AddChunksRequest carries chunk records to add
type AddChunksRequest struct {
	Chunks    []types.ChunkRecord `json:"chunks" binding:"required"`
	BatchSize int                 `json:"batch_size,omitempty"`
}

// Validate performs validation on AddChunksRequest
func (r *AddChunksRequest) Validate() error {
	if r.BatchSize < 0 {
		return errors.New("batch_size cannot be negative")
	}
	return validateCount(len(r.Chunks))
}

func validateCount(n int) error {
	if n == 0 {
		return ErrEmptyRecords
	}
	if n > MaxRecordsCount {
		return ErrTooManyRecords
	}
	return nil
}

// AddConceptRequest represents a request to add a concept
type AddConceptRequest struct {
	Name        string `json:"name" binding:"required"`
	Explanation string `json:"explanation,omitempty"`
	Subject     string `json:"subject" binding:"required"`
	Topic       string `json:"topic" binding:"required"`
}

// Validate performs validation on AddConceptRequest
func (r *AddConceptRequest) Validate() error {
	for field, v := range map[string]string{"name": r.Name, "subject": r.Subject, "topic": r.Topic} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		if len(v) > MaxNameLength {
			return fmt.Errorf("%s exceeds maximum length (%d)", field, MaxNameLength)
		}
	}
	return nil
}

// IngestResponse represents a response from batch ingest operations
type IngestResponse struct {
	Success   bool               `json:"success"`
	Succeeded int                `json:"succeeded"`
	Rejected  []*types.Rejection `json:"rejected"`
	Created   []string           `json:"created,omitempty"`
}

// NewIngestResponse converts a batch result
func NewIngestResponse(result *types.BatchResult) IngestResponse {
	resp := IngestResponse{Success: true, Rejected: []*types.Rejection{}}
	if result == nil {
		return resp
	}
	resp.Succeeded = result.Succeeded
	resp.Created = result.Created
	if result.Rejected != nil {
		resp.Rejected = result.Rejected
	}
	return resp
}

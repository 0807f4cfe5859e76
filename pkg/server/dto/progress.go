package dto

import (
	"errors"

	"github.com/soundprediction/studygraph/pkg/types"
)

var errInvalidOrder = errors.New("order must be year, difficulty_asc or difficulty_desc")

// AttemptRequest records one attempt at a question
type AttemptRequest struct {
	types.AttemptRecord
}

// Validate performs validation on AttemptRequest
func (r *AttemptRequest) Validate() error {
	return r.AttemptRecord.Validate()
}

// WeakTopicsQuery holds the query string of a weak-topic listing
type WeakTopicsQuery struct {
	Subject   string  `form:"subject"`
	Threshold float64 `form:"threshold"`
}

// Validate performs validation on WeakTopicsQuery
func (q *WeakTopicsQuery) Validate() error {
	if q.Threshold < 0 || q.Threshold > 100 {
		return errors.New("threshold must be between 0 and 100")
	}
	return nil
}

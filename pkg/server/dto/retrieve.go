package dto

import (
	"strings"

	"github.com/soundprediction/studygraph/pkg/types"
)

// SearchRequest represents a similarity or hybrid search
type SearchRequest struct {
	Query   string `json:"query" binding:"required"`
	Subject string `json:"subject,omitempty"`
	Topic   string `json:"topic,omitempty"`
	K       int    `json:"k,omitempty"`
}

// Validate performs validation on SearchRequest. A zero K is left for the
// handler to default.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	if len(r.Query) > MaxQueryLength {
		return ErrQueryTooLong
	}
	if r.K < 0 || r.K > MaxK {
		return ErrInvalidK
	}
	return nil
}

// SearchResults wraps vector search hits
type SearchResults struct {
	Chunks []*types.ScoredChunk `json:"chunks"`
	Total  int                  `json:"total"`
}

// QuestionsQuery holds the query string of a question listing
type QuestionsQuery struct {
	Year       int    `form:"year"`
	Difficulty *int   `form:"difficulty"`
	Limit      int    `form:"limit"`
	Order      string `form:"order"` // year (default), difficulty_asc, difficulty_desc
}

// Validate performs validation on QuestionsQuery
func (q *QuestionsQuery) Validate() error {
	switch q.Order {
	case "", "year", "difficulty_asc", "difficulty_desc":
	default:
		return errInvalidOrder
	}
	if q.Limit < 0 {
		return types.ErrInvalidLimit
	}
	return nil
}

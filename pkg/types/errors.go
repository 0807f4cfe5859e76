package types

import (
	"errors"
	"fmt"
)

// Precondition errors. These describe a single record and never indicate
// that the backend is unhealthy.
var (
	ErrInvalidRecord    = errors.New("invalid record")
	ErrTopicNotFound    = errors.New("topic not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidLimit     = errors.New("limit must be positive")
)

// Record kinds reported in a Rejection.
const (
	KindQuestion = "question"
	KindChunk    = "chunk"
	KindConcept  = "concept"
	KindTopic    = "topic"
)

// Rejection reports a record that was not written because a precondition
// failed. It is returned as an error by single-record operations and
// collected by batch operations.
type Rejection struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Subject string `json:"subject,omitempty"`
	Topic   string `json:"topic,omitempty"`
	Reason  string `json:"reason"`
	Cause   error  `json:"-"`
}

// NewRejection builds a Rejection for the record at index.
func NewRejection(kind string, index int, subject, topic string, cause error) *Rejection {
	return &Rejection{
		Index:   index,
		Kind:    kind,
		Subject: subject,
		Topic:   topic,
		Reason:  cause.Error(),
		Cause:   cause,
	}
}

func (r *Rejection) Error() string {
	if r.Topic != "" {
		return fmt.Sprintf("%s rejected (%s/%s): %s", r.Kind, r.Subject, r.Topic, r.Reason)
	}
	return fmt.Sprintf("%s rejected: %s", r.Kind, r.Reason)
}

func (r *Rejection) Unwrap() error {
	return r.Cause
}

// AsRejection reports whether err is (or wraps) a *Rejection.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// BatchResult summarises a batch ingestion call. Succeeded+len(Rejected)
// equals the number of records processed.
type BatchResult struct {
	Succeeded int          `json:"succeeded"`
	Rejected  []*Rejection `json:"rejected"`
	Created   []string     `json:"created,omitempty"`
}

// Processed returns the number of records that were attempted.
func (b *BatchResult) Processed() int {
	return b.Succeeded + len(b.Rejected)
}

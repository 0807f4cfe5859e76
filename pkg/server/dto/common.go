package dto

import "errors"

// Validation errors
var (
	ErrEmptyQuery     = errors.New("query cannot be empty")
	ErrQueryTooLong   = errors.New("query exceeds maximum length (8192)")
	ErrEmptyRecords   = errors.New("records cannot be empty")
	ErrTooManyRecords = errors.New("records count exceeds maximum (5000)")
	ErrInvalidK       = errors.New("k must be between 1 and 100")
)

// MaxFieldLengths defines maximum lengths for fields to prevent abuse
const (
	MaxQueryLength  = 8192
	MaxRecordsCount = 5000
	MaxK            = 100
	MaxNameLength   = 1024
)

// Result represents a generic API result
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/studygraph/pkg/server/dto"
	"github.com/soundprediction/studygraph/pkg/types"
)

// writeError writes an error response as JSON
func writeError(c *gin.Context, status int, errCode, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Error:   errCode,
		Message: message,
		Code:    status,
	})
}

// writeDomainError maps an error returned by the client to a response.
// Rejections carry the record context; anything unrecognised is a backend
// failure.
func writeDomainError(c *gin.Context, err error) {
	if rej, ok := types.AsRejection(err); ok {
		status := http.StatusUnprocessableEntity
		if errors.Is(rej, types.ErrTopicNotFound) {
			status = http.StatusNotFound
		}
		c.AbortWithStatusJSON(status, gin.H{
			"error":     "rejected",
			"code":      status,
			"rejection": rej,
		})
		return
	}

	switch {
	case errors.Is(err, types.ErrInvalidRecord), errors.Is(err, types.ErrInvalidLimit):
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, types.ErrQuestionNotFound), errors.Is(err, types.ErrTopicNotFound):
		writeError(c, http.StatusNotFound, "not_found", err.Error())
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// bindJSON decodes and validates a request body.
func bindJSON(c *gin.Context, req interface{ Validate() error }) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

// bindQuery decodes and validates a query string.
func bindQuery(c *gin.Context, req interface{ Validate() error }) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	if err := req.Validate(); err != nil {
		writeError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

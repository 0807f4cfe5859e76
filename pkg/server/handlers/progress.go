package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/studygraph"
	"github.com/soundprediction/studygraph/pkg/server/dto"
)

// ProgressHandler handles learner progress requests. The learner is taken
// from the X-User-ID header by the context middleware.
type ProgressHandler struct {
	client studygraph.ProgressTracker
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(client studygraph.ProgressTracker) *ProgressHandler {
	return &ProgressHandler{client: client}
}

// RecordAttempt handles POST /api/v1/progress/attempts
func (h *ProgressHandler) RecordAttempt(c *gin.Context) {
	var req dto.AttemptRequest
	if !bindJSON(c, &req) {
		return
	}

	attempt, err := h.client.RecordAttempt(c.Request.Context(), req.AttemptRecord)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// UserStats handles GET /api/v1/progress/stats
func (h *ProgressHandler) UserStats(c *gin.Context) {
	stats, err := h.client.UserStats(c.Request.Context(), c.Query("subject"), c.Query("topic"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TopicProgress handles GET /api/v1/progress/subjects/:subject
func (h *ProgressHandler) TopicProgress(c *gin.Context) {
	progress, err := h.client.TopicProgress(c.Request.Context(), c.Param("subject"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

// WeakTopics handles GET /api/v1/progress/weak
func (h *ProgressHandler) WeakTopics(c *gin.Context) {
	var q dto.WeakTopicsQuery
	if !bindQuery(c, &q) {
		return
	}

	weak, err := h.client.WeakTopics(c.Request.Context(), q.Subject, q.Threshold)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, weak)
}

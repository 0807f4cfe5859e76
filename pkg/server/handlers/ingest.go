package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/studygraph"
	"github.com/soundprediction/studygraph/pkg/server/dto"
	"github.com/soundprediction/studygraph/pkg/utils"
)

// IngestHandler handles data ingestion requests
type IngestHandler struct {
	client interface {
		studygraph.Ingestor
		studygraph.GraphAdmin
	}
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(client studygraph.StudyGraph) *IngestHandler {
	return &IngestHandler{client: client}
}

// LoadCurriculum handles POST /api/v1/ingest/curriculum
func (h *IngestHandler) LoadCurriculum(c *gin.Context) {
	var req dto.LoadCurriculumRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.client.LoadCurriculum(c.Request.Context(), req.Curriculum)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true, Data: result})
}

// AddQuestions handles POST /api/v1/ingest/questions
func (h *IngestHandler) AddQuestions(c *gin.Context) {
	var req dto.AddQuestionsRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.client.AddQuestionsBatch(c.Request.Context(), req.Questions)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewIngestResponse(result))
}

// AddChunks handles POST /api/v1/ingest/chunks
func (h *IngestHandler) AddChunks(c *gin.Context) {
	var req dto.AddChunksRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.BatchSize == 0 {
		req.BatchSize = utils.DefaultBatchSize
	}

	result, err := h.client.AddChunksBatch(c.Request.Context(), req.Chunks, req.BatchSize)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewIngestResponse(result))
}

// AddConcept handles POST /api/v1/ingest/concepts
func (h *IngestHandler) AddConcept(c *gin.Context) {
	var req dto.AddConceptRequest
	if !bindJSON(c, &req) {
		return
	}

	concept, err := h.client.AddConcept(c.Request.Context(), req.Name, req.Explanation, req.Topic, req.Subject)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Result{Success: true, Data: concept})
}

// Statistics handles GET /api/v1/stats
func (h *IngestHandler) Statistics(c *gin.Context) {
	stats, err := h.client.Statistics(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ClearData handles DELETE /api/v1/ingest/clear. The request must carry
// confirm=true.
func (h *IngestHandler) ClearData(c *gin.Context) {
	if c.Query("confirm") != "true" {
		writeError(c, http.StatusBadRequest, "confirmation_required", "pass confirm=true to clear the graph")
		return
	}
	if err := h.client.Clear(c.Request.Context()); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Result{Success: true})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/studygraph"
	"github.com/soundprediction/studygraph/pkg/retriever"
	"github.com/soundprediction/studygraph/pkg/server/dto"
	"github.com/soundprediction/studygraph/pkg/types"
)

// RetrieveHandler handles data retrieval requests
type RetrieveHandler struct {
	client   studygraph.Querier
	defaultK int
}

// NewRetrieveHandler creates a new retrieve handler. Searches without k
// return defaultK results.
func NewRetrieveHandler(client studygraph.Querier, defaultK int) *RetrieveHandler {
	if defaultK <= 0 {
		defaultK = retriever.DefaultK
	}
	return &RetrieveHandler{client: client, defaultK: defaultK}
}

// VectorSearch handles POST /api/v1/search
func (h *RetrieveHandler) VectorSearch(c *gin.Context) {
	var req dto.SearchRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.K == 0 {
		req.K = h.defaultK
	}

	chunks, err := h.client.VectorSearch(c.Request.Context(), req.Query, req.K, req.Subject, req.Topic)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SearchResults{Chunks: chunks, Total: len(chunks)})
}

// HybridSearch handles POST /api/v1/search/hybrid
func (h *RetrieveHandler) HybridSearch(c *gin.Context) {
	var req dto.SearchRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.K == 0 {
		req.K = h.defaultK
	}

	result, err := h.client.HybridSearch(c.Request.Context(), req.Query, req.Subject, req.Topic, req.K)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListSubjects handles GET /api/v1/subjects
func (h *RetrieveHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.client.ListSubjects(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, subjects)
}

// TopicsForSubject handles GET /api/v1/subjects/:subject/topics
func (h *RetrieveHandler) TopicsForSubject(c *gin.Context) {
	topics, err := h.client.TopicsForSubject(c.Request.Context(), c.Param("subject"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, topics)
}

// TopicContext handles GET /api/v1/subjects/:subject/topics/:topic/context
func (h *RetrieveHandler) TopicContext(c *gin.Context) {
	includeConcepts := true
	if v := c.Query("include_concepts"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid_request", "include_concepts must be a boolean")
			return
		}
		includeConcepts = b
	}

	tc, err := h.client.GraphSearch(c.Request.Context(), c.Param("subject"), c.Param("topic"), includeConcepts)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, tc)
}

// Questions handles GET /api/v1/subjects/:subject/topics/:topic/questions
func (h *RetrieveHandler) Questions(c *gin.Context) {
	var q dto.QuestionsQuery
	if !bindQuery(c, &q) {
		return
	}

	ctx := c.Request.Context()
	subject, topic := c.Param("subject"), c.Param("topic")

	var (
		questions []types.Question
		err       error
	)
	switch q.Order {
	case "difficulty_asc", "difficulty_desc":
		questions, err = h.client.QuestionsByDifficulty(ctx, subject, topic, q.Order == "difficulty_asc")
	default:
		questions, err = h.client.QuestionsByTopic(ctx, subject, topic, retriever.QuestionFilter{
			Year:       q.Year,
			Difficulty: q.Difficulty,
			Limit:      q.Limit,
		})
	}
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

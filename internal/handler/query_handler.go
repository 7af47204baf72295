package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/chatrecall/internal/pkg/response"
	"github.com/xxxsen/chatrecall/internal/service"
)

type QueryHandler struct {
	query *service.QueryService
}

func NewQueryHandler(query *service.QueryService) *QueryHandler {
	return &QueryHandler{query: query}
}

type queryRequest struct {
	Question       string   `json:"question"`
	TopK           int      `json:"top_k"`
	MinScore       float64  `json:"min_score"`
	Participants   []string `json:"participants"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	ConversationID string   `json:"conversation_id"`
}

func (r *queryRequest) toServiceRequest() (*service.QueryRequest, error) {
	req := &service.QueryRequest{
		Question:       r.Question,
		TopK:           r.TopK,
		MinScore:       r.MinScore,
		Participants:   r.Participants,
		ConversationID: r.ConversationID,
	}
	if r.StartDate != "" {
		ts, err := time.Parse("2006-01-02", r.StartDate)
		if err != nil {
			return nil, err
		}
		req.StartTime = &ts
	}
	if r.EndDate != "" {
		ts, err := time.Parse("2006-01-02", r.EndDate)
		if err != nil {
			return nil, err
		}
		end := ts.Add(24*time.Hour - time.Nanosecond)
		req.EndTime = &end
	}
	return req, nil
}

// Search returns raw retrieval results without answer generation.
func (h *QueryHandler) Search(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request")
		return
	}
	svcReq, err := req.toServiceRequest()
	if err != nil {
		response.Invalid(c, "invalid date format, expected YYYY-MM-DD")
		return
	}
	result, err := h.query.Search(c.Request.Context(), svcReq)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// Query answers a question in a single shot with citations.
func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request")
		return
	}
	svcReq, err := req.toServiceRequest()
	if err != nil {
		response.Invalid(c, "invalid date format, expected YYYY-MM-DD")
		return
	}
	result, err := h.query.Query(c.Request.Context(), svcReq)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

type agentRequest struct {
	Question string `json:"question"`
}

// Agent answers a question via the multi-step reasoning loop, returning the
// reasoning trace alongside the answer.
func (h *QueryHandler) Agent(c *gin.Context) {
	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Invalid(c, "invalid request")
		return
	}
	result, err := h.query.RunAgent(c.Request.Context(), req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

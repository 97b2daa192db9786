package dto

import (
	"strings"

	"agentic-search-api/internal/domain/model"
)

// SearchRequest 搜索请求
type SearchRequest struct {
	Query             string             `json:"query" binding:"required"`
	MaxResults        int                `json:"max_results"`
	Filters           map[string]string  `json:"filters"`
	UserContext       *model.UserContext `json:"user_context"`
	ClarifyingAnswers map[string]string  `json:"clarifying_answers"`
}

// Validate 请求参数校验
func (r *SearchRequest) Validate() string {
	if strings.TrimSpace(r.Query) == "" {
		return "query must not be empty"
	}
	if len(r.Query) > 1024 {
		return "query too long"
	}
	if r.MaxResults < 0 {
		return "max_results must not be negative"
	}
	return ""
}

// ToPipelineRequest 构建管道请求状态
func (r *SearchRequest) ToPipelineRequest(requestID string) *model.PipelineRequest {
	req := model.NewPipelineRequest(requestID, strings.TrimSpace(r.Query))
	req.MaxResults = r.MaxResults
	req.Filters = model.SearchFilters(r.Filters)
	req.UserContext = r.UserContext
	req.ClarifyingAnswers = r.ClarifyingAnswers
	return req
}

// SearchResponse 搜索响应
type SearchResponse struct {
	RequestID string `json:"request_id"`
	*model.PipelineResult
}

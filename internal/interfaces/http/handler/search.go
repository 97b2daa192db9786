// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"agentic-search-api/internal/domain/model"
	"agentic-search-api/internal/interfaces/http/dto"
	"agentic-search-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PipelineExecutor 管道执行入口
type PipelineExecutor interface {
	Execute(ctx context.Context, req *model.PipelineRequest) (*model.PipelineResult, error)
}

// SearchHandler 搜索处理器
type SearchHandler struct {
	engine PipelineExecutor
}

// NewSearchHandler 创建搜索处理器
func NewSearchHandler(engine PipelineExecutor) *SearchHandler {
	return &SearchHandler{engine: engine}
}

// Search 自然语言商品搜索接口
// @Summary 自然语言搜索
// @Description 解析自然语言查询并返回主题化搭配结果
// @Tags Search
// @Accept json
// @Produce json
// @Param request body dto.SearchRequest true "搜索请求"
// @Success 200 {object} dto.Response[dto.SearchResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /search [post]
func (h *SearchHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if msg := req.Validate(); msg != "" {
		dto.BadRequest(c, msg)
		return
	}

	requestID := c.GetString("request_id")
	if requestID == "" {
		requestID = uuid.New().String()
	}

	pipelineReq := req.ToPipelineRequest(requestID)
	if req.UserContext != nil && req.UserContext.UserID != "" {
		ctx := logger.WithContext(c.Request.Context(), logger.UserIDKey, req.UserContext.UserID)
		c.Request = c.Request.WithContext(ctx)
	}

	result, err := h.engine.Execute(c.Request.Context(), pipelineReq)
	if err != nil {
		logger.Error(c.Request.Context(), "search pipeline failed", err,
			"request_id", requestID, "query", pipelineReq.Query)
		if result != nil {
			// 失败响应同样携带执行轨迹与已产出的部分结果
			dto.ErrorWithData(c, err, dto.SearchResponse{RequestID: requestID, PipelineResult: result})
			return
		}
		dto.Error(c, err)
		return
	}

	dto.Success(c, dto.SearchResponse{RequestID: requestID, PipelineResult: result})
}

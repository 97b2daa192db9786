package handler

import (
	"github.com/gin-gonic/gin"

	"agentic-search-api/internal/interfaces/http/dto"
	"agentic-search-api/internal/workflow"
)

// PipelineHandler 管道状态处理器
type PipelineHandler struct {
	engine *workflow.Engine
}

// NewPipelineHandler 创建管道状态处理器
func NewPipelineHandler(engine *workflow.Engine) *PipelineHandler {
	return &PipelineHandler{engine: engine}
}

// pipelineStatus 管道静态拓扑信息
type pipelineStatus struct {
	RoutingStrategy string               `json:"routing_strategy"`
	Stages          []workflow.StageName `json:"stages"`
}

// Status 管道状态接口
// @Summary 管道状态
// @Description 返回路由策略与已注册阶段
// @Tags Pipeline
// @Produce json
// @Success 200 {object} dto.Response[pipelineStatus]
// @Router /pipeline/status [get]
func (h *PipelineHandler) Status(c *gin.Context) {
	dto.Success(c, pipelineStatus{
		RoutingStrategy: h.engine.StrategyName(),
		Stages:          h.engine.Stages(),
	})
}

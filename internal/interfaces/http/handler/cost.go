package handler

import (
	"github.com/gin-gonic/gin"

	"agentic-search-api/internal/application/admission"
	"agentic-search-api/internal/interfaces/http/dto"
	"agentic-search-api/pkg/logger"
)

// CostHandler 成本账本处理器
type CostHandler struct {
	admission *admission.Controller
}

// NewCostHandler 创建成本账本处理器
func NewCostHandler(admissionCtrl *admission.Controller) *CostHandler {
	return &CostHandler{admission: admissionCtrl}
}

// Metrics 成本账本快照接口
// @Summary 成本指标
// @Description 返回当日花费、预算余量、查询计数与开关状态
// @Tags Cost
// @Produce json
// @Success 200 {object} dto.Response[admission.Metrics]
// @Router /cost/metrics [get]
func (h *CostHandler) Metrics(c *gin.Context) {
	dto.Success(c, h.admission.Metrics(c.Request.Context()))
}

// killSwitchRequest 紧急停止开关设置请求
type killSwitchRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetKillSwitch 设置紧急停止开关
// @Summary 设置紧急停止开关
// @Description 开关激活后所有请求在准入阶段被拒绝
// @Tags Cost
// @Accept json
// @Produce json
// @Param request body killSwitchRequest true "开关状态"
// @Success 200 {object} dto.Response[admission.Metrics]
// @Failure 400 {object} dto.ErrorResponse
// @Router /cost/kill-switch [post]
func (h *CostHandler) SetKillSwitch(c *gin.Context) {
	var req killSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		dto.BadRequest(c, "active field is required")
		return
	}

	h.admission.SetKillSwitch(*req.Active)
	logger.Warn(c.Request.Context(), "cost kill switch updated", "active", *req.Active)
	dto.Success(c, h.admission.Metrics(c.Request.Context()))
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"agentic-search-api/internal/application/admission"
	"agentic-search-api/internal/infrastructure/persistence/milvus"
	"agentic-search-api/internal/infrastructure/persistence/redis"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	redis     *redis.Client
	milvus    *milvus.Client
	admission *admission.Controller
	version   string
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(redisClient *redis.Client, milvusClient *milvus.Client, admissionCtrl *admission.Controller, version string) *HealthHandler {
	return &HealthHandler{
		redis:     redisClient,
		milvus:    milvusClient,
		admission: admissionCtrl,
		version:   version,
	}
}

type dependencyCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type healthResponse struct {
	Status       string                      `json:"status"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]*dependencyCheck `json:"dependencies,omitempty"`
	Cost         *admission.Metrics          `json:"cost,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Description 检查服务健康状态与依赖连通性，附带成本账本快照
// @Tags System
// @Produce json
// @Success 200 {object} healthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := map[string]*dependencyCheck{
		"redis":  h.check(ctx, "redis"),
		"milvus": h.check(ctx, "milvus"),
	}

	resp := healthResponse{
		Status:       "ok",
		Version:      h.version,
		Dependencies: deps,
	}
	if h.admission != nil {
		m := h.admission.Metrics(ctx)
		resp.Cost = &m
	}

	// 依赖降级不影响存活：健康端点始终 200，状态字段呈现降级
	for _, d := range deps {
		if d.Status == "error" {
			resp.Status = "degraded"
		}
	}
	c.JSON(http.StatusOK, resp)
}

// check 探测单个依赖
func (h *HealthHandler) check(ctx context.Context, name string) *dependencyCheck {
	var err error
	start := time.Now()

	switch name {
	case "redis":
		if h.redis == nil {
			return &dependencyCheck{Status: "disabled"}
		}
		err = h.redis.HealthCheck(ctx)
	case "milvus":
		if h.milvus == nil {
			return &dependencyCheck{Status: "disabled"}
		}
		err = h.milvus.HealthCheck(ctx)
	}

	check := &dependencyCheck{
		Status:    "ok",
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		check.Status = "error"
		check.Error = err.Error()
	}
	return check
}

// Ready 就绪检查接口
// @Summary 就绪检查
// @Description 检查服务是否可以接收流量
// @Tags System
// @Produce json
// @Success 200 {object} healthResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	// 向量库是检索的硬依赖，不可达即不就绪
	if h.milvus != nil {
		if err := h.milvus.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "not_ready"})
			return
		}
	}
	c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

// Live 存活检查接口
// @Summary 存活检查
// @Description 检查服务是否存活
// @Tags System
// @Produce json
// @Success 200 {object} healthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

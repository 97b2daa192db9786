// Package router 提供 HTTP 路由配置
package router

import (
	"agentic-search-api/internal/config"
	"agentic-search-api/internal/infrastructure/persistence/redis"
	"agentic-search-api/internal/interfaces/http/handler"
	"agentic-search-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Search   *handler.SearchHandler
	Health   *handler.HealthHandler
	Cost     *handler.CostHandler
	Pipeline *handler.PipelineHandler
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	limiter  *redis.RateLimiter
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, limiter *redis.RateLimiter) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		cfg:      cfg,
		handlers: handlers,
		limiter:  limiter,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	// 系统端点
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	// 业务端点：搜索走限流，成本端点不走
	r.engine.POST("/search",
		middleware.RateLimit(r.cfg.Security.RateLimit, r.limiter),
		r.handlers.Search.Search)

	cost := r.engine.Group("/cost")
	{
		cost.GET("/metrics", r.handlers.Cost.Metrics)
		cost.POST("/kill-switch", r.handlers.Cost.SetKillSwitch)
	}

	r.engine.GET("/pipeline/status", r.handlers.Pipeline.Status)
}

// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"
	"time"

	"agentic-search-api/internal/config"
	"agentic-search-api/internal/infrastructure/persistence/redis"
	"agentic-search-api/pkg/errors"

	"github.com/gin-gonic/gin"
)

// RateLimit 限流中间件
// 以客户端 IP + 路径为键做滑动窗口限流；限流器故障时放行，
// 避免 redis 抖动影响业务。
func RateLimit(cfg config.RateLimitConfig, limiter *redis.RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limit := cfg.RequestsPerSecond
	if limit <= 0 {
		limit = 100
	}

	return func(c *gin.Context) {
		key := redis.BuildRateLimitKey(c.ClientIP(), c.Request.URL.Path)

		allowed, err := limiter.Allow(c.Request.Context(), key, limit, time.Second)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":     errors.CodeTooManyRequests,
				"message":  "rate limit exceeded",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}

		c.Next()
	}
}

package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"agentic-search-api/internal/config"
)

// WithRetry 按带抖动的指数退避重试 fn
// ctx 取消时立即返回；最后一次失败的错误原样返回。
func WithRetry(ctx context.Context, cfg config.RetryConfig, fn func(context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.Initial

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}

		jitter := time.Duration(0)
		if delay > 0 {
			jitter = time.Duration(rand.Int64N(int64(delay)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay + jitter):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.Max > 0 && delay > cfg.Max {
			delay = cfg.Max
		}
	}
	return err
}

// ExecuteGuarded 组合重试与熔断：熔断放行后，fn 的重试整体记为一次结果
// 这是所有出站依赖调用共用的装饰器。
func ExecuteGuarded(ctx context.Context, breaker *CircuitBreaker, cfg config.RetryConfig, fn func(context.Context) error) error {
	return breaker.Execute(ctx, func(ctx context.Context) error {
		return WithRetry(ctx, cfg, fn)
	})
}

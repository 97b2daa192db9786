// Package resilience 提供外部依赖调用的熔断与重试保护
package resilience

import (
	"context"
	"sync"
	"time"

	"agentic-search-api/internal/config"
	"agentic-search-api/pkg/errors"
	"agentic-search-api/pkg/metrics"
)

// State 熔断器状态
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String 返回状态名
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker 滑动窗口熔断器
// closed：正常放行并统计结果；窗口内请求数达到 MinRequests 且失败率
// 超过 FailureThreshold 时打开。
// open：快速失败，OpenTimeout 后进入 half-open。
// half-open：放行至多 HalfOpenMaxCalls 个探测请求，全部成功则关闭，
// 任一失败则重新打开。
type CircuitBreaker struct {
	name string
	cfg  config.BreakerConfig

	mu            sync.Mutex
	state         State
	window        []bool // 滑动窗口内的调用结果，true=失败
	windowPos     int
	windowCount   int
	openedAt      time.Time
	halfOpenCalls int
	halfOpenFails int
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(name string, cfg config.BreakerConfig) *CircuitBreaker {
	b := &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		state:  StateClosed,
		window: make([]bool, cfg.WindowSize),
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(StateClosed))
	return b
}

// State 返回当前状态（open 超时后返回 half-open）
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

// Allow 判断是否放行一次调用
// 放行后调用方必须以 RecordSuccess 或 RecordFailure 上报结果。
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpenLocked()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.halfOpenCalls < b.cfg.HalfOpenMaxCalls {
			b.halfOpenCalls++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess 上报调用成功
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.recordLocked(false)
	case StateHalfOpen:
		// 探测请求全部成功则恢复
		if b.halfOpenCalls-b.halfOpenFails >= b.cfg.HalfOpenMaxCalls {
			b.transitionLocked(StateClosed)
		}
	}
}

// RecordFailure 上报调用失败（超时视为失败）
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.recordLocked(true)
		if b.shouldOpenLocked() {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		b.halfOpenFails++
		b.transitionLocked(StateOpen)
	}
}

// Execute 在熔断保护下执行 fn
// 熔断打开时返回携带熔断器名的打开错误，不发起调用。
func (b *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !b.Allow() {
		// 每次构造新错误：共享预定义错误的 Detail 会被并发熔断器互相覆盖
		return errors.New(errors.CodeCircuitBreakerOpen, "circuit breaker is open").WithDetail(b.name)
	}

	err := fn(ctx)
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// maybeHalfOpenLocked open 超时后转入 half-open，调用方需持锁
func (b *CircuitBreaker) maybeHalfOpenLocked() {
	if b.state == StateOpen && time.Since(b.openedAt) >= b.cfg.OpenTimeout {
		b.transitionLocked(StateHalfOpen)
	}
}

// recordLocked 向滑动窗口写入一次调用结果
func (b *CircuitBreaker) recordLocked(failed bool) {
	b.window[b.windowPos] = failed
	b.windowPos = (b.windowPos + 1) % len(b.window)
	if b.windowCount < len(b.window) {
		b.windowCount++
	}
}

// shouldOpenLocked 评估失败率是否达到熔断阈值
func (b *CircuitBreaker) shouldOpenLocked() bool {
	if b.windowCount < b.cfg.MinRequests {
		return false
	}
	failures := 0
	for i := 0; i < b.windowCount; i++ {
		if b.window[i] {
			failures++
		}
	}
	return float64(failures)/float64(b.windowCount) > b.cfg.FailureThreshold
}

// transitionLocked 状态转换并重置相关计数
func (b *CircuitBreaker) transitionLocked(to State) {
	if b.state == to {
		return
	}
	b.state = to
	switch to {
	case StateOpen:
		b.openedAt = time.Now()
	case StateHalfOpen:
		b.halfOpenCalls = 0
		b.halfOpenFails = 0
	case StateClosed:
		b.window = make([]bool, b.cfg.WindowSize)
		b.windowPos = 0
		b.windowCount = 0
	}
	metrics.CircuitBreakerState.WithLabelValues(b.name).Set(float64(to))
	metrics.CircuitBreakerTransitionsTotal.WithLabelValues(b.name, to.String()).Inc()
}

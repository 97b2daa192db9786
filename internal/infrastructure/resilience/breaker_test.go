package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic-search-api/internal/config"
	apperrors "agentic-search-api/pkg/errors"
)

func testBreakerConfig() config.BreakerConfig {
	return config.BreakerConfig{
		FailureThreshold: 0.5,
		MinRequests:      3,
		WindowSize:       3,
		OpenTimeout:      50 * time.Millisecond,
		HalfOpenMaxCalls: 2,
	}
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := NewCircuitBreaker("test", testBreakerConfig())

	// 窗口未满足 MinRequests 前不熔断
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
	b.RecordSuccess()

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestCircuitBreaker_StaysClosedBelowThreshold(t *testing.T) {
	b := NewCircuitBreaker("test", testBreakerConfig())

	b.RecordSuccess()
	b.RecordSuccess()
	b.RecordFailure()

	// 1/3 失败率低于 0.5 阈值
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cfg := testBreakerConfig()
	b := NewCircuitBreaker("test", cfg)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	require.Equal(t, StateOpen, b.State())

	time.Sleep(cfg.OpenTimeout + 10*time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	// 半开状态只放行 HalfOpenMaxCalls 个探测
	assert.True(t, b.Allow())
	assert.True(t, b.Allow())
	assert.False(t, b.Allow())
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cfg := testBreakerConfig()
	b := NewCircuitBreaker("test", cfg)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	time.Sleep(cfg.OpenTimeout + 10*time.Millisecond)

	require.True(t, b.Allow())
	require.True(t, b.Allow())
	b.RecordSuccess()
	b.RecordSuccess()

	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cfg := testBreakerConfig()
	b := NewCircuitBreaker("test", cfg)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	time.Sleep(cfg.OpenTimeout + 10*time.Millisecond)

	require.True(t, b.Allow())
	b.RecordFailure()

	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestCircuitBreaker_ExecuteFastFailsWhenOpen(t *testing.T) {
	b := NewCircuitBreaker("test", testBreakerConfig())
	wantErr := errors.New("downstream failed")

	for i := 0; i < 3; i++ {
		err := b.Execute(context.Background(), func(context.Context) error {
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)
	}

	// 熔断打开后不再发起调用
	called := false
	err := b.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)

	appErr := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.CodeCircuitBreakerOpen, appErr.Code)
}

func TestCircuitBreaker_OpenErrorsCarryOwnDetail(t *testing.T) {
	trip := func(name string) *CircuitBreaker {
		b := NewCircuitBreaker(name, testBreakerConfig())
		for i := 0; i < 3; i++ {
			b.RecordFailure()
		}
		return b
	}
	milvus := trip("milvus")
	agents := trip("agents")

	err1 := milvus.Execute(context.Background(), func(context.Context) error { return nil })
	err2 := agents.Execute(context.Background(), func(context.Context) error { return nil })
	require.Error(t, err1)
	require.Error(t, err2)

	// 每次快速失败都是独立错误实例，Detail 不被其他熔断器覆盖
	assert.Equal(t, "milvus", apperrors.AsAppError(err1).Detail)
	assert.Equal(t, "agents", apperrors.AsAppError(err2).Detail)
	assert.NotSame(t, apperrors.AsAppError(err1), apperrors.AsAppError(err2))
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	cfg := config.RetryConfig{
		MaxAttempts: 3,
		Initial:     time.Millisecond,
		Max:         5 * time.Millisecond,
		Multiplier:  2.0,
	}

	attempts := 0
	err := WithRetry(context.Background(), cfg, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	cfg := config.RetryConfig{
		MaxAttempts: 3,
		Initial:     time.Millisecond,
		Max:         5 * time.Millisecond,
		Multiplier:  2.0,
	}

	wantErr := errors.New("persistent")
	attempts := 0
	err := WithRetry(context.Background(), cfg, func(context.Context) error {
		attempts++
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_RespectsContextCancellation(t *testing.T) {
	cfg := config.RetryConfig{
		MaxAttempts: 10,
		Initial:     50 * time.Millisecond,
		Max:         time.Second,
		Multiplier:  2.0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := WithRetry(ctx, cfg, func(context.Context) error {
		attempts++
		return errors.New("failing")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2)
}

func TestExecuteGuarded_RetriedSequenceCountsOnce(t *testing.T) {
	breakerCfg := testBreakerConfig()
	retryCfg := config.RetryConfig{
		MaxAttempts: 3,
		Initial:     time.Millisecond,
		Max:         5 * time.Millisecond,
		Multiplier:  2.0,
	}
	b := NewCircuitBreaker("test", breakerCfg)

	// 一次守护调用内部重试 3 次，对熔断窗口只计一次失败
	attempts := 0
	err := ExecuteGuarded(context.Background(), b, retryCfg, func(context.Context) error {
		attempts++
		return errors.New("failing")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, StateClosed, b.State())
}

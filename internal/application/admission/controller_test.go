package admission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic-search-api/internal/config"
)

func testCostConfig() config.CostConfig {
	return config.CostConfig{
		ServiceName:               "vector-search",
		DailyBudgetUSD:            1.00,
		MaxQueryCostUSD:           0.05,
		CostPerThousandQueriesUSD: 0.50,
	}
}

func TestController_AllowsWithinBudget(t *testing.T) {
	c := NewController(testCostConfig(), nil)

	allowed, reason := c.CanProceed(context.Background(), 0.01)
	assert.True(t, allowed)
	assert.Empty(t, reason)
}

func TestController_RejectsWhenBudgetWouldBeExceeded(t *testing.T) {
	c := NewController(testCostConfig(), nil)
	ctx := context.Background()

	// 当日已花费 0.99，预算 1.00：0.05 的估算会越界
	c.RecordCost(ctx, 0.99)

	allowed, reason := c.CanProceed(ctx, 0.05)
	assert.False(t, allowed)
	assert.Equal(t, ReasonBudgetExceeded, reason)

	// 恰好触顶的请求仍放行
	allowed, _ = c.CanProceed(ctx, 0.01)
	assert.True(t, allowed)
}

func TestController_KillSwitchRejectsEverything(t *testing.T) {
	c := NewController(testCostConfig(), nil)
	c.SetKillSwitch(true)

	allowed, reason := c.CanProceed(context.Background(), 0.0)
	assert.False(t, allowed)
	assert.Equal(t, ReasonKillSwitch, reason)

	c.SetKillSwitch(false)
	allowed, _ = c.CanProceed(context.Background(), 0.01)
	assert.True(t, allowed)
}

func TestController_RejectsOverpricedQuery(t *testing.T) {
	c := NewController(testCostConfig(), nil)

	allowed, reason := c.CanProceed(context.Background(), 0.06)
	assert.False(t, allowed)
	assert.Equal(t, ReasonQueryCost, reason)
}

func TestController_EstimateQueryCost(t *testing.T) {
	c := NewController(testCostConfig(), nil)

	assert.InDelta(t, 0.0005, c.EstimateQueryCost(1), 1e-9)
	assert.InDelta(t, 0.5, c.EstimateQueryCost(1000), 1e-9)
	assert.InDelta(t, 0.0, c.EstimateQueryCost(0), 1e-9)
}

func TestController_MetricsSnapshot(t *testing.T) {
	c := NewController(testCostConfig(), nil)
	ctx := context.Background()

	c.RecordCost(ctx, 0.30)
	c.RecordCost(ctx, 0.20)

	m := c.Metrics(ctx)
	assert.InDelta(t, 0.50, m.DailySpend, 1e-9)
	assert.InDelta(t, 1.00, m.DailyBudget, 1e-9)
	assert.InDelta(t, 0.50, m.RemainingBudget, 1e-9)
	assert.Equal(t, int64(2), m.DailyQueries)
	assert.False(t, m.KillSwitchActive)
}

func TestController_RemainingBudgetNeverNegative(t *testing.T) {
	c := NewController(testCostConfig(), nil)
	ctx := context.Background()

	c.RecordCost(ctx, 1.50)

	m := c.Metrics(ctx)
	require.InDelta(t, 1.50, m.DailySpend, 1e-9)
	assert.Zero(t, m.RemainingBudget)

	allowed, reason := c.CanProceed(ctx, 0.01)
	assert.False(t, allowed)
	assert.Equal(t, ReasonBudgetExceeded, reason)
}

func TestController_CentsAccumulationIsExact(t *testing.T) {
	c := NewController(testCostConfig(), nil)
	ctx := context.Background()

	// 浮点直接累加会漂移，美分计数不应漂移
	for i := 0; i < 100; i++ {
		c.RecordCost(ctx, 0.01)
	}
	m := c.Metrics(ctx)
	assert.InDelta(t, 1.00, m.DailySpend, 1e-9)
}

// Package admission 提供基于成本预算的准入控制
package admission

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"agentic-search-api/internal/config"
	"agentic-search-api/internal/infrastructure/persistence/redis"
	"agentic-search-api/pkg/logger"
	"agentic-search-api/pkg/metrics"
)

// 拒绝原因
const (
	ReasonKillSwitch     = "kill switch is active"
	ReasonBudgetExceeded = "daily budget exceeded"
	ReasonQueryCost      = "estimated query cost exceeds per-query limit"
)

// Metrics 成本账本快照
type Metrics struct {
	DailySpend       float64 `json:"daily_spend"`
	DailyBudget      float64 `json:"daily_budget"`
	RemainingBudget  float64 `json:"remaining_budget"`
	DailyQueries     int64   `json:"daily_queries"`
	KillSwitchActive bool    `json:"kill_switch_active"`
}

// Controller 准入控制器
// 进程内以原子计数（美分）镜像当日花费，redis 计数器跨进程共享；
// 每日边界重置进程内镜像。增量检查为 best-effort：并发请求可能
// 合计超出预算至多一个在途请求的估算成本。
type Controller struct {
	cfg   config.CostConfig
	store *redis.LedgerStore

	killSwitch      atomic.Bool
	spendCents      atomic.Int64
	queries         atomic.Int64
	dayMu           sync.Mutex
	currentDay      string
	budgetCents     int64
	maxQueryCents   int64
	perThousandCost decimal.Decimal
}

// NewController 创建准入控制器
// store 可为 nil（无 redis 时仅用进程内计数）。
func NewController(cfg config.CostConfig, store *redis.LedgerStore) *Controller {
	c := &Controller{
		cfg:             cfg,
		store:           store,
		currentDay:      today(),
		budgetCents:     usdToCents(cfg.DailyBudgetUSD),
		maxQueryCents:   usdToCents(cfg.MaxQueryCostUSD),
		perThousandCost: decimal.NewFromFloat(cfg.CostPerThousandQueriesUSD),
	}
	c.killSwitch.Store(cfg.KillSwitch)
	return c
}

// CanProceed 判断请求是否可进入管道
// 允许条件：!killSwitch && dailySpend + estimatedCost <= dailyBudget。
func (c *Controller) CanProceed(ctx context.Context, estimatedCostUSD float64) (bool, string) {
	c.maybeResetDay()

	if c.killSwitch.Load() {
		metrics.CostRejectionsTotal.WithLabelValues("kill_switch").Inc()
		return false, ReasonKillSwitch
	}

	estCents := usdToCents(estimatedCostUSD)
	if c.maxQueryCents > 0 && estCents > c.maxQueryCents {
		metrics.CostRejectionsTotal.WithLabelValues("query_cost").Inc()
		return false, ReasonQueryCost
	}

	if c.spendCents.Load()+estCents > c.budgetCents {
		metrics.CostRejectionsTotal.WithLabelValues("budget").Inc()
		return false, ReasonBudgetExceeded
	}
	return true, ""
}

// RecordCost 记录一次请求的实际成本
// 每个请求（含失败请求）恰好记录一次；没有回滚。
func (c *Controller) RecordCost(ctx context.Context, actualCostUSD float64) {
	c.maybeResetDay()

	c.spendCents.Add(usdToCents(actualCostUSD))
	c.queries.Add(1)
	metrics.CostSpendUSD.WithLabelValues(c.cfg.ServiceName).Set(centsToUSD(c.spendCents.Load()))
	metrics.CostQueriesTotal.WithLabelValues(c.cfg.ServiceName).Inc()

	if c.store != nil {
		if total, err := c.store.AddCost(ctx, actualCostUSD); err != nil {
			logger.Warn(ctx, "failed to persist cost to redis", "error", err.Error())
		} else if centsHigher := usdToCents(total); centsHigher > c.spendCents.Load() {
			// redis 为跨进程累计值，以较大者为准
			c.spendCents.Store(centsHigher)
		}
		if _, err := c.store.IncrQueries(ctx); err != nil {
			logger.Warn(ctx, "failed to persist query count to redis", "error", err.Error())
		}
	}
}

// EstimateQueryCost 估算 n 次查询的成本（美元）
func (c *Controller) EstimateQueryCost(n int) float64 {
	cost := c.perThousandCost.Mul(decimal.NewFromInt(int64(n))).Div(decimal.NewFromInt(1000))
	f, _ := cost.Float64()
	return f
}

// Metrics 返回账本快照
func (c *Controller) Metrics(ctx context.Context) Metrics {
	c.maybeResetDay()

	spend := centsToUSD(c.spendCents.Load())
	remaining := c.cfg.DailyBudgetUSD - spend
	if remaining < 0 {
		remaining = 0
	}
	return Metrics{
		DailySpend:       spend,
		DailyBudget:      c.cfg.DailyBudgetUSD,
		RemainingBudget:  remaining,
		DailyQueries:     c.queries.Load(),
		KillSwitchActive: c.killSwitch.Load(),
	}
}

// SetKillSwitch 设置紧急停止开关
func (c *Controller) SetKillSwitch(active bool) {
	c.killSwitch.Store(active)
}

// KillSwitchActive 返回开关状态
func (c *Controller) KillSwitchActive() bool {
	return c.killSwitch.Load()
}

// maybeResetDay 跨过每日边界时重置进程内计数
func (c *Controller) maybeResetDay() {
	day := today()
	c.dayMu.Lock()
	defer c.dayMu.Unlock()
	if day != c.currentDay {
		c.currentDay = day
		c.spendCents.Store(0)
		c.queries.Store(0)
	}
}

func today() string {
	return time.Now().Format("2006-01-02")
}

// usdToCents 美元转美分，用 decimal 避免浮点累计误差
func usdToCents(usd float64) int64 {
	return decimal.NewFromFloat(usd).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func centsToUSD(cents int64) float64 {
	f, _ := decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).Float64()
	return f
}

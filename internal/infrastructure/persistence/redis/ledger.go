// Package redis 提供成本计数的持久化实现
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// 成本计数 key 保留 24 小时，跨进程共享当日累计值
const ledgerKeyTTL = 24 * time.Hour

// LedgerStore 按天累计服务成本与查询次数
type LedgerStore struct {
	client  *Client
	service string
}

// NewLedgerStore 创建成本计数存储
func NewLedgerStore(client *Client, service string) *LedgerStore {
	return &LedgerStore{client: client, service: service}
}

// costKey 当日成本 key，如 cost:vector-search:2026-08-28
func (s *LedgerStore) costKey(day time.Time) string {
	return fmt.Sprintf("cost:%s:%s", s.service, day.Format("2006-01-02"))
}

// queriesKey 当日查询计数 key
func (s *LedgerStore) queriesKey(day time.Time) string {
	return fmt.Sprintf("queries:%s:%s", s.service, day.Format("2006-01-02"))
}

// AddCost 累加当日花费（美元），返回累加后的值
func (s *LedgerStore) AddCost(ctx context.Context, amountUSD float64) (float64, error) {
	ctx, span := tracer.Start(ctx, "ledger.AddCost")
	span.SetAttributes(attribute.Float64("ledger.amount_usd", amountUSD))
	defer span.End()

	key := s.costKey(time.Now())
	total, err := s.client.rdb.IncrByFloat(ctx, key, amountUSD).Result()
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to increment cost counter: %w", err)
	}
	s.client.rdb.Expire(ctx, key, ledgerKeyTTL)
	return total, nil
}

// IncrQueries 累加当日查询次数
func (s *LedgerStore) IncrQueries(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "ledger.IncrQueries")
	defer span.End()

	key := s.queriesKey(time.Now())
	count, err := s.client.rdb.Incr(ctx, key).Result()
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to increment query counter: %w", err)
	}
	s.client.rdb.Expire(ctx, key, ledgerKeyTTL)
	return count, nil
}

// DailySpend 读取当日累计花费（美元），key 不存在时返回 0
func (s *LedgerStore) DailySpend(ctx context.Context) (float64, error) {
	ctx, span := tracer.Start(ctx, "ledger.DailySpend")
	defer span.End()

	val, err := s.client.rdb.Get(ctx, s.costKey(time.Now())).Result()
	if err != nil {
		if IsNil(err) {
			return 0, nil
		}
		span.RecordError(err)
		return 0, err
	}
	spend, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed cost counter value %q: %w", val, err)
	}
	return spend, nil
}

// DailyQueries 读取当日累计查询次数
func (s *LedgerStore) DailyQueries(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "ledger.DailyQueries")
	defer span.End()

	count, err := s.client.rdb.Get(ctx, s.queriesKey(time.Now())).Int64()
	if err != nil {
		if IsNil(err) {
			return 0, nil
		}
		span.RecordError(err)
		return 0, err
	}
	return count, nil
}

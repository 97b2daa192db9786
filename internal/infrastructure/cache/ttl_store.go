// Package cache 提供有界的进程内 TTL 缓存
package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"agentic-search-api/pkg/metrics"
)

// entry 缓存条目
type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// TTLStore 有界 TTL 缓存
// 超过容量时按插入时间淘汰最旧条目；过期条目在读取与后台清理时淘汰。
// 并发读写安全；同 key 并发写入为 last-write-wins。
type TTLStore[V any] struct {
	mu         sync.RWMutex
	entries    map[string]entry[V]
	ttl        time.Duration
	maxEntries int
	name       string
	group      singleflight.Group
	done       chan struct{}
	closeOnce  sync.Once
}

// NewTTLStore 创建缓存
// name 用于指标标签；调用 Close 停止后台清理协程。
func NewTTLStore[V any](name string, ttl time.Duration, maxEntries int) *TTLStore[V] {
	s := &TTLStore[V]{
		entries:    make(map[string]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		name:       name,
		done:       make(chan struct{}),
	}
	go s.evictLoop()
	return s
}

// Get 读取缓存值，未命中或已过期返回 false
func (s *TTLStore[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || time.Since(e.insertedAt) > s.ttl {
		var zero V
		metrics.CacheOperationsTotal.WithLabelValues(s.name, "miss").Inc()
		return zero, false
	}
	metrics.CacheOperationsTotal.WithLabelValues(s.name, "hit").Inc()
	return e.value, true
}

// Set 写入缓存值，超过容量时先淘汰最旧条目
func (s *TTLStore[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}
	s.entries[key] = entry[V]{value: value, insertedAt: time.Now()}
	metrics.CacheSize.WithLabelValues(s.name).Set(float64(len(s.entries)))
}

// GetOrLoad 读取缓存，未命中时经 singleflight 调用 loader 并回填
// 同 key 的并发未命中只触发一次 loader 调用。
func (s *TTLStore[V]) GetOrLoad(key string, loader func() (V, error)) (V, error) {
	if v, ok := s.Get(key); ok {
		return v, nil
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		// 其他请求可能已回填
		if v, ok := s.Get(key); ok {
			return v, nil
		}
		v, err := loader()
		if err != nil {
			return nil, err
		}
		s.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return result.(V), nil
}

// Len 返回当前条目数
func (s *TTLStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close 停止后台清理协程
func (s *TTLStore[V]) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// evictOldestLocked 淘汰插入时间最早的条目，调用方需持有写锁
func (s *TTLStore[V]) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range s.entries {
		if first || e.insertedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.insertedAt
			first = false
		}
	}
	if !first {
		delete(s.entries, oldestKey)
		metrics.CacheOperationsTotal.WithLabelValues(s.name, "evict").Inc()
	}
}

// evictLoop 周期清理过期条目
func (s *TTLStore[V]) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *TTLStore[V]) evictExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, e := range s.entries {
		if now.Sub(e.insertedAt) > s.ttl {
			delete(s.entries, k)
			metrics.CacheOperationsTotal.WithLabelValues(s.name, "evict").Inc()
		}
	}
	metrics.CacheSize.WithLabelValues(s.name).Set(float64(len(s.entries)))
}

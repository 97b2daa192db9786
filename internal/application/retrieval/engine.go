package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"agentic-search-api/internal/config"
	"agentic-search-api/internal/domain/model"
	"agentic-search-api/internal/infrastructure/cache"
	"agentic-search-api/internal/infrastructure/embedding"
	"agentic-search-api/internal/infrastructure/resilience"
	"agentic-search-api/pkg/errors"
	"agentic-search-api/pkg/logger"
	"agentic-search-api/pkg/metrics"
	"agentic-search-api/pkg/tracer"
)

// 趋势重加权的加性提升项，均按趋势置信度缩放
const (
	trendStyleBoost    = 0.05
	trendSeasonBoost   = 0.04
	trendOccasionBoost = 0.03
)

// Engine 检索引擎
// 向量缓存与结果缓存相互独立；近邻检索由熔断器保护。
type Engine struct {
	embedder Embedder
	searcher NeighborSearcher
	breaker  *resilience.CircuitBreaker
	retryCfg config.RetryConfig
	cfg      config.RetrievalConfig

	embCache    *cache.TTLStore[[]float32]
	resultCache *cache.TTLStore[[]model.SearchCandidate]
}

// NewEngine 创建检索引擎
func NewEngine(
	embedder Embedder,
	searcher NeighborSearcher,
	breaker *resilience.CircuitBreaker,
	retryCfg config.RetryConfig,
	cfg config.RetrievalConfig,
	embCache *cache.TTLStore[[]float32],
	resultCache *cache.TTLStore[[]model.SearchCandidate],
) *Engine {
	return &Engine{
		embedder:    embedder,
		searcher:    searcher,
		breaker:     breaker,
		retryCfg:    retryCfg,
		cfg:         cfg,
		embCache:    embCache,
		resultCache: resultCache,
	}
}

// Search 执行检索并返回候选列表
// 返回数量受配置上限约束；结果缓存命中时返回深拷贝。
func (e *Engine) Search(ctx context.Context, query string, filters model.SearchFilters, trend *model.TrendSignals, maxResults int) ([]model.SearchCandidate, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Search")
	defer span.End()

	maxResults = e.clampMaxResults(maxResults)

	// 结果缓存命中直接返回深拷贝，调用方不可见缓存内部状态
	resultKey := resultCacheKey(query, maxResults, filters, trend)
	if cached, ok := e.resultCache.Get(resultKey); ok {
		metrics.RetrievalResultCount.WithLabelValues("cache").Observe(float64(len(cached)))
		return model.CloneCandidates(cached), nil
	}

	vector, err := e.resolveEmbedding(ctx, query, filters, trend)
	if err != nil {
		return nil, err
	}

	neighbors, err := e.findNeighbors(ctx, vector, maxResults)
	if err != nil {
		return nil, err
	}

	candidates := e.toCandidates(neighbors, query, filters, trend)
	candidates = e.reweightByTrend(candidates, trend)
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}

	e.resultCache.Set(resultKey, model.CloneCandidates(candidates))
	metrics.RetrievalResultCount.WithLabelValues("milvus").Observe(float64(len(candidates)))
	return candidates, nil
}

// clampMaxResults 应用默认值与硬上限
func (e *Engine) clampMaxResults(maxResults int) int {
	if maxResults <= 0 {
		maxResults = e.cfg.DefaultMaxResults
	}
	if e.cfg.MaxResultsCap > 0 && maxResults > e.cfg.MaxResultsCap {
		maxResults = e.cfg.MaxResultsCap
	}
	return maxResults
}

// resolveEmbedding 获取增强查询的向量
// Embedding 失败时降级为确定性伪向量并同样缓存，
// 避免 TTL 窗口内对同一输入反复重试故障依赖。
func (e *Engine) resolveEmbedding(ctx context.Context, query string, filters model.SearchFilters, trend *model.TrendSignals) ([]float32, error) {
	augmented := buildAugmentedQuery(query, filters, trend)
	key := embeddingCacheKey(augmented)

	return e.embCache.GetOrLoad(key, func() ([]float32, error) {
		var vector []float32
		err := resilience.WithRetry(ctx, e.retryCfg, func(ctx context.Context) error {
			v, embedErr := e.embedder.Embed(ctx, augmented)
			if embedErr != nil {
				return embedErr
			}
			vector = v
			return nil
		})
		if err != nil {
			logger.Warn(ctx, "embedding failed, using deterministic fallback vector", "error", err.Error())
			return embedding.FallbackVector(key, e.embedder.Dimension()), nil
		}
		return vector, nil
	})
}

// findNeighbors 熔断保护下的近邻检索
func (e *Engine) findNeighbors(ctx context.Context, vector []float32, topK int) ([]Neighbor, error) {
	var neighbors []Neighbor
	err := resilience.ExecuteGuarded(ctx, e.breaker, e.retryCfg, func(ctx context.Context) error {
		searchCtx := ctx
		if e.cfg.SearchTimeout > 0 {
			var cancel context.CancelFunc
			searchCtx, cancel = context.WithTimeout(ctx, e.cfg.SearchTimeout)
			defer cancel()
		}
		found, searchErr := e.searcher.FindNeighbors(searchCtx, vector, topK)
		if searchErr != nil {
			return searchErr
		}
		neighbors = found
		return nil
	})
	if err != nil {
		if errors.AsAppError(err).Code == errors.CodeCircuitBreakerOpen {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeRetrievalFailed, "nearest-neighbor search failed")
	}
	return neighbors, nil
}

// toCandidates 近邻转候选：计算相似度、应用事后过滤、生成匹配说明
func (e *Engine) toCandidates(neighbors []Neighbor, query string, filters model.SearchFilters, trend *model.TrendSignals) []model.SearchCandidate {
	candidates := make([]model.SearchCandidate, 0, len(neighbors))
	for _, n := range neighbors {
		if !filters.Matches(n.Product) {
			continue
		}
		distance := n.Distance
		if distance > 1 {
			distance = 1
		}
		similarity := 1 - distance
		candidates = append(candidates, model.SearchCandidate{
			Product:            n.Product,
			SimilarityScore:    similarity,
			MatchReason:        matchReason(similarity),
			MatchingAttributes: matchingAttributes(n.Product, query, filters, trend),
		})
	}
	return candidates
}

// matchReason 按相似度分层生成匹配说明
func matchReason(similarity float64) string {
	switch {
	case similarity > 0.9:
		return "Excellent match based on semantic similarity"
	case similarity > 0.7:
		return "Good match based on semantic similarity"
	case similarity > 0.5:
		return "Reasonable match based on semantic similarity"
	default:
		return "Related to your search"
	}
}

// matchingAttributes 提取候选命中的查询/过滤/趋势属性
func matchingAttributes(p model.Product, query string, filters model.SearchFilters, trend *model.TrendSignals) []string {
	var attrs []string
	lowerQuery := strings.ToLower(query)

	if p.Color != "" && strings.Contains(lowerQuery, strings.ToLower(p.Color)) {
		attrs = append(attrs, "color")
	}
	if p.Brand != "" && strings.Contains(lowerQuery, strings.ToLower(p.Brand)) {
		attrs = append(attrs, "brand")
	}
	if p.Category != "" && strings.Contains(lowerQuery, strings.ToLower(p.Category)) {
		attrs = append(attrs, "category")
	}
	for _, key := range filters.SortedKeys() {
		if filters[key] == "" {
			continue
		}
		if filters.MatchesKey(key, p) {
			attrs = append(attrs, fmt.Sprintf("filter:%s", key))
		}
	}
	if trend != nil {
		for _, tag := range p.StyleTags {
			if containsFold(trend.TrendingStyles, tag) {
				attrs = append(attrs, fmt.Sprintf("trend-style:%s", strings.ToLower(tag)))
			}
		}
	}
	return attrs
}

// reweightByTrend 趋势重加权后按调整相似度降序重排
func (e *Engine) reweightByTrend(candidates []model.SearchCandidate, trend *model.TrendSignals) []model.SearchCandidate {
	if trend.IsZero() {
		return candidates
	}
	confidence := trend.ClampedConfidence()
	if confidence == 0 {
		return candidates
	}

	for i := range candidates {
		boost := 0.0
		p := candidates[i].Product
		for _, tag := range p.StyleTags {
			if containsFold(trend.TrendingStyles, tag) {
				boost += trendStyleBoost
				break
			}
		}
		if trend.Season != "" && strings.EqualFold(p.Season, trend.Season) {
			boost += trendSeasonBoost
		}
		for _, occ := range p.Occasions {
			if containsFold(trend.RecommendedOccasions, occ) {
				boost += trendOccasionBoost
				break
			}
		}
		if boost > 0 {
			candidates[i].SimilarityScore += boost * confidence
			if candidates[i].SimilarityScore > 1 {
				candidates[i].SimilarityScore = 1
			}
			candidates[i].MatchReason += " · Boosted by current trend signals"
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SimilarityScore > candidates[j].SimilarityScore
	})
	return candidates
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

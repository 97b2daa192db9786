package retrieval

import (
	"fmt"
	"strings"

	"agentic-search-api/internal/domain/model"
)

// buildAugmentedQuery 构建增强查询串
// 过滤条件与趋势上下文拼入查询文本，作为 embedding 输入与缓存键，
// 上下文变化自然使缓存的向量失效。
func buildAugmentedQuery(query string, filters model.SearchFilters, trend *model.TrendSignals) string {
	var b strings.Builder
	b.WriteString(query)

	if len(filters) > 0 {
		pairs := make([]string, 0, len(filters))
		for _, k := range filters.SortedKeys() {
			pairs = append(pairs, fmt.Sprintf("%s:%s", k, filters[k]))
		}
		b.WriteString(" | filters: ")
		b.WriteString(strings.Join(pairs, ", "))
	}

	if trend != nil {
		if len(trend.TrendingStyles) > 0 {
			b.WriteString(" | trending styles: ")
			b.WriteString(strings.Join(trend.TrendingStyles, ", "))
		}
		if len(trend.RecommendedOccasions) > 0 {
			b.WriteString(" | recommended occasions: ")
			b.WriteString(strings.Join(trend.RecommendedOccasions, ", "))
		}
		if trend.Season != "" {
			b.WriteString(" | season: ")
			b.WriteString(trend.Season)
		}
		if trend.Location != "" {
			b.WriteString(" | location: ")
			b.WriteString(trend.Location)
		}
	}

	return b.String()
}

// embeddingCacheKey 向量缓存键：小写并去除首尾空白的增强查询串
func embeddingCacheKey(augmented string) string {
	return strings.ToLower(strings.TrimSpace(augmented))
}

// resultCacheKey 结果缓存指纹：查询、数量上限、排序后的过滤条件与趋势指纹
func resultCacheKey(query string, maxResults int, filters model.SearchFilters, trend *model.TrendSignals) string {
	var b strings.Builder
	b.WriteString(query)
	b.WriteString("|")
	fmt.Fprintf(&b, "%d", maxResults)
	b.WriteString("|filters=")
	for i, k := range filters.SortedKeys() {
		if i > 0 {
			b.WriteString("&")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(filters[k])
	}
	b.WriteString("|trend=")
	b.WriteString(trend.Fingerprint())
	return b.String()
}

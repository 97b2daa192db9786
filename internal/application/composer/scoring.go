package composer

import (
	"math"
	"strings"

	"agentic-search-api/internal/domain/model"
)

// 连贯度分量权重
const (
	coherenceBase         = 0.5
	styleCoherenceWeight  = 0.3
	colorHarmonyWeight    = 0.2
	categoryDiverseWeight = 0.1
	themeAlignmentWeight  = 0.2
	priceConsistWeight    = 0.1
	trendConfidenceBonus  = 0.05
)

// coherenceScores 连贯度各分量
type coherenceScores struct {
	Style     float64
	Color     float64
	Diversity float64
	Theme     float64
	Price     float64
	Total     float64
}

// scoreCoherence 计算搭配连贯度
// 各分量与总分均限制在 [0,1]；趋势置信度附加小额提升。
func scoreCoherence(items []model.SearchCandidate, theme string, trend *model.TrendSignals) coherenceScores {
	s := coherenceScores{
		Style:     styleCoherence(items),
		Color:     colorHarmony(items),
		Diversity: categoryDiversity(items),
		Theme:     themeAlignment(items, theme),
		Price:     priceConsistency(items),
	}

	total := coherenceBase +
		styleCoherenceWeight*s.Style +
		colorHarmonyWeight*s.Color +
		categoryDiverseWeight*s.Diversity +
		themeAlignmentWeight*s.Theme +
		priceConsistWeight*s.Price
	total = clamp01(total)

	if trend != nil {
		total = clamp01(total + trend.ClampedConfidence()*trendConfidenceBonus)
	}
	s.Total = total
	return s
}

// styleCoherence 风格标签重合度：任意两件的共享标签对占比
func styleCoherence(items []model.SearchCandidate) float64 {
	if len(items) < 2 {
		return 0
	}
	pairs, overlapping := 0, 0
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			pairs++
			if shareTag(items[i].Product.StyleTags, items[j].Product.StyleTags) {
				overlapping++
			}
		}
	}
	return float64(overlapping) / float64(pairs)
}

func shareTag(a, b []string) bool {
	for _, ta := range a {
		for _, tb := range b {
			if strings.EqualFold(ta, tb) {
				return true
			}
		}
	}
	return false
}

// colorHarmony 颜色协调度：兼容色对占比
func colorHarmony(items []model.SearchCandidate) float64 {
	if len(items) < 2 {
		return 0
	}
	pairs, compatible := 0, 0
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			pairs++
			if colorsCompatible(items[i].Product.Color, items[j].Product.Color) {
				compatible++
			}
		}
	}
	return float64(compatible) / float64(pairs)
}

// categoryDiversity 类目多样性：2-4 个不同类目得分最高
func categoryDiversity(items []model.SearchCandidate) float64 {
	distinct := make(map[string]bool)
	for _, item := range items {
		distinct[strings.ToLower(item.Product.Category)] = true
	}
	switch n := len(distinct); {
	case n >= 2 && n <= 4:
		return 1.0
	case n == 1:
		return 0.3
	default:
		return 0.6
	}
}

// themeAlignment 主题对齐度：带主题关键词标签的商品占比
func themeAlignment(items []model.SearchCandidate, theme string) float64 {
	keywords, ok := themeKeywords[theme]
	if !ok || len(items) == 0 {
		return 0.5
	}
	aligned := 0
	for _, item := range items {
		for _, tag := range item.Product.StyleTags {
			if containsKeyword(keywords, tag) {
				aligned++
				break
			}
		}
	}
	return float64(aligned) / float64(len(items))
}

func containsKeyword(keywords []string, tag string) bool {
	lower := strings.ToLower(tag)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// priceConsistency 价格一致性：1 − 最大偏离均值比例
func priceConsistency(items []model.SearchCandidate) float64 {
	if len(items) == 0 {
		return 0
	}
	mean := 0.0
	for _, item := range items {
		mean += item.Product.Price
	}
	mean /= float64(len(items))
	if mean <= 0 {
		return 0
	}
	maxDeviation := 0.0
	for _, item := range items {
		if d := math.Abs(item.Product.Price - mean); d > maxDeviation {
			maxDeviation = d
		}
	}
	return clamp01(1 - maxDeviation/mean)
}

// colorsCompatible 判断两个颜色是否兼容，相同颜色始终兼容
func colorsCompatible(a, b string) bool {
	ca, cb := strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if ca == "" || cb == "" {
		// 未知颜色不计为冲突
		return true
	}
	if ca == cb {
		return true
	}
	for _, compat := range colorHarmonyTable[ca] {
		if compat == cb {
			return true
		}
	}
	for _, compat := range colorHarmonyTable[cb] {
		if compat == ca {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package ranker

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"agentic-search-api/internal/domain/model"
)

// Ranker 搭配排序器
type Ranker struct{}

// NewRanker 创建排序器
func NewRanker() *Ranker {
	return &Ranker{}
}

// Rank 对搭配做多维度加权排序
// 无效搭配（无商品或连贯度 ≤ 0）被跳过；排序后截断到 maxResults，
// 再赋稠密的 1 起始名次。
func (r *Ranker) Rank(bundles []model.LookBundle, prefs *model.UserPreferences, trend *model.TrendSignals, maxResults int) []model.RankedLook {
	weights := weightsFor(priorityOf(prefs))

	ranked := make([]model.RankedLook, 0, len(bundles))
	for _, bundle := range bundles {
		if len(bundle.Items) == 0 || bundle.CoherenceScore <= 0 {
			continue
		}

		breakdown := map[string]float64{
			CriterionCoherence:  bundle.CoherenceScore,
			CriterionStyle:      styleScore(&bundle, prefs),
			CriterionPrice:      priceScore(&bundle, prefs),
			CriterionQuality:    qualityScore(&bundle),
			CriterionTrend:      trendScore(&bundle, trend),
			CriterionPreference: preferenceScore(&bundle, prefs),
		}

		final := 0.0
		for criterion, score := range breakdown {
			final += weights[criterion] * score
		}

		ranked = append(ranked, model.RankedLook{
			Bundle:         bundle,
			FinalScore:     final,
			ScoreBreakdown: breakdown,
			Confidence:     confidence(breakdown, len(bundle.Items), bundle.CoherenceScore),
		})
	}

	// 稳定排序保证同分时保持输入顺序
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	// 名次在排序与截断之后赋值
	for i := range ranked {
		ranked[i].Rank = i + 1
		ranked[i].RecommendationReason = recommendationReason(&ranked[i])
	}
	return ranked
}

func priorityOf(prefs *model.UserPreferences) string {
	if prefs == nil {
		return ""
	}
	return prefs.Priority
}

// styleScore 连贯度叠加偏好主题/颜色/品牌命中加成
func styleScore(bundle *model.LookBundle, prefs *model.UserPreferences) float64 {
	score := bundle.CoherenceScore
	if prefs != nil {
		if containsFold(prefs.PreferredThemes, bundle.StyleTheme) {
			score += 0.15
		}
		for _, item := range bundle.Items {
			if containsFold(prefs.PreferredColors, item.Product.Color) {
				score += 0.05
				break
			}
		}
		for _, item := range bundle.Items {
			if containsFold(prefs.PreferredBrands, item.Product.Brand) {
				score += 0.05
				break
			}
		}
	}
	return clamp01(score)
}

// priceScore 价格得分
// 超过硬性预算上限得 0；有偏好预算时按接近程度评分；
// 否则按价格区间取默认分。
func priceScore(bundle *model.LookBundle, prefs *model.UserPreferences) float64 {
	total := bundle.TotalPrice
	if prefs != nil {
		if prefs.MaxBudget > 0 && total > prefs.MaxBudget {
			return 0
		}
		if prefs.PreferredBudget > 0 {
			deviation := math.Abs(total-prefs.PreferredBudget) / prefs.PreferredBudget
			return clamp01(1 - deviation)
		}
	}
	if score, ok := priceRangeDefaults[string(bundle.PriceRange)]; ok {
		return score
	}
	return 0.5
}

// qualityScore 质量得分：归一化平均评分与平均热度的混合
func qualityScore(bundle *model.LookBundle) float64 {
	if len(bundle.Items) == 0 {
		return 0
	}
	var ratingSum, popularitySum float64
	for _, item := range bundle.Items {
		ratingSum += item.Product.Rating
		popularitySum += item.Product.Popularity
	}
	n := float64(len(bundle.Items))
	avgRating := ratingSum / n / 5.0
	avgPopularity := popularitySum / n
	return clamp01(0.7*avgRating + 0.3*avgPopularity)
}

// trendScore 趋势得分：季节/场合/流行色命中加成
func trendScore(bundle *model.LookBundle, trend *model.TrendSignals) float64 {
	if trend.IsZero() {
		return 0.5
	}
	score := 0.4
	for _, item := range bundle.Items {
		if trend.Season != "" && strings.EqualFold(item.Product.Season, trend.Season) {
			score += 0.2
			break
		}
	}
	for _, item := range bundle.Items {
		if anyIntersects(item.Product.Occasions, trend.RecommendedOccasions) {
			score += 0.2
			break
		}
	}
	for _, item := range bundle.Items {
		if containsFold(trend.TrendingColors, item.Product.Color) {
			score += 0.1
			break
		}
	}
	for _, item := range bundle.Items {
		if anyIntersects(item.Product.StyleTags, trend.TrendingStyles) {
			score += 0.1
			break
		}
	}
	return clamp01(score * trendWeight(trend))
}

// trendWeight 低置信度信号衰减趋势得分
func trendWeight(trend *model.TrendSignals) float64 {
	conf := trend.ClampedConfidence()
	if conf == 0 {
		return 0.5
	}
	return 0.5 + 0.5*conf
}

// preferenceScore 用户偏好得分：主题/场合/尺码关键词命中
func preferenceScore(bundle *model.LookBundle, prefs *model.UserPreferences) float64 {
	if prefs == nil {
		return 0.5
	}
	score := 0.4
	if containsFold(prefs.PreferredThemes, bundle.StyleTheme) {
		score += 0.3
	}
	for _, item := range bundle.Items {
		if anyIntersects(item.Product.Occasions, prefs.Occasions) {
			score += 0.2
			break
		}
	}
	for _, item := range bundle.Items {
		if anyIntersects(item.Product.Sizes, prefs.Sizes) {
			score += 0.1
			break
		}
	}
	return clamp01(score)
}

// confidence 置信度：分量一致性越高、件数越多，置信度越高
func confidence(breakdown map[string]float64, itemCount int, coherence float64) float64 {
	completenessBonus := math.Min(0.2, float64(itemCount)*0.05)
	return clamp01((1 - stddev(breakdown)) + completenessBonus + coherence*0.1)
}

func stddev(breakdown map[string]float64) float64 {
	if len(breakdown) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range breakdown {
		mean += v
	}
	mean /= float64(len(breakdown))

	variance := 0.0
	for _, v := range breakdown {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(breakdown))
	return math.Sqrt(variance)
}

// recommendationReason 生成推荐理由
func recommendationReason(look *model.RankedLook) string {
	best, bestScore := "", -1.0
	for criterion, score := range look.ScoreBreakdown {
		if score > bestScore || (score == bestScore && criterion < best) {
			best, bestScore = criterion, score
		}
	}

	theme := look.Bundle.StyleTheme
	switch best {
	case CriterionCoherence:
		return fmt.Sprintf("A well-coordinated %s look whose pieces fit together naturally", theme)
	case CriterionStyle:
		return fmt.Sprintf("Strong stylistic match for a %s look", theme)
	case CriterionPrice:
		return fmt.Sprintf("Great value %s look within your budget", theme)
	case CriterionQuality:
		return fmt.Sprintf("High-quality, popular pieces in this %s look", theme)
	case CriterionTrend:
		return fmt.Sprintf("On-trend %s look matching current season signals", theme)
	default:
		return fmt.Sprintf("A %s look aligned with your preferences", theme)
	}
}

func containsFold(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

func anyIntersects(a, b []string) bool {
	for _, s := range a {
		if containsFold(b, s) {
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

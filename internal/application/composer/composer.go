package composer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"agentic-search-api/internal/domain/model"
)

// 组合池上限：限制候选池规模以约束组合爆炸
const (
	minPerCategoryCap = 3
	minOverallCap     = 12
	maxDerivedThemes  = 4
)

// Composer 搭配组合器
type Composer struct{}

// NewComposer 创建组合器
func NewComposer() *Composer {
	return &Composer{}
}

// Compose 将候选组合为主题搭配
// 同一次组合中任意商品至多出现在一个搭配里；产出按连贯度降序。
func (c *Composer) Compose(candidates []model.SearchCandidate, themes []string, maxBundles int, trend *model.TrendSignals) []model.LookBundle {
	if maxBundles <= 0 {
		maxBundles = 5
	}

	pool := c.buildPool(candidates, maxBundles, trend)
	if len(pool) == 0 {
		return nil
	}

	if len(themes) == 0 {
		themes = deriveThemes(trend)
	}

	perThemeLimit := maxBundles / len(themes)
	if perThemeLimit < 1 {
		perThemeLimit = 1
	}

	usedIDs := make(map[string]bool)
	var bundles []model.LookBundle

	for _, theme := range themes {
		built := 0
		for _, combo := range combinationsFor(theme) {
			if built >= perThemeLimit || len(bundles) >= maxBundles {
				break
			}
			bundle, ok := c.buildBundle(pool, combo, theme, trend, usedIDs)
			if !ok {
				continue
			}
			bundles = append(bundles, bundle)
			built++
		}
		if len(bundles) >= maxBundles {
			break
		}
	}

	sort.SliceStable(bundles, func(i, j int) bool {
		return bundles[i].CoherenceScore > bundles[j].CoherenceScore
	})
	return bundles
}

// buildPool 预处理候选池：按商品去重保留最高分，按类目分组限容
func (c *Composer) buildPool(candidates []model.SearchCandidate, maxBundles int, trend *model.TrendSignals) map[string][]model.SearchCandidate {
	// 按商品 ID 去重，保留评分最高的重复项
	best := make(map[string]model.SearchCandidate)
	order := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		id := cand.Product.ID
		if existing, ok := best[id]; !ok {
			best[id] = cand
			order = append(order, id)
		} else if cand.SimilarityScore > existing.SimilarityScore {
			best[id] = cand
		}
	}

	deduped := make([]model.SearchCandidate, 0, len(best))
	for _, id := range order {
		deduped = append(deduped, best[id])
	}

	// 按上下文评分降序，限制总池规模
	sort.SliceStable(deduped, func(i, j int) bool {
		return contextualScore(deduped[i], trend) > contextualScore(deduped[j], trend)
	})
	overallCap := 6 * maxBundles
	if overallCap < minOverallCap {
		overallCap = minOverallCap
	}
	if len(deduped) > overallCap {
		deduped = deduped[:overallCap]
	}

	// 按类目分组并限制每类目池容量
	perCategoryCap := 2 * maxBundles
	if perCategoryCap < minPerCategoryCap {
		perCategoryCap = minPerCategoryCap
	}
	pool := make(map[string][]model.SearchCandidate)
	for _, cand := range deduped {
		category := strings.ToLower(cand.Product.Category)
		if len(pool[category]) < perCategoryCap {
			pool[category] = append(pool[category], cand)
		}
	}
	return pool
}

// contextualScore 相似度叠加趋势对齐的小额加成
func contextualScore(cand model.SearchCandidate, trend *model.TrendSignals) float64 {
	score := cand.SimilarityScore
	if trend != nil {
		for _, tag := range cand.Product.StyleTags {
			if containsFold(trend.TrendingStyles, tag) {
				score += 0.05
				break
			}
		}
		for _, occ := range cand.Product.Occasions {
			if containsFold(trend.RecommendedOccasions, occ) {
				score += 0.03
				break
			}
		}
	}
	return score
}

// buildBundle 按类目组合从池中挑选未使用的最佳候选
// 不足 2 件则放弃该组合；成功后标记商品为已使用。
func (c *Composer) buildBundle(pool map[string][]model.SearchCandidate, combo comboSpec, theme string, trend *model.TrendSignals, usedIDs map[string]bool) (model.LookBundle, bool) {
	var items []model.SearchCandidate
	for _, category := range combo.Categories {
		if pick, ok := pickBest(pool[category], trend, theme, usedIDs); ok {
			items = append(items, pick)
		}
	}
	if len(items) < 2 {
		return model.LookBundle{}, false
	}

	for _, item := range items {
		usedIDs[item.Product.ID] = true
	}

	scores := scoreCoherence(items, theme, trend)
	bundle := model.LookBundle{
		ID:             bundleID(theme, len(items)),
		Name:           combo.Name,
		StyleTheme:     theme,
		Items:          items,
		CoherenceScore: scores.Total,
		StyleCoherence: scores.Style,
		ColorHarmony:   scores.Color,
	}
	bundle.RecomputeDerived()
	bundle.Description = describeBundle(&bundle)
	return bundle, true
}

// pickBest 在类目池中选出未使用的最佳候选
func pickBest(candidates []model.SearchCandidate, trend *model.TrendSignals, theme string, usedIDs map[string]bool) (model.SearchCandidate, bool) {
	bestScore := -1.0
	var best model.SearchCandidate
	found := false
	for _, cand := range candidates {
		if usedIDs[cand.Product.ID] {
			continue
		}
		score := contextualScore(cand, trend) + themeBonus(cand, theme)
		if score > bestScore {
			bestScore = score
			best = cand
			found = true
		}
	}
	return best, found
}

// themeBonus 风格标签命中主题关键词的加成
func themeBonus(cand model.SearchCandidate, theme string) float64 {
	keywords, ok := themeKeywords[theme]
	if !ok {
		return 0
	}
	for _, tag := range cand.Product.StyleTags {
		if containsKeyword(keywords, tag) {
			return 0.1
		}
	}
	return 0
}

// deriveThemes 从趋势信号推导至多 4 个主题，始终附带兜底主题
func deriveThemes(trend *model.TrendSignals) []string {
	var themes []string
	seen := make(map[string]bool)

	addFrom := func(words []string) {
		for _, word := range words {
			if len(themes) >= maxDerivedThemes {
				return
			}
			lower := strings.ToLower(word)
			for keyword, theme := range themeDerivationKeywords {
				if strings.Contains(lower, keyword) && !seen[theme] {
					seen[theme] = true
					themes = append(themes, theme)
					break
				}
			}
		}
	}

	if trend != nil {
		addFrom(trend.TrendingStyles)
		addFrom(trend.RecommendedOccasions)
		if trend.Season != "" && len(themes) < maxDerivedThemes {
			if theme, ok := themeDerivationKeywords[strings.ToLower(trend.Season)]; ok && !seen[theme] {
				seen[theme] = true
				themes = append(themes, theme)
			}
		}
	}

	themes = append(themes, ThemeMixed)
	return themes
}

// bundleID 生成搭配 ID
func bundleID(theme string, itemCount int) string {
	return fmt.Sprintf("%s-%d-%s", theme, itemCount, uuid.NewString()[:8])
}

// describeBundle 生成搭配描述
func describeBundle(b *model.LookBundle) string {
	names := make([]string, len(b.Items))
	for i, item := range b.Items {
		names[i] = item.Product.Name
	}
	return fmt.Sprintf("A %s look combining %s (%s range)",
		b.StyleTheme, strings.Join(names, ", "), b.PriceRange)
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic-search-api/internal/domain/model"
)

func candidate(id, category, color string, score float64, opts ...func(*model.Product)) model.SearchCandidate {
	p := model.Product{
		ID:       id,
		SKU:      "sku-" + id,
		Name:     "Item " + id,
		Category: category,
		Color:    color,
		Price:    60,
		Currency: "USD",
		Rating:   4.0,
		InStock:  true,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return model.SearchCandidate{Product: p, SimilarityScore: score}
}

func richPool() []model.SearchCandidate {
	return []model.SearchCandidate{
		candidate("c1", "clothing", "black", 0.9),
		candidate("c2", "clothing", "white", 0.8),
		candidate("c3", "clothing", "blue", 0.7),
		candidate("s1", "shoes", "black", 0.85),
		candidate("s2", "shoes", "white", 0.75),
		candidate("a1", "accessories", "gray", 0.8),
		candidate("a2", "accessories", "black", 0.7),
	}
}

func TestCompose_BuildsThemedBundles(t *testing.T) {
	c := NewComposer()

	bundles := c.Compose(richPool(), []string{"casual"}, 3, nil)
	require.NotEmpty(t, bundles)

	for _, b := range bundles {
		assert.Equal(t, "casual", b.StyleTheme)
		assert.GreaterOrEqual(t, len(b.Items), 2)
		assert.NotEmpty(t, b.Name)
		assert.NotEmpty(t, b.Description)
		assert.Greater(t, b.TotalPrice, 0.0)
	}
}

func TestCompose_NoProductSharedBetweenBundles(t *testing.T) {
	c := NewComposer()

	bundles := c.Compose(richPool(), []string{"casual", "formal"}, 5, nil)
	require.NotEmpty(t, bundles)

	seen := make(map[string]bool)
	for _, b := range bundles {
		for _, item := range b.Items {
			assert.False(t, seen[item.Product.ID], "商品 %s 出现在多个搭配中", item.Product.ID)
			seen[item.Product.ID] = true
		}
	}
}

func TestCompose_DuplicateCandidatesKeepHighestScore(t *testing.T) {
	c := NewComposer()

	candidates := []model.SearchCandidate{
		candidate("c1", "clothing", "black", 0.5),
		candidate("c1", "clothing", "black", 0.9),
		candidate("s1", "shoes", "black", 0.8),
	}
	bundles := c.Compose(candidates, []string{"mixed"}, 2, nil)
	require.Len(t, bundles, 1)

	for _, item := range bundles[0].Items {
		if item.Product.ID == "c1" {
			assert.InDelta(t, 0.9, item.SimilarityScore, 1e-9)
		}
	}
}

func TestCompose_DiscardsSingleItemCombos(t *testing.T) {
	c := NewComposer()

	// 只有一个类目可用，任何组合都凑不够 2 件
	candidates := []model.SearchCandidate{
		candidate("c1", "clothing", "black", 0.9),
		candidate("c2", "clothing", "white", 0.8),
	}
	bundles := c.Compose(candidates, []string{"casual"}, 3, nil)
	assert.Empty(t, bundles)
}

func TestCompose_EmptyCandidates(t *testing.T) {
	c := NewComposer()
	assert.Empty(t, c.Compose(nil, nil, 3, nil))
}

func TestCompose_CoherenceWithinBounds(t *testing.T) {
	c := NewComposer()

	bundles := c.Compose(richPool(), nil, 5, &model.TrendSignals{
		TrendingStyles: []string{"casual"},
		Confidence:     0.9,
	})
	require.NotEmpty(t, bundles)

	for _, b := range bundles {
		assert.GreaterOrEqual(t, b.CoherenceScore, 0.0)
		assert.LessOrEqual(t, b.CoherenceScore, 1.0)
		assert.GreaterOrEqual(t, b.StyleCoherence, 0.0)
		assert.LessOrEqual(t, b.StyleCoherence, 1.0)
		assert.GreaterOrEqual(t, b.ColorHarmony, 0.0)
		assert.LessOrEqual(t, b.ColorHarmony, 1.0)
	}
}

func TestCompose_SortedByCoherenceDesc(t *testing.T) {
	c := NewComposer()

	bundles := c.Compose(richPool(), []string{"casual", "mixed"}, 5, nil)
	for i := 1; i < len(bundles); i++ {
		assert.GreaterOrEqual(t, bundles[i-1].CoherenceScore, bundles[i].CoherenceScore)
	}
}

func TestCompose_RespectsMaxBundles(t *testing.T) {
	c := NewComposer()

	var candidates []model.SearchCandidate
	for i := 0; i < 10; i++ {
		candidates = append(candidates,
			candidate("c"+string(rune('a'+i)), "clothing", "black", 0.8),
			candidate("s"+string(rune('a'+i)), "shoes", "white", 0.8),
		)
	}
	bundles := c.Compose(candidates, []string{"casual", "formal", "work"}, 2, nil)
	assert.LessOrEqual(t, len(bundles), 2)
}

func TestDeriveThemes_FromTrendSignals(t *testing.T) {
	themes := deriveThemes(&model.TrendSignals{
		TrendingStyles:       []string{"elegant minimalism", "cozy knits"},
		RecommendedOccasions: []string{"office party"},
		Season:               "summer",
	})

	assert.Contains(t, themes, "formal")
	assert.Contains(t, themes, "winter")
	// 兜底主题始终在最后
	assert.Equal(t, ThemeMixed, themes[len(themes)-1])
	assert.LessOrEqual(t, len(themes), maxDerivedThemes+1)
}

func TestDeriveThemes_NoSignalsFallsBackToMixed(t *testing.T) {
	assert.Equal(t, []string{ThemeMixed}, deriveThemes(nil))
	assert.Equal(t, []string{ThemeMixed}, deriveThemes(&model.TrendSignals{}))
}

func TestColorsCompatible(t *testing.T) {
	assert.True(t, colorsCompatible("black", "white"))
	assert.True(t, colorsCompatible("white", "black"), "兼容表应双向生效")
	assert.True(t, colorsCompatible("purple", "purple"), "同色始终兼容")
	assert.True(t, colorsCompatible("", "red"), "缺失颜色不惩罚")
	assert.False(t, colorsCompatible("red", "green"))
}

func TestScoreCoherence_TrendConfidenceBonus(t *testing.T) {
	items := []model.SearchCandidate{
		candidate("c1", "clothing", "black", 0.9),
		candidate("s1", "shoes", "white", 0.8),
	}

	without := scoreCoherence(items, "casual", nil)
	with := scoreCoherence(items, "casual", &model.TrendSignals{
		TrendingStyles: []string{"anything"},
		Confidence:     1.0,
	})
	assert.GreaterOrEqual(t, with.Total, without.Total)
	assert.LessOrEqual(t, with.Total, 1.0)
}

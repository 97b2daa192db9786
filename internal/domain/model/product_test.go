package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFilters_Matches(t *testing.T) {
	p := Product{
		ID:        "1",
		Category:  "Clothing",
		Brand:     "Acme",
		Color:     "Navy Blue",
		Sizes:     []string{"S", "M"},
		Occasions: []string{"wedding", "party"},
		Price:     120,
	}

	tests := []struct {
		name    string
		filters SearchFilters
		want    bool
	}{
		{"empty filters match everything", SearchFilters{}, true},
		{"category substring case-insensitive", SearchFilters{"category": "cloth"}, true},
		{"category mismatch", SearchFilters{"category": "shoes"}, false},
		{"color substring", SearchFilters{"color": "blue"}, true},
		{"occasion in list", SearchFilters{"occasion": "wedding"}, true},
		{"size in list", SearchFilters{"size": "m"}, true},
		{"max_price respected", SearchFilters{"max_price": "150"}, true},
		{"max_price exceeded", SearchFilters{"max_price": "100"}, false},
		{"min_price not reached", SearchFilters{"min_price": "200"}, false},
		{"unparseable price ignored", SearchFilters{"max_price": "cheap"}, true},
		{"empty value ignored", SearchFilters{"brand": ""}, true},
		{"all conditions must hold", SearchFilters{"brand": "acme", "color": "red"}, false},
		{"unknown key ignored", SearchFilters{"material": "silk"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.Matches(p))
		})
	}
}

func TestSearchFilters_MatchesKey(t *testing.T) {
	p := Product{Category: "Clothing", Brand: "Acme", Color: "Navy", Price: 120}
	f := SearchFilters{"category": "cloth", "brand": "other", "max_price": "100", "material": "silk"}

	// 逐键判定独立于其他键的结果
	assert.True(t, f.MatchesKey("category", p))
	assert.False(t, f.MatchesKey("brand", p))
	assert.False(t, f.MatchesKey("max_price", p))
	assert.True(t, f.MatchesKey("material", p), "未知键视为满足")
	assert.True(t, f.MatchesKey("color", p), "缺失键视为满足")
}

func TestSearchFilters_SortedKeys(t *testing.T) {
	f := SearchFilters{"color": "blue", "brand": "acme", "category": "clothing"}
	assert.Equal(t, []string{"brand", "category", "color"}, f.SortedKeys())
}

func TestSearchCandidate_CloneIsDeep(t *testing.T) {
	orig := SearchCandidate{
		Product: Product{
			ID:        "1",
			Sizes:     []string{"S"},
			StyleTags: []string{"casual"},
		},
		SimilarityScore:    0.8,
		MatchingAttributes: []string{"color"},
	}

	clone := orig.Clone()
	clone.Product.Sizes[0] = "XL"
	clone.MatchingAttributes[0] = "brand"

	assert.Equal(t, "S", orig.Product.Sizes[0])
	assert.Equal(t, "color", orig.MatchingAttributes[0])
}

func TestLookBundle_RecomputeDerived(t *testing.T) {
	b := LookBundle{
		Items: []SearchCandidate{
			{Product: Product{ID: "1", Category: "Clothing", Price: 60, Currency: "USD"}},
			{Product: Product{ID: "2", Category: "Shoes", Price: 80, Currency: "USD"}},
			{Product: Product{ID: "3", Category: "clothing", Price: 40, Currency: "USD"}},
		},
	}
	b.RecomputeDerived()

	assert.InDelta(t, 180, b.TotalPrice, 1e-9)
	assert.Equal(t, "USD", b.Currency)
	assert.Equal(t, PriceRangeModerate, b.PriceRange)
	assert.Equal(t, map[string]int{"clothing": 2, "shoes": 1}, b.CategoryBreakdown)
}

func TestPriceRangeOf(t *testing.T) {
	assert.Equal(t, PriceRangeBudget, PriceRangeOf(30))
	assert.Equal(t, PriceRangeAffordable, PriceRangeOf(99))
	assert.Equal(t, PriceRangeModerate, PriceRangeOf(150))
	assert.Equal(t, PriceRangePremium, PriceRangeOf(400))
	assert.Equal(t, PriceRangeLuxury, PriceRangeOf(800))
}

func TestTrendSignals_Fingerprint(t *testing.T) {
	var nilTrend *TrendSignals
	assert.Equal(t, "none", nilTrend.Fingerprint())
	assert.Equal(t, "none", (&TrendSignals{}).Fingerprint())

	a := &TrendSignals{TrendingStyles: []string{"boho"}, Season: "summer", Confidence: 0.8}
	b := &TrendSignals{TrendingStyles: []string{"boho"}, Season: "summer", Confidence: 0.8}
	c := &TrendSignals{TrendingStyles: []string{"boho"}, Season: "winter", Confidence: 0.8}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestExecutionTrace_AppendOnly(t *testing.T) {
	trace := &ExecutionTrace{}
	trace.Append(StageRecord{Stage: "retrieval"})
	trace.Append(StageRecord{Stage: "ranking"})

	records := trace.Records()
	require.Len(t, records, 2)

	// 返回副本，外部修改不影响内部状态
	records[0].Stage = "mutated"
	assert.Equal(t, "retrieval", trace.Records()[0].Stage)
}

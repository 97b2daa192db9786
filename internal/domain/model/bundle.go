package model

// PriceRange 价格区间标签
type PriceRange string

const (
	PriceRangeBudget     PriceRange = "budget"
	PriceRangeAffordable PriceRange = "affordable"
	PriceRangeModerate   PriceRange = "moderate"
	PriceRangePremium    PriceRange = "premium"
	PriceRangeLuxury     PriceRange = "luxury"
)

// PriceRangeOf 根据总价划分价格区间
func PriceRangeOf(totalPrice float64) PriceRange {
	switch {
	case totalPrice < 50:
		return PriceRangeBudget
	case totalPrice < 100:
		return PriceRangeAffordable
	case totalPrice < 200:
		return PriceRangeModerate
	case totalPrice < 500:
		return PriceRangePremium
	default:
		return PriceRangeLuxury
	}
}

// ThemeSingleItem 单件包装结果的主题标记
// 此类结果不适用搭配级规则（件数下限、SKU 去重）。
const ThemeSingleItem = "single"

// LookBundle 多件商品的主题搭配
type LookBundle struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	StyleTheme     string            `json:"style_theme"`
	Items          []SearchCandidate `json:"items"`
	CoherenceScore float64           `json:"coherence_score"` // [0,1]
	StyleCoherence float64           `json:"style_coherence"` // [0,1]
	ColorHarmony   float64           `json:"color_harmony"`   // [0,1]

	// 派生字段，始终由 Items 重算，不单独赋值
	TotalPrice        float64        `json:"total_price"`
	Currency          string         `json:"currency,omitempty"`
	PriceRange        PriceRange     `json:"price_range,omitempty"`
	CategoryBreakdown map[string]int `json:"category_breakdown,omitempty"`
}

// RecomputeDerived 由 Items 重算总价、价格区间与类目分布
func (b *LookBundle) RecomputeDerived() {
	total := 0.0
	breakdown := make(map[string]int, len(b.Items))
	currency := ""
	for _, item := range b.Items {
		total += item.Product.Price
		breakdown[item.Product.Category]++
		if currency == "" {
			currency = item.Product.Currency
		}
	}
	b.TotalPrice = total
	b.Currency = currency
	b.PriceRange = PriceRangeOf(total)
	b.CategoryBreakdown = breakdown
}

// Clone 深拷贝搭配
func (b LookBundle) Clone() LookBundle {
	out := b
	out.Items = CloneCandidates(b.Items)
	if b.CategoryBreakdown != nil {
		out.CategoryBreakdown = make(map[string]int, len(b.CategoryBreakdown))
		for k, v := range b.CategoryBreakdown {
			out.CategoryBreakdown[k] = v
		}
	}
	return out
}

// RankedLook 排序后的搭配结果
type RankedLook struct {
	Bundle               LookBundle         `json:"bundle"`
	FinalScore           float64            `json:"final_score"`
	ScoreBreakdown       map[string]float64 `json:"score_breakdown"`
	Rank                 int                `json:"rank"` // 1 起始、稠密、排序后赋值
	Confidence           float64            `json:"confidence"`
	RecommendationReason string             `json:"recommendation_reason,omitempty"`
	Warnings             []string           `json:"warnings,omitempty"`
}

// Package composer 提供主题搭配组合
package composer

// ThemeMixed 兜底主题，始终参与组合
const ThemeMixed = "mixed"

// comboSpec 类目组合：一个搭配从每个类目各取一件
type comboSpec struct {
	Name       string
	Categories []string
}

// themeCombinations 每个主题的类目组合目录
// 数据驱动的静态表，便于独立测试。
var themeCombinations = map[string][]comboSpec{
	"casual": {
		{Name: "Everyday Casual", Categories: []string{"clothing", "shoes"}},
		{Name: "Relaxed Weekend", Categories: []string{"clothing", "accessories"}},
		{Name: "Casual Complete", Categories: []string{"clothing", "shoes", "accessories"}},
	},
	"formal": {
		{Name: "Business Formal", Categories: []string{"clothing", "shoes"}},
		{Name: "Evening Elegance", Categories: []string{"clothing", "shoes", "accessories"}},
	},
	"party": {
		{Name: "Night Out", Categories: []string{"clothing", "shoes", "accessories"}},
		{Name: "Party Ready", Categories: []string{"clothing", "accessories"}},
	},
	"work": {
		{Name: "Office Look", Categories: []string{"clothing", "shoes"}},
		{Name: "Professional Polish", Categories: []string{"clothing", "shoes", "accessories"}},
	},
	"summer": {
		{Name: "Summer Breeze", Categories: []string{"clothing", "shoes"}},
		{Name: "Beach Day", Categories: []string{"clothing", "accessories"}},
	},
	"winter": {
		{Name: "Winter Layers", Categories: []string{"clothing", "shoes", "accessories"}},
		{Name: "Cozy Season", Categories: []string{"clothing", "accessories"}},
	},
	ThemeMixed: {
		{Name: "Complete Look", Categories: []string{"clothing", "shoes", "accessories"}},
		{Name: "Essential Pair", Categories: []string{"clothing", "shoes"}},
	},
}

// combinationsFor 返回主题的组合目录，未知主题用兜底目录
func combinationsFor(theme string) []comboSpec {
	if combos, ok := themeCombinations[theme]; ok {
		return combos
	}
	return themeCombinations[ThemeMixed]
}

// themeKeywords 主题关键词表，用于风格标签与主题的对齐评分
var themeKeywords = map[string][]string{
	"casual": {"comfortable", "relaxed", "everyday"},
	"formal": {"elegant", "sophisticated", "professional"},
	"party":  {"bold", "festive", "glamorous"},
	"work":   {"professional", "polished", "business"},
	"summer": {"light", "bright", "breathable"},
	"winter": {"warm", "cozy", "layered"},
}

// colorHarmonyTable 颜色兼容表，相同颜色始终兼容
var colorHarmonyTable = map[string][]string{
	"black": {"white", "gray", "red", "blue"},
	"white": {"black", "gray", "blue", "pink"},
	"blue":  {"white", "black", "gray", "denim"},
	"red":   {"black", "white", "navy"},
	"gray":  {"black", "white", "blue"},
	"brown": {"beige", "cream", "tan", "white"},
}

// themeDerivationKeywords 趋势关键词到规范主题名的映射
var themeDerivationKeywords = map[string]string{
	"elegant":       "formal",
	"sophisticated": "formal",
	"formal":        "formal",
	"professional":  "work",
	"business":      "work",
	"office":        "work",
	"party":         "party",
	"festive":       "party",
	"bold":          "party",
	"glamorous":     "party",
	"casual":        "casual",
	"comfortable":   "casual",
	"relaxed":       "casual",
	"summer":        "summer",
	"light":         "summer",
	"bright":        "summer",
	"winter":        "winter",
	"warm":          "winter",
	"cozy":          "winter",
}

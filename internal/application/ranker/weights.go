// Package ranker 提供搭配的多维度加权排序
package ranker

// 评分维度名
const (
	CriterionCoherence  = "coherence"
	CriterionStyle      = "style"
	CriterionPrice      = "price"
	CriterionQuality    = "quality"
	CriterionTrend      = "trend"
	CriterionPreference = "user_preference"
)

// defaultWeights 默认维度权重
var defaultWeights = map[string]float64{
	CriterionCoherence:  0.25,
	CriterionStyle:      0.20,
	CriterionPrice:      0.20,
	CriterionQuality:    0.15,
	CriterionTrend:      0.10,
	CriterionPreference: 0.10,
}

// priorityPresets 命名优先级预设，覆盖默认权重
var priorityPresets = map[string]map[string]float64{
	"price": {
		CriterionPrice:      0.40,
		CriterionCoherence:  0.20,
		CriterionStyle:      0.15,
		CriterionQuality:    0.10,
		CriterionTrend:      0.10,
		CriterionPreference: 0.05,
	},
	"style": {
		CriterionStyle:      0.35,
		CriterionCoherence:  0.25,
		CriterionPrice:      0.15,
		CriterionQuality:    0.10,
		CriterionTrend:      0.10,
		CriterionPreference: 0.05,
	},
	"quality": {
		CriterionQuality:    0.30,
		CriterionCoherence:  0.25,
		CriterionStyle:      0.20,
		CriterionPrice:      0.15,
		CriterionTrend:      0.05,
		CriterionPreference: 0.05,
	},
}

// weightsFor 返回优先级对应的权重表
func weightsFor(priority string) map[string]float64 {
	if preset, ok := priorityPresets[priority]; ok {
		return preset
	}
	return defaultWeights
}

// priceRangeDefaults 无预算偏好时按价格区间的默认得分
var priceRangeDefaults = map[string]float64{
	"budget":     0.8,
	"affordable": 0.9,
	"moderate":   1.0,
	"premium":    0.7,
	"luxury":     0.5,
}

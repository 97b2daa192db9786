package model

import (
	"fmt"
	"strings"
)

// TrendSignals 趋势信号：用于检索重加权与搭配组合的上下文增强
type TrendSignals struct {
	TrendingStyles       []string `json:"trending_styles,omitempty"`
	RecommendedOccasions []string `json:"recommended_occasions,omitempty"`
	TrendingColors       []string `json:"trending_colors,omitempty"`
	Season               string   `json:"season,omitempty"`
	Location             string   `json:"location,omitempty"`
	Confidence           float64  `json:"confidence"` // [0,1]
}

// IsZero 判断是否为空信号
func (t *TrendSignals) IsZero() bool {
	if t == nil {
		return true
	}
	return len(t.TrendingStyles) == 0 && len(t.RecommendedOccasions) == 0 &&
		len(t.TrendingColors) == 0 && t.Season == "" && t.Location == ""
}

// Fingerprint 生成趋势信号指纹（用于结果缓存键）
func (t *TrendSignals) Fingerprint() string {
	if t.IsZero() {
		return "none"
	}
	return fmt.Sprintf("styles=%s|occasions=%s|season=%s|loc=%s|conf=%.2f",
		strings.Join(t.TrendingStyles, ","),
		strings.Join(t.RecommendedOccasions, ","),
		t.Season, t.Location, t.Confidence)
}

// ClampedConfidence 返回限制在 [0,1] 的置信度
func (t *TrendSignals) ClampedConfidence() float64 {
	if t == nil {
		return 0
	}
	if t.Confidence < 0 {
		return 0
	}
	if t.Confidence > 1 {
		return 1
	}
	return t.Confidence
}

// ContextualQuery 上下文补全后的查询
type ContextualQuery struct {
	Query     string `json:"query"`
	Season    string `json:"season,omitempty"`
	Weather   string `json:"weather,omitempty"`
	Location  string `json:"location,omitempty"`
	TimeOfDay string `json:"time_of_day,omitempty"`
}

// TrendEnrichedQuery 趋势补全后的查询
type TrendEnrichedQuery struct {
	Query                   string   `json:"query"`
	TrendingStyles          []string `json:"trending_styles,omitempty"`
	SeasonalRecommendations []string `json:"seasonal_recommendations,omitempty"`
	TrendingColors          []string `json:"trending_colors,omitempty"`
	TrendConfidence         float64  `json:"trend_confidence"`
}

// Signals 将补全结果合并为趋势信号
func (q *TrendEnrichedQuery) Signals(ctx *ContextualQuery) *TrendSignals {
	s := &TrendSignals{
		TrendingStyles:       append([]string(nil), q.TrendingStyles...),
		RecommendedOccasions: append([]string(nil), q.SeasonalRecommendations...),
		TrendingColors:       append([]string(nil), q.TrendingColors...),
		Confidence:           q.TrendConfidence,
	}
	if ctx != nil {
		s.Season = ctx.Season
		s.Location = ctx.Location
	}
	return s
}

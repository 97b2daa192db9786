package model

import "strings"

// IntentType 查询意图类型
type IntentType string

const (
	IntentSearch         IntentType = "search"
	IntentRecommendation IntentType = "recommendation"
	IntentComparison     IntentType = "comparison"
	IntentOutfit         IntentType = "outfit"
)

// AttributeSummary 属性汇总：查询理解阶段识别出的必需/已提供/缺失属性
type AttributeSummary struct {
	Required []string `json:"required,omitempty"`
	Provided []string `json:"provided,omitempty"`
	Missing  []string `json:"missing,omitempty"`
}

// QueryIntent 查询理解结果
type QueryIntent struct {
	IntentType           IntentType        `json:"intent_type"`
	DetectedEntities     []string          `json:"detected_entities,omitempty"`
	Attributes           map[string]string `json:"attributes,omitempty"`
	Confidence           float64           `json:"confidence"`
	AttributeSummary     AttributeSummary  `json:"attribute_summary"`
	ClarificationSignals []string          `json:"clarification_signals,omitempty"`
}

// HasAttribute 判断是否识别出指定属性
func (i *QueryIntent) HasAttribute(key string) bool {
	if i == nil {
		return false
	}
	_, ok := i.Attributes[key]
	return ok
}

// IsMultiEntity 判断是否包含多个实体（整套搭配的信号之一）
func (i *QueryIntent) IsMultiEntity() bool {
	return i != nil && len(i.DetectedEntities) > 1
}

// MentionsOutfit 判断查询实体中是否出现整套搭配相关词汇
func (i *QueryIntent) MentionsOutfit() bool {
	if i == nil {
		return false
	}
	for _, e := range i.DetectedEntities {
		lower := strings.ToLower(e)
		if strings.Contains(lower, "outfit") || strings.Contains(lower, "ensemble") || strings.Contains(lower, "look") {
			return true
		}
	}
	return false
}

// ClarificationRequest 澄清请求
type ClarificationRequest struct {
	NeedsClarification bool     `json:"needs_clarification"`
	Questions          []string `json:"questions,omitempty"`
}

// UserPreferences 用户排序偏好
type UserPreferences struct {
	// Priority 命名优先级预设：price / style / quality，空为默认权重
	Priority        string   `json:"priority,omitempty"`
	PreferredThemes []string `json:"preferred_themes,omitempty"`
	PreferredColors []string `json:"preferred_colors,omitempty"`
	PreferredBrands []string `json:"preferred_brands,omitempty"`
	PreferredBudget float64  `json:"preferred_budget,omitempty"`
	MaxBudget       float64  `json:"max_budget,omitempty"`
	Occasions       []string `json:"occasions,omitempty"`
	Sizes           []string `json:"sizes,omitempty"`
}

// UserContext 用户上下文
type UserContext struct {
	UserID      string          `json:"user_id,omitempty"`
	Age         int             `json:"age,omitempty"`
	Gender      string          `json:"gender,omitempty"`
	Location    string          `json:"location,omitempty"`
	Budget      float64         `json:"budget,omitempty"`
	Preferences UserPreferences `json:"preferences,omitempty"`
}

// Package model 定义管道领域模型
package model

import (
	"sort"
	"strconv"
	"strings"
)

// Product 商品
type Product struct {
	ID          string   `json:"id"`
	SKU         string   `json:"sku"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand,omitempty"`
	Color       string   `json:"color,omitempty"`
	Sizes       []string `json:"sizes,omitempty"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency,omitempty"`
	StyleTags   []string `json:"style_tags,omitempty"`
	Occasions   []string `json:"occasions,omitempty"`
	Season      string   `json:"season,omitempty"`
	Rating      float64  `json:"rating,omitempty"`     // [0,5]
	Popularity  float64  `json:"popularity,omitempty"` // [0,1]
	InStock     bool     `json:"in_stock"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// Clone 深拷贝商品
func (p Product) Clone() Product {
	out := p
	out.Sizes = append([]string(nil), p.Sizes...)
	out.StyleTags = append([]string(nil), p.StyleTags...)
	out.Occasions = append([]string(nil), p.Occasions...)
	return out
}

// SearchCandidate 检索候选：单个商品与查询的相似度评分
type SearchCandidate struct {
	Product            Product  `json:"product"`
	SimilarityScore    float64  `json:"similarity_score"` // [0,1]
	MatchingAttributes []string `json:"matching_attributes,omitempty"`
	MatchReason        string   `json:"match_reason,omitempty"`
}

// Clone 深拷贝候选
func (c SearchCandidate) Clone() SearchCandidate {
	out := c
	out.Product = c.Product.Clone()
	out.MatchingAttributes = append([]string(nil), c.MatchingAttributes...)
	return out
}

// CloneCandidates 深拷贝候选列表
func CloneCandidates(in []SearchCandidate) []SearchCandidate {
	if in == nil {
		return nil
	}
	out := make([]SearchCandidate, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// SearchFilters 检索过滤条件
// 文本键（category/brand/color/occasion/size）做子串匹配，
// min_price/max_price 做数值比较。
type SearchFilters map[string]string

// Matches 判断商品是否满足全部过滤条件
func (f SearchFilters) Matches(p Product) bool {
	for key := range f {
		if !f.MatchesKey(key, p) {
			return false
		}
	}
	return true
}

// MatchesKey 判断商品是否满足单个过滤条件
// 空值与未知键视为满足。
func (f SearchFilters) MatchesKey(key string, p Product) bool {
	val := f[key]
	if val == "" {
		return true
	}
	switch key {
	case "category":
		return containsFold(p.Category, val)
	case "brand":
		return containsFold(p.Brand, val)
	case "color":
		return containsFold(p.Color, val)
	case "occasion":
		return anyContainsFold(p.Occasions, val)
	case "size":
		return anyContainsFold(p.Sizes, val)
	case "max_price":
		if limit, err := strconv.ParseFloat(val, 64); err == nil {
			return p.Price <= limit
		}
	case "min_price":
		if limit, err := strconv.ParseFloat(val, 64); err == nil {
			return p.Price >= limit
		}
	}
	return true
}

// SortedKeys 返回排序后的过滤键（用于缓存指纹）
func (f SearchFilters) SortedKeys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func anyContainsFold(list []string, sub string) bool {
	for _, s := range list {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}

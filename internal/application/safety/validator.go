// Package safety 提供搭配结果的内容安全与业务规则校验
package safety

import (
	"fmt"
	"strings"

	"agentic-search-api/internal/domain/model"
	"agentic-search-api/pkg/metrics"
)

// 业务规则约束
const (
	minBundleItems    = 2
	maxBundleItems    = 10
	maxBundlePriceUSD = 10000.0
	// 总价超出用户预算该比例即硬性拒绝
	budgetTolerance = 1.1
)

// inappropriateTerms 禁用词表：命中即拒绝
var inappropriateTerms = []string{
	"inappropriate", "offensive", "controversial", "explicit",
}

// sensitiveCategories 敏感类目：命中产生警告而非拒绝
var sensitiveCategories = []string{
	"adult", "mature", "controversial", "political", "religious",
}

// culturallySensitiveTerms 文化敏感词：命中即拒绝
var culturallySensitiveTerms = []string{
	"sacred", "ceremonial",
}

// checkResult 单项检查结果
type checkResult struct {
	rejections []string
	warnings   []string
}

func (r *checkResult) reject(format string, args ...any) {
	r.rejections = append(r.rejections, fmt.Sprintf(format, args...))
}

func (r *checkResult) warn(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

// Validator 安全校验器
type Validator struct{}

// NewValidator 创建校验器
func NewValidator() *Validator {
	return &Validator{}
}

// Validate 对排序结果执行四项独立检查
// 仅当四项检查均无拒绝级问题时通过；警告记录在结果上但不阻断。
func (v *Validator) Validate(looks []model.RankedLook, userCtx *model.UserContext) []model.RankedLook {
	approved := make([]model.RankedLook, 0, len(looks))
	for _, look := range looks {
		// 单件包装结果只做件级拒绝检查，预算与敏感类目照常产生警告
		if look.Bundle.StyleTheme == model.ThemeSingleItem && len(look.Bundle.Items) == 1 {
			if v.candidateRejected(&look.Bundle.Items[0], userCtx) {
				metrics.SafetyValidationsTotal.WithLabelValues("rejected").Inc()
				continue
			}
			metrics.SafetyValidationsTotal.WithLabelValues("approved").Inc()
			look.Warnings = append(look.Warnings,
				v.checkContentSafety(&look.Bundle).warnings...)
			look.Warnings = append(look.Warnings,
				v.checkUserSafety(&look.Bundle, userCtx).warnings...)
			approved = append(approved, look)
			continue
		}

		results := []checkResult{
			v.checkContentSafety(&look.Bundle),
			v.checkInclusivity(&look.Bundle, userCtx),
			v.checkBusinessRules(&look.Bundle),
			v.checkUserSafety(&look.Bundle, userCtx),
		}

		rejected := false
		var warnings []string
		for _, r := range results {
			if len(r.rejections) > 0 {
				rejected = true
			}
			warnings = append(warnings, r.warnings...)
		}

		if rejected {
			metrics.SafetyValidationsTotal.WithLabelValues("rejected").Inc()
			continue
		}
		metrics.SafetyValidationsTotal.WithLabelValues("approved").Inc()
		look.Warnings = append(look.Warnings, warnings...)
		approved = append(approved, look)
	}
	return approved
}

// ValidateCandidates 对未经搭配组合的候选逐件校验
// 简单路径没有搭配级规则（件数、SKU 去重），只应用件级检查：
// 禁用词、文化敏感词、库存与未成年人敏感类目。
func (v *Validator) ValidateCandidates(candidates []model.SearchCandidate, userCtx *model.UserContext) []model.SearchCandidate {
	approved := make([]model.SearchCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if v.candidateRejected(&cand, userCtx) {
			metrics.SafetyValidationsTotal.WithLabelValues("rejected").Inc()
			continue
		}
		metrics.SafetyValidationsTotal.WithLabelValues("approved").Inc()
		approved = append(approved, cand)
	}
	return approved
}

// candidateRejected 单件商品的拒绝级检查
func (v *Validator) candidateRejected(cand *model.SearchCandidate, userCtx *model.UserContext) bool {
	lower := strings.ToLower(cand.Product.Name + " " + cand.Product.Description)
	for _, term := range inappropriateTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	for _, term := range culturallySensitiveTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	if !cand.Product.InStock {
		return true
	}
	if userCtx != nil && userCtx.Age > 0 && userCtx.Age < 18 {
		category := strings.ToLower(cand.Product.Category)
		for _, sensitive := range sensitiveCategories {
			if strings.Contains(category, sensitive) {
				return true
			}
		}
	}
	return false
}

// checkContentSafety 内容安全：禁用词扫描与敏感类目警告
func (v *Validator) checkContentSafety(bundle *model.LookBundle) checkResult {
	var r checkResult

	scan := func(text, source string) {
		lower := strings.ToLower(text)
		for _, term := range inappropriateTerms {
			if strings.Contains(lower, term) {
				r.reject("content safety: %s contains banned term %q", source, term)
			}
		}
	}

	scan(bundle.Description, "bundle description")
	for _, item := range bundle.Items {
		scan(item.Product.Name, "product name")
		scan(item.Product.Description, "product description")

		category := strings.ToLower(item.Product.Category)
		for _, sensitive := range sensitiveCategories {
			if strings.Contains(category, sensitive) {
				r.warn("content safety: product %s is in sensitive category %q", item.Product.ID, sensitive)
			}
		}
	}
	return r
}

// checkInclusivity 包容性：性别/尺码/价格可及性产生警告，
// 文化敏感命中产生拒绝。
func (v *Validator) checkInclusivity(bundle *model.LookBundle, userCtx *model.UserContext) checkResult {
	var r checkResult

	for _, item := range bundle.Items {
		lower := strings.ToLower(item.Product.Name + " " + item.Product.Description)
		for _, term := range culturallySensitiveTerms {
			if strings.Contains(lower, term) {
				r.reject("inclusivity: product %s references culturally sensitive term %q", item.Product.ID, term)
			}
		}
	}

	if userCtx != nil && userCtx.Gender != "" {
		gender := strings.ToLower(userCtx.Gender)
		for _, item := range bundle.Items {
			lower := strings.ToLower(item.Product.Description)
			if strings.Contains(lower, "men only") || strings.Contains(lower, "women only") {
				if !strings.Contains(lower, gender) {
					r.warn("inclusivity: product %s may not match the stated gender preference", item.Product.ID)
				}
			}
		}
	}

	sizesOffered := 0
	for _, item := range bundle.Items {
		if len(item.Product.Sizes) > 0 {
			sizesOffered++
		}
	}
	if sizesOffered > 0 && sizesOffered < len(bundle.Items) {
		r.warn("inclusivity: not all items in the bundle offer size information")
	}

	if bundle.PriceRange == model.PriceRangeLuxury {
		r.warn("inclusivity: luxury price range may limit accessibility")
	}
	return r
}

// checkBusinessRules 业务规则：件数边界、总价上限、库存与 SKU 去重
func (v *Validator) checkBusinessRules(bundle *model.LookBundle) checkResult {
	var r checkResult

	if len(bundle.Items) < minBundleItems || len(bundle.Items) > maxBundleItems {
		r.reject("business rules: bundle has %d items, expected %d-%d", len(bundle.Items), minBundleItems, maxBundleItems)
	}
	if bundle.TotalPrice > maxBundlePriceUSD {
		r.reject("business rules: total price %.2f exceeds ceiling %.2f", bundle.TotalPrice, maxBundlePriceUSD)
	}

	seen := make(map[string]bool)
	for _, item := range bundle.Items {
		if !item.Product.InStock {
			r.reject("business rules: product %s is out of stock", item.Product.ID)
		}
		sku := item.Product.SKU
		if sku == "" {
			sku = item.Product.ID
		}
		if seen[sku] {
			r.reject("business rules: duplicate SKU %s within bundle", sku)
		}
		seen[sku] = true
	}
	return r
}

// checkUserSafety 用户保护：总价超预算 10% 以上硬性拒绝，
// 略超预算与年龄适配产生警告。
func (v *Validator) checkUserSafety(bundle *model.LookBundle, userCtx *model.UserContext) checkResult {
	var r checkResult
	if userCtx == nil {
		return r
	}

	if userCtx.Budget > 0 {
		if bundle.TotalPrice > userCtx.Budget*budgetTolerance {
			r.reject("user safety: total price %.2f exceeds budget %.2f by more than 10%%", bundle.TotalPrice, userCtx.Budget)
		} else if bundle.TotalPrice > userCtx.Budget {
			r.warn("user safety: total price %.2f slightly exceeds budget %.2f", bundle.TotalPrice, userCtx.Budget)
		}
	}

	if userCtx.Age > 0 && userCtx.Age < 18 {
		for _, item := range bundle.Items {
			category := strings.ToLower(item.Product.Category)
			for _, sensitive := range sensitiveCategories {
				if strings.Contains(category, sensitive) {
					r.warn("user safety: product %s may not be age-appropriate", item.Product.ID)
				}
			}
		}
	}
	return r
}

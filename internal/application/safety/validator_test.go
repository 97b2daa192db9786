package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic-search-api/internal/domain/model"
)

func safeItem(id string, price float64, opts ...func(*model.Product)) model.SearchCandidate {
	p := model.Product{
		ID:       id,
		SKU:      "sku-" + id,
		Name:     "Cotton Shirt " + id,
		Category: "clothing",
		Price:    price,
		Currency: "USD",
		Sizes:    []string{"S", "M", "L"},
		InStock:  true,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return model.SearchCandidate{Product: p, SimilarityScore: 0.8}
}

func look(items ...model.SearchCandidate) model.RankedLook {
	b := model.LookBundle{
		ID:             "look-1",
		Name:           "Test Look",
		StyleTheme:     "casual",
		Items:          items,
		CoherenceScore: 0.8,
	}
	b.RecomputeDerived()
	return model.RankedLook{Bundle: b, FinalScore: 0.8, Rank: 1}
}

func TestValidate_ApprovesCleanLook(t *testing.T) {
	v := NewValidator()

	approved := v.Validate([]model.RankedLook{
		look(safeItem("a", 50), safeItem("b", 60)),
	}, nil)
	require.Len(t, approved, 1)
	assert.Empty(t, approved[0].Warnings)
}

func TestValidate_RejectsBannedTerm(t *testing.T) {
	v := NewValidator()

	offensive := safeItem("a", 50, func(p *model.Product) {
		p.Description = "An explicit statement piece"
	})
	approved := v.Validate([]model.RankedLook{
		look(offensive, safeItem("b", 60)),
	}, nil)
	assert.Empty(t, approved)
}

func TestValidate_SensitiveCategoryWarnsOnly(t *testing.T) {
	v := NewValidator()

	sensitive := safeItem("a", 50, func(p *model.Product) {
		p.Category = "mature-clothing"
	})
	approved := v.Validate([]model.RankedLook{
		look(sensitive, safeItem("b", 60)),
	}, nil)
	require.Len(t, approved, 1)
	assert.NotEmpty(t, approved[0].Warnings)
}

func TestValidate_RejectsCulturallySensitiveTerm(t *testing.T) {
	v := NewValidator()

	cultural := safeItem("a", 50, func(p *model.Product) {
		p.Name = "Sacred ceremony robe"
	})
	approved := v.Validate([]model.RankedLook{
		look(cultural, safeItem("b", 60)),
	}, nil)
	assert.Empty(t, approved)
}

func TestValidate_BusinessRules(t *testing.T) {
	v := NewValidator()

	t.Run("too few items", func(t *testing.T) {
		approved := v.Validate([]model.RankedLook{look(safeItem("a", 50))}, nil)
		assert.Empty(t, approved)
	})

	t.Run("out of stock", func(t *testing.T) {
		oos := safeItem("a", 50, func(p *model.Product) { p.InStock = false })
		approved := v.Validate([]model.RankedLook{look(oos, safeItem("b", 60))}, nil)
		assert.Empty(t, approved)
	})

	t.Run("duplicate sku", func(t *testing.T) {
		first := safeItem("a", 50)
		dup := safeItem("b", 60, func(p *model.Product) { p.SKU = "sku-a" })
		approved := v.Validate([]model.RankedLook{look(first, dup)}, nil)
		assert.Empty(t, approved)
	})

	t.Run("price ceiling", func(t *testing.T) {
		approved := v.Validate([]model.RankedLook{
			look(safeItem("a", 6000), safeItem("b", 5000)),
		}, nil)
		assert.Empty(t, approved)
	})
}

func TestValidate_UserBudget(t *testing.T) {
	v := NewValidator()
	userCtx := &model.UserContext{Budget: 100}

	t.Run("over tolerance rejects", func(t *testing.T) {
		// 115 > 100 × 1.1
		approved := v.Validate([]model.RankedLook{
			look(safeItem("a", 55), safeItem("b", 60)),
		}, userCtx)
		assert.Empty(t, approved)
	})

	t.Run("slightly over warns", func(t *testing.T) {
		// 105 在 10% 容差内
		approved := v.Validate([]model.RankedLook{
			look(safeItem("a", 50), safeItem("b", 55)),
		}, userCtx)
		require.Len(t, approved, 1)
		assert.NotEmpty(t, approved[0].Warnings)
	})

	t.Run("within budget passes clean", func(t *testing.T) {
		approved := v.Validate([]model.RankedLook{
			look(safeItem("a", 40), safeItem("b", 50)),
		}, userCtx)
		require.Len(t, approved, 1)
		assert.Empty(t, approved[0].Warnings)
	})
}

func TestValidate_MinorWithSensitiveCategoryWarns(t *testing.T) {
	v := NewValidator()

	sensitive := safeItem("a", 50, func(p *model.Product) {
		p.Category = "mature-clothing"
	})
	approved := v.Validate([]model.RankedLook{
		look(sensitive, safeItem("b", 40)),
	}, &model.UserContext{Age: 16})
	require.Len(t, approved, 1)
	assert.NotEmpty(t, approved[0].Warnings)
}

func TestValidate_ChecksAreIndependent(t *testing.T) {
	v := NewValidator()

	// 同时触发多项拒绝：缺货 + 超预算容差
	bad := safeItem("a", 500, func(p *model.Product) { p.InStock = false })
	approved := v.Validate([]model.RankedLook{
		look(bad, safeItem("b", 600)),
	}, &model.UserContext{Budget: 100})
	assert.Empty(t, approved)
}

func singleLook(item model.SearchCandidate) model.RankedLook {
	b := model.LookBundle{
		ID:             "single-" + item.Product.ID,
		Name:           item.Product.Name,
		StyleTheme:     model.ThemeSingleItem,
		Items:          []model.SearchCandidate{item},
		CoherenceScore: item.SimilarityScore,
	}
	b.RecomputeDerived()
	return model.RankedLook{Bundle: b, FinalScore: item.SimilarityScore, Rank: 1}
}

func TestValidate_SingleItemLooksSkipBundleRules(t *testing.T) {
	v := NewValidator()

	// 单件包装结果不适用件数下限，件级拒绝检查照常
	approved := v.Validate([]model.RankedLook{singleLook(safeItem("a", 50))}, nil)
	require.Len(t, approved, 1)

	oos := safeItem("b", 50, func(p *model.Product) { p.InStock = false })
	approved = v.Validate([]model.RankedLook{singleLook(oos)}, nil)
	assert.Empty(t, approved)

	banned := safeItem("c", 50, func(p *model.Product) {
		p.Description = "explicit print"
	})
	approved = v.Validate([]model.RankedLook{singleLook(banned)}, nil)
	assert.Empty(t, approved)
}

func TestValidate_SingleItemLookBudgetWarning(t *testing.T) {
	v := NewValidator()

	approved := v.Validate([]model.RankedLook{singleLook(safeItem("a", 105))},
		&model.UserContext{Budget: 100})
	require.Len(t, approved, 1)
	assert.NotEmpty(t, approved[0].Warnings)
}

func TestValidateCandidates_SimplePath(t *testing.T) {
	v := NewValidator()

	banned := safeItem("bad", 50, func(p *model.Product) {
		p.Description = "offensive print"
	})
	oos := safeItem("oos", 50, func(p *model.Product) { p.InStock = false })
	ok := safeItem("ok", 50)

	approved := v.ValidateCandidates([]model.SearchCandidate{banned, oos, ok}, nil)
	require.Len(t, approved, 1)
	assert.Equal(t, "ok", approved[0].Product.ID)
}

func TestValidateCandidates_MinorSensitiveCategory(t *testing.T) {
	v := NewValidator()

	sensitive := safeItem("s", 50, func(p *model.Product) {
		p.Category = "adult-costume"
	})
	approved := v.ValidateCandidates([]model.SearchCandidate{sensitive}, &model.UserContext{Age: 15})
	assert.Empty(t, approved)

	// 成年人不受影响
	approved = v.ValidateCandidates([]model.SearchCandidate{sensitive}, &model.UserContext{Age: 30})
	assert.Len(t, approved, 1)
}

package workflow

import (
	"agentic-search-api/internal/domain/model"
)

// RoutingStrategy 路由策略
// 粗粒度与细粒度策略计算重叠但不相同的阶段资格判定，
// 二者保持为独立策略，不保证行为一致。
type RoutingStrategy interface {
	Name() string
	Decide(intent *model.QueryIntent) *model.RoutingDecision
}

// hasContextAttributes 意图中是否出现场合/季节属性
func hasContextAttributes(intent *model.QueryIntent) bool {
	return intent.HasAttribute("occasion") || intent.HasAttribute("season")
}

// needsBundlingFor 是否需要搭配组合：整套搭配词汇、多实体或推荐意图
func needsBundlingFor(intent *model.QueryIntent) bool {
	return intent.MentionsOutfit() || intent.IsMultiEntity() || intent.IntentType == model.IntentRecommendation || intent.IntentType == model.IntentOutfit
}

// CoarseStrategy 粗粒度路由：二分简单/复杂
// 简单请求（仅基础商品属性实体）直达检索与安全校验；
// 复杂请求固定经过上下文与趋势补全。
type CoarseStrategy struct{}

// Name 返回策略名
func (CoarseStrategy) Name() string { return "coarse" }

// Decide 计算路由决策
func (CoarseStrategy) Decide(intent *model.QueryIntent) *model.RoutingDecision {
	simple := intent.IntentType == model.IntentSearch &&
		!hasContextAttributes(intent) &&
		!intent.IsMultiEntity()

	if simple {
		return &model.RoutingDecision{RouteKind: model.RouteSimple}
	}

	bundling := needsBundlingFor(intent)
	return &model.RoutingDecision{
		RouteKind:     model.RouteComplex,
		NeedsContext:  true,
		NeedsTrend:    true,
		NeedsBundling: bundling,
		NeedsRanking:  bundling || intent.IntentType == model.IntentComparison || intent.IntentType == model.IntentRecommendation,
	}
}

// FineGrainedStrategy 细粒度路由：各阶段独立判定
type FineGrainedStrategy struct{}

// Name 返回策略名
func (FineGrainedStrategy) Name() string { return "fine-grained" }

// Decide 计算路由决策
func (FineGrainedStrategy) Decide(intent *model.QueryIntent) *model.RoutingDecision {
	needsContext := hasContextAttributes(intent)
	needsTrend := intent.HasAttribute("season") || intent.HasAttribute("occasion") ||
		intent.IntentType == model.IntentRecommendation
	needsBundling := needsBundlingFor(intent)
	needsRanking := needsBundling ||
		intent.IntentType == model.IntentComparison || intent.IntentType == model.IntentRecommendation

	kind := model.RouteComplex
	if !needsContext && !needsTrend && !needsBundling && !needsRanking {
		kind = model.RouteSimple
	}
	return &model.RoutingDecision{
		RouteKind:     kind,
		NeedsContext:  needsContext,
		NeedsTrend:    needsTrend,
		NeedsBundling: needsBundling,
		NeedsRanking:  needsRanking,
	}
}

// decideOnce 路由决策按请求只计算一次，之后不可变
func decideOnce(strategy RoutingStrategy, req *model.PipelineRequest) *model.RoutingDecision {
	if req.Routing == nil {
		req.Routing = strategy.Decide(req.Intent)
	}
	return req.Routing
}

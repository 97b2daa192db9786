package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic-search-api/internal/application/admission"
	"agentic-search-api/internal/application/composer"
	"agentic-search-api/internal/application/ranker"
	"agentic-search-api/internal/application/safety"
	"agentic-search-api/internal/config"
	"agentic-search-api/internal/domain/model"
	apperrors "agentic-search-api/pkg/errors"
)

type fakeAgents struct {
	intent        *model.QueryIntent
	clarification *model.ClarificationRequest
	contextual    *model.ContextualQuery
	trend         *model.TrendEnrichedQuery

	analyzeErr error
	enrichErr  error
}

func (f *fakeAgents) Analyze(ctx context.Context, query string, userCtx *model.UserContext) (*model.QueryIntent, error) {
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return f.intent, nil
}

func (f *fakeAgents) GenerateQuestions(ctx context.Context, intent *model.QueryIntent, userCtx *model.UserContext) (*model.ClarificationRequest, error) {
	if f.clarification != nil {
		return f.clarification, nil
	}
	return &model.ClarificationRequest{NeedsClarification: true, Questions: []string{"What is the occasion?"}}, nil
}

func (f *fakeAgents) EnrichContext(ctx context.Context, query string) (*model.ContextualQuery, error) {
	if f.enrichErr != nil {
		return nil, f.enrichErr
	}
	if f.contextual != nil {
		return f.contextual, nil
	}
	return &model.ContextualQuery{Query: query, Season: "summer", Location: "beach"}, nil
}

func (f *fakeAgents) EnrichTrends(ctx context.Context, contextual *model.ContextualQuery) (*model.TrendEnrichedQuery, error) {
	if f.trend != nil {
		return f.trend, nil
	}
	return &model.TrendEnrichedQuery{
		TrendingStyles:  []string{"boho"},
		TrendConfidence: 0.8,
	}, nil
}

type fakeRetriever struct {
	candidates []model.SearchCandidate
	err        error
	gotTrend   *model.TrendSignals
}

func (f *fakeRetriever) Search(ctx context.Context, query string, filters model.SearchFilters, trend *model.TrendSignals, maxResults int) ([]model.SearchCandidate, error) {
	f.gotTrend = trend
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func testCandidate(id, category string, score float64) model.SearchCandidate {
	return model.SearchCandidate{
		Product: model.Product{
			ID:       id,
			SKU:      "sku-" + id,
			Name:     "Item " + id,
			Category: category,
			Color:    "black",
			Price:    50,
			Currency: "USD",
			Rating:   4.0,
			Sizes:    []string{"M"},
			InStock:  true,
		},
		SimilarityScore: score,
	}
}

func wardrobe() []model.SearchCandidate {
	return []model.SearchCandidate{
		testCandidate("c1", "clothing", 0.9),
		testCandidate("c2", "clothing", 0.8),
		testCandidate("s1", "shoes", 0.85),
		testCandidate("a1", "accessories", 0.8),
	}
}

func searchIntent() *model.QueryIntent {
	return &model.QueryIntent{
		IntentType:       model.IntentSearch,
		DetectedEntities: []string{"dress"},
		Confidence:       0.9,
	}
}

func outfitIntent() *model.QueryIntent {
	return &model.QueryIntent{
		IntentType:       model.IntentOutfit,
		DetectedEntities: []string{"dress", "sandals", "outfit"},
		Attributes:       map[string]string{"occasion": "wedding", "season": "summer"},
		Confidence:       0.85,
	}
}

func newTestEngine(agents AgentGateway, retriever Retriever, strategy RoutingStrategy) (*Engine, *admission.Controller) {
	ctrl := admission.NewController(config.CostConfig{
		ServiceName:               "test",
		DailyBudgetUSD:            100,
		MaxQueryCostUSD:           1,
		CostPerThousandQueriesUSD: 0.50,
	}, nil)
	e := NewEngine(
		ctrl, agents, retriever,
		composer.NewComposer(), ranker.NewRanker(), safety.NewValidator(),
		strategy,
		config.PipelineConfig{MaxBundles: 5, MaxRankedResults: 10, StageTimeout: time.Second},
	)
	return e, ctrl
}

func stageNames(records []model.StageRecord) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Stage
	}
	return names
}

func TestExecute_SimplePathSkipsEnrichmentAndBundling(t *testing.T) {
	agents := &fakeAgents{intent: searchIntent()}
	retriever := &fakeRetriever{candidates: wardrobe()}
	e, _ := newTestEngine(agents, retriever, FineGrainedStrategy{})

	req := model.NewPipelineRequest("req-1", "blue dress")
	result, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.Equal(t, []string{
		string(StageQueryUnderstanding),
		string(StageRetrieval),
		string(StageSafetyValidation),
		string(StageResponseAssembly),
	}, stageNames(result.Trace))

	// 简单路径：候选包装为单件结果，按名次连续编号
	require.Len(t, result.Results, 4)
	for i, look := range result.Results {
		assert.Equal(t, i+1, look.Rank)
		assert.Len(t, look.Bundle.Items, 1)
	}
	assert.Equal(t, model.RouteSimple, req.Routing.RouteKind)
}

func TestExecute_ComplexPathRunsFullPipeline(t *testing.T) {
	agents := &fakeAgents{intent: outfitIntent()}
	retriever := &fakeRetriever{candidates: wardrobe()}
	e, _ := newTestEngine(agents, retriever, FineGrainedStrategy{})

	req := model.NewPipelineRequest("req-2", "beach wedding in July")
	result, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Success)

	assert.Equal(t, []string{
		string(StageQueryUnderstanding),
		string(StageContextEnrichment),
		string(StageTrendEnrichment),
		string(StageRetrieval),
		string(StageBundleComposition),
		string(StageRanking),
		string(StageSafetyValidation),
		string(StageResponseAssembly),
	}, stageNames(result.Trace))

	// 趋势信号贯穿检索
	require.NotNil(t, retriever.gotTrend)
	assert.Equal(t, []string{"boho"}, retriever.gotTrend.TrendingStyles)
	assert.Equal(t, "summer", retriever.gotTrend.Season)

	require.NotEmpty(t, result.Results)
	for i, look := range result.Results {
		assert.Equal(t, i+1, look.Rank)
		assert.GreaterOrEqual(t, len(look.Bundle.Items), 2)
	}
	assert.Equal(t, model.RouteComplex, req.Routing.RouteKind)
}

func TestExecute_CoarseStrategyTreatsContextQueriesAsComplex(t *testing.T) {
	intent := searchIntent()
	intent.Attributes = map[string]string{"occasion": "wedding"}
	agents := &fakeAgents{intent: intent}
	retriever := &fakeRetriever{candidates: wardrobe()}
	e, _ := newTestEngine(agents, retriever, CoarseStrategy{})

	req := model.NewPipelineRequest("req-3", "dress for a wedding")
	result, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Success)

	// 粗粒度路由：复杂请求固定经过上下文与趋势补全
	names := stageNames(result.Trace)
	assert.Contains(t, names, string(StageContextEnrichment))
	assert.Contains(t, names, string(StageTrendEnrichment))
	assert.Equal(t, model.RouteComplex, req.Routing.RouteKind)
}

func TestExecute_ClarificationEarlyExit(t *testing.T) {
	intent := searchIntent()
	intent.ClarificationSignals = []string{"missing occasion"}
	agents := &fakeAgents{intent: intent}
	retriever := &fakeRetriever{candidates: wardrobe()}
	e, _ := newTestEngine(agents, retriever, FineGrainedStrategy{})

	req := model.NewPipelineRequest("req-4", "something nice")
	result, err := e.Execute(context.Background(), req)
	require.NoError(t, err)

	// 提前终止是成功而非错误
	assert.True(t, result.Success)
	assert.True(t, result.ClarificationNeeded)
	assert.Equal(t, []string{"What is the occasion?"}, result.Questions)
	assert.Empty(t, result.Results)

	names := stageNames(result.Trace)
	assert.Contains(t, names, string(StageClarification))
	assert.NotContains(t, names, string(StageRetrieval))
}

func TestExecute_ClarifyingAnswersResumePipeline(t *testing.T) {
	intent := searchIntent()
	intent.ClarificationSignals = []string{"missing occasion"}
	agents := &fakeAgents{intent: intent}
	retriever := &fakeRetriever{candidates: wardrobe()}
	e, _ := newTestEngine(agents, retriever, FineGrainedStrategy{})

	req := model.NewPipelineRequest("req-5", "something nice")
	req.ClarifyingAnswers = map[string]string{"occasion": "wedding"}
	result, err := e.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.ClarificationNeeded)
	assert.NotEmpty(t, result.Results)
	assert.Contains(t, stageNames(result.Trace), string(StageRetrieval))
}

func TestExecute_StageErrorTerminatesWithTrace(t *testing.T) {
	agents := &fakeAgents{analyzeErr: errors.New("agent unavailable")}
	retriever := &fakeRetriever{candidates: wardrobe()}
	e, _ := newTestEngine(agents, retriever, FineGrainedStrategy{})

	req := model.NewPipelineRequest("req-6", "blue dress")
	result, err := e.Execute(context.Background(), req)
	require.Error(t, err)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)

	// 失败阶段成为轨迹终点，下游阶段不执行
	require.Len(t, result.Trace, 1)
	assert.Equal(t, string(StageQueryUnderstanding), result.Trace[0].Stage)
	assert.Equal(t, model.StageStatusError, result.Trace[0].Status)
	assert.NotEmpty(t, result.Trace[0].Error)
}

func TestExecute_RetrievalErrorSurfacesDownstreamCode(t *testing.T) {
	agents := &fakeAgents{intent: searchIntent()}
	retriever := &fakeRetriever{err: apperrors.ErrCircuitBreakerOpen}
	e, _ := newTestEngine(agents, retriever, FineGrainedStrategy{})

	req := model.NewPipelineRequest("req-7", "blue dress")
	result, err := e.Execute(context.Background(), req)
	require.Error(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, apperrors.CodeCircuitBreakerOpen, apperrors.AsAppError(err).Code)
}

func TestExecute_KillSwitchRejectsAtAdmission(t *testing.T) {
	agents := &fakeAgents{intent: searchIntent()}
	retriever := &fakeRetriever{candidates: wardrobe()}
	e, ctrl := newTestEngine(agents, retriever, FineGrainedStrategy{})
	ctrl.SetKillSwitch(true)

	req := model.NewPipelineRequest("req-8", "blue dress")
	result, err := e.Execute(context.Background(), req)
	require.Error(t, err)

	assert.False(t, result.Success)
	assert.Empty(t, result.Trace, "拒绝的请求不执行任何阶段")
	assert.Equal(t, apperrors.CodeKillSwitchActive, apperrors.AsAppError(err).Code)

	// 拒绝同样按估算值记账一次
	assert.Equal(t, int64(1), ctrl.Metrics(context.Background()).DailyQueries)
	assert.Equal(t, result.EstimatedCost, result.ActualCost)
}

func TestExecute_CostRecordedExactlyOnce(t *testing.T) {
	agents := &fakeAgents{intent: searchIntent()}
	retriever := &fakeRetriever{candidates: wardrobe()}
	e, ctrl := newTestEngine(agents, retriever, FineGrainedStrategy{})
	ctx := context.Background()

	req := model.NewPipelineRequest("req-9", "blue dress")
	_, err := e.Execute(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), ctrl.Metrics(ctx).DailyQueries)

	// 失败请求同样恰好记账一次
	failing := &fakeAgents{analyzeErr: errors.New("boom")}
	e2, ctrl2 := newTestEngine(failing, retriever, FineGrainedStrategy{})
	req2 := model.NewPipelineRequest("req-10", "blue dress")
	_, err = e2.Execute(ctx, req2)
	require.Error(t, err)
	assert.Equal(t, int64(1), ctrl2.Metrics(ctx).DailyQueries)

	// 准入拒绝的请求也恰好记账一次
	e3, ctrl3 := newTestEngine(agents, retriever, FineGrainedStrategy{})
	ctrl3.SetKillSwitch(true)
	req3 := model.NewPipelineRequest("req-10b", "blue dress")
	_, err = e3.Execute(ctx, req3)
	require.Error(t, err)
	assert.Equal(t, int64(1), ctrl3.Metrics(ctx).DailyQueries)
}

func TestExecute_EmptyCompositionIsNotAnError(t *testing.T) {
	// 单类目候选凑不出搭配：复杂路径产出空结果但执行成功
	agents := &fakeAgents{intent: outfitIntent()}
	retriever := &fakeRetriever{candidates: []model.SearchCandidate{
		testCandidate("c1", "clothing", 0.9),
		testCandidate("c2", "clothing", 0.8),
	}}
	e, _ := newTestEngine(agents, retriever, FineGrainedStrategy{})

	req := model.NewPipelineRequest("req-11", "full outfit")
	result, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Results)
}

func TestExecute_ComparisonIntentRanksWrappedCandidates(t *testing.T) {
	// 单实体比价意图：不需要组合但需要排序
	intent := &model.QueryIntent{
		IntentType:       model.IntentComparison,
		DetectedEntities: []string{"dress"},
		Confidence:       0.9,
	}
	agents := &fakeAgents{intent: intent}
	retriever := &fakeRetriever{candidates: wardrobe()}
	e, _ := newTestEngine(agents, retriever, FineGrainedStrategy{})

	req := model.NewPipelineRequest("req-13", "which dress is better")
	result, err := e.Execute(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Success)

	// 跳过组合，直接进入排序
	assert.Equal(t, []string{
		string(StageQueryUnderstanding),
		string(StageRetrieval),
		string(StageRanking),
		string(StageSafetyValidation),
		string(StageResponseAssembly),
	}, stageNames(result.Trace))
	assert.True(t, req.Routing.NeedsRanking)
	assert.False(t, req.Routing.NeedsBundling)

	// 单件包装结果经过六项加权评分而非仅按相似度排序
	require.Len(t, result.Results, 4)
	for i, look := range result.Results {
		assert.Equal(t, i+1, look.Rank)
		require.Len(t, look.Bundle.Items, 1)
		assert.Equal(t, model.ThemeSingleItem, look.Bundle.StyleTheme)
		assert.Len(t, look.ScoreBreakdown, 6)
	}
}

func TestRoutingDecision_ComputedOnce(t *testing.T) {
	agents := &fakeAgents{intent: searchIntent()}
	retriever := &fakeRetriever{candidates: wardrobe()}
	e, _ := newTestEngine(agents, retriever, FineGrainedStrategy{})

	req := model.NewPipelineRequest("req-12", "blue dress")
	_, err := e.Execute(context.Background(), req)
	require.NoError(t, err)

	first := req.Routing
	decideOnce(FineGrainedStrategy{}, req)
	assert.Same(t, first, req.Routing, "路由决策按请求只计算一次")
}

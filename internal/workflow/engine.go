package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agentic-search-api/internal/application/admission"
	"agentic-search-api/internal/application/composer"
	"agentic-search-api/internal/application/ranker"
	"agentic-search-api/internal/application/safety"
	"agentic-search-api/internal/config"
	"agentic-search-api/internal/domain/model"
	"agentic-search-api/pkg/errors"
	"agentic-search-api/pkg/logger"
	"agentic-search-api/pkg/metrics"
	"agentic-search-api/pkg/tracer"
)

// stageFunc 阶段函数：对请求状态做一次变换
type stageFunc func(ctx context.Context, req *model.PipelineRequest) error

// routerFunc 条件节点的路由函数：决定下一阶段
type routerFunc func(req *model.PipelineRequest) StageName

// node 图节点：阶段函数与出边路由
type node struct {
	run   stageFunc
	route routerFunc
}

// AgentGateway 协作方智能体调用接口
type AgentGateway interface {
	Analyze(ctx context.Context, query string, userCtx *model.UserContext) (*model.QueryIntent, error)
	GenerateQuestions(ctx context.Context, intent *model.QueryIntent, userCtx *model.UserContext) (*model.ClarificationRequest, error)
	EnrichContext(ctx context.Context, query string) (*model.ContextualQuery, error)
	EnrichTrends(ctx context.Context, contextual *model.ContextualQuery) (*model.TrendEnrichedQuery, error)
}

// Retriever 候选检索接口
type Retriever interface {
	Search(ctx context.Context, query string, filters model.SearchFilters, trend *model.TrendSignals, maxResults int) ([]model.SearchCandidate, error)
}

// Engine 管道编排引擎
// 显式的命名阶段有向图，由解释循环驱动；
// 阶段错误被捕获为终止性轨迹记录，不会使进程崩溃。
type Engine struct {
	admission *admission.Controller
	agents    AgentGateway
	retrieval Retriever
	composer  *composer.Composer
	ranker    *ranker.Ranker
	safety    *safety.Validator
	strategy  RoutingStrategy
	cfg       config.PipelineConfig

	nodes map[StageName]node
}

// NewEngine 创建编排引擎
func NewEngine(
	admissionCtrl *admission.Controller,
	agentsClient AgentGateway,
	retrievalEngine Retriever,
	bundleComposer *composer.Composer,
	lookRanker *ranker.Ranker,
	safetyValidator *safety.Validator,
	strategy RoutingStrategy,
	cfg config.PipelineConfig,
) *Engine {
	e := &Engine{
		admission: admissionCtrl,
		agents:    agentsClient,
		retrieval: retrievalEngine,
		composer:  bundleComposer,
		ranker:    lookRanker,
		safety:    safetyValidator,
		strategy:  strategy,
		cfg:       cfg,
	}
	e.nodes = map[StageName]node{
		StageQueryUnderstanding: {run: e.runQueryUnderstanding, route: e.routeAfterUnderstanding},
		StageClarification:      {run: e.runClarification, route: e.routeAfterClarification},
		StageContextEnrichment:  {run: e.runContextEnrichment, route: e.routeAfterContext},
		StageTrendEnrichment:    {run: e.runTrendEnrichment, route: routeTo(StageRetrieval)},
		StageRetrieval:          {run: e.runRetrieval, route: e.routeAfterRetrieval},
		StageBundleComposition:  {run: e.runBundleComposition, route: e.routeAfterComposition},
		StageRanking:            {run: e.runRanking, route: routeTo(StageSafetyValidation)},
		StageSafetyValidation:   {run: e.runSafetyValidation, route: routeTo(StageResponseAssembly)},
		StageResponseAssembly:   {run: e.runResponseAssembly, route: routeTo(StageEnd)},
	}
	return e
}

// StrategyName 当前路由策略名
func (e *Engine) StrategyName() string {
	return e.strategy.Name()
}

// Stages 返回图中注册的阶段名，按典型执行序
func (e *Engine) Stages() []StageName {
	order := []StageName{
		StageQueryUnderstanding,
		StageClarification,
		StageContextEnrichment,
		StageTrendEnrichment,
		StageRetrieval,
		StageBundleComposition,
		StageRanking,
		StageSafetyValidation,
		StageResponseAssembly,
	}
	out := make([]StageName, 0, len(order))
	for _, name := range order {
		if _, ok := e.nodes[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// Execute 执行一次管道调用
// 准入检查在入口执行；无论成败，成本恰好记账一次。
// 准入拒绝与阶段失败通过 error 返回，结果始终携带执行轨迹。
func (e *Engine) Execute(ctx context.Context, req *model.PipelineRequest) (*model.PipelineResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Execute")
	defer span.End()

	start := time.Now()
	req.EstimatedCost = e.admission.EstimateQueryCost(1)

	if allowed, reason := e.admission.CanProceed(ctx, req.EstimatedCost); !allowed {
		// 拒绝的请求同样按估算值记账：每个请求恰好记账一次，含失败与拒绝
		req.ActualCost = req.EstimatedCost
		e.admission.RecordCost(ctx, req.ActualCost)
		metrics.PipelineExecutionsTotal.WithLabelValues("none", "rejected").Inc()
		rejectErr := admissionError(reason)
		return &model.PipelineResult{
			Trace:                req.Trace.Records(),
			TotalExecutionTimeMs: time.Since(start).Milliseconds(),
			EstimatedCost:        req.EstimatedCost,
			ActualCost:           req.ActualCost,
			Success:              false,
			ErrorMessage:         rejectErr.Message,
		}, rejectErr
	}

	// 实际成本未知时以估算值记账
	req.ActualCost = req.EstimatedCost
	defer e.admission.RecordCost(ctx, req.ActualCost)

	stageErr := e.interpret(ctx, req)

	result := e.assembleResult(req, start, stageErr)
	mode := string(model.RouteComplex)
	if req.Routing != nil {
		mode = string(req.Routing.RouteKind)
	}
	status := "success"
	if !result.Success {
		status = "error"
	} else if result.ClarificationNeeded {
		status = "clarification"
	}
	metrics.PipelineExecutionsTotal.WithLabelValues(mode, status).Inc()
	return result, stageErr
}

// admissionError 将准入拒绝原因映射为应用错误
func admissionError(reason string) *errors.AppError {
	switch reason {
	case admission.ReasonKillSwitch:
		return errors.New(errors.CodeKillSwitchActive, reason)
	case admission.ReasonQueryCost:
		return errors.New(errors.CodeQueryCostTooHigh, reason)
	default:
		return errors.New(errors.CodeBudgetExceeded, reason)
	}
}

// interpret 解释循环：沿路由边逐阶段执行，记录轨迹
func (e *Engine) interpret(ctx context.Context, req *model.PipelineRequest) error {
	current := StageQueryUnderstanding
	for current != StageEnd {
		n, ok := e.nodes[current]
		if !ok {
			return fmt.Errorf("unknown stage %q", current)
		}

		if err := e.runStage(ctx, current, n.run, req); err != nil {
			// 阶段失败即终止，错误在响应中呈现，不再调用下游阶段
			return err
		}
		if err := ctx.Err(); err != nil {
			// 调用方取消：放弃在途工作，已完成的轨迹与成本照常保留
			return err
		}
		current = n.route(req)
	}
	return nil
}

// runStage 执行单阶段：超时约束、轨迹记录与指标上报
func (e *Engine) runStage(ctx context.Context, name StageName, run stageFunc, req *model.PipelineRequest) error {
	stageCtx := logger.WithContext(ctx, logger.StageKey, string(name))
	if e.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(stageCtx, e.cfg.StageTimeout)
		defer cancel()
	}
	stageCtx, span := tracer.Start(stageCtx, "stage."+string(name))
	defer span.End()

	started := time.Now()
	err := run(stageCtx, req)
	completed := time.Now()

	rec := model.StageRecord{
		Stage:       string(name),
		Status:      model.StageStatusSuccess,
		StartedAt:   started,
		CompletedAt: completed,
		DurationMs:  completed.Sub(started).Milliseconds(),
		Summary:     e.summarize(name, req),
	}
	if err != nil {
		rec.Status = model.StageStatusError
		if stageCtx.Err() == context.DeadlineExceeded {
			rec.Status = model.StageStatusTimeout
		}
		rec.Error = err.Error()
		span.RecordError(err)
		logger.Error(stageCtx, "pipeline stage failed", err, "request_id", req.RequestID)
	}
	req.Trace.Append(rec)

	metrics.PipelineStageDuration.WithLabelValues(string(name)).Observe(completed.Sub(started).Seconds())
	metrics.PipelineStageTotal.WithLabelValues(string(name), string(rec.Status)).Inc()
	return err
}

// summarize 阶段输出摘要，进入执行轨迹
func (e *Engine) summarize(name StageName, req *model.PipelineRequest) string {
	switch name {
	case StageQueryUnderstanding:
		if req.Intent != nil {
			return fmt.Sprintf("intent=%s entities=%d", req.Intent.IntentType, len(req.Intent.DetectedEntities))
		}
	case StageClarification:
		if req.Clarification != nil {
			return fmt.Sprintf("questions=%d", len(req.Clarification.Questions))
		}
	case StageContextEnrichment:
		if req.Contextual != nil {
			return fmt.Sprintf("season=%s location=%s", req.Contextual.Season, req.Contextual.Location)
		}
	case StageTrendEnrichment:
		if req.Trend != nil {
			return fmt.Sprintf("styles=%d confidence=%.2f", len(req.Trend.TrendingStyles), req.Trend.Confidence)
		}
	case StageRetrieval:
		return fmt.Sprintf("candidates=%d", len(req.Candidates))
	case StageBundleComposition:
		return fmt.Sprintf("bundles=%d", len(req.Bundles))
	case StageRanking:
		return fmt.Sprintf("ranked=%d", len(req.Ranked))
	case StageSafetyValidation:
		return fmt.Sprintf("approved=%d", len(req.Ranked))
	case StageResponseAssembly:
		return fmt.Sprintf("results=%d", len(req.Ranked))
	}
	return ""
}

// ---- 阶段函数 ----

func (e *Engine) runQueryUnderstanding(ctx context.Context, req *model.PipelineRequest) error {
	intent, err := e.agents.Analyze(ctx, req.Query, req.UserContext)
	if err != nil {
		return errors.Wrap(err, errors.CodeUnderstandingFailed, "query understanding failed")
	}
	req.Intent = intent
	return nil
}

func (e *Engine) runClarification(ctx context.Context, req *model.PipelineRequest) error {
	clarification, err := e.agents.GenerateQuestions(ctx, req.Intent, req.UserContext)
	if err != nil {
		return errors.Wrap(err, errors.CodeAgentError, "clarification generation failed")
	}
	req.Clarification = clarification
	return nil
}

func (e *Engine) runContextEnrichment(ctx context.Context, req *model.PipelineRequest) error {
	contextual, err := e.agents.EnrichContext(ctx, req.Query)
	if err != nil {
		return errors.Wrap(err, errors.CodeAgentError, "context enrichment failed")
	}
	req.Contextual = contextual
	return nil
}

func (e *Engine) runTrendEnrichment(ctx context.Context, req *model.PipelineRequest) error {
	enriched, err := e.agents.EnrichTrends(ctx, req.Contextual)
	if err != nil {
		return errors.Wrap(err, errors.CodeAgentError, "trend enrichment failed")
	}
	req.Trend = enriched.Signals(req.Contextual)
	return nil
}

func (e *Engine) runRetrieval(ctx context.Context, req *model.PipelineRequest) error {
	candidates, err := e.retrieval.Search(ctx, req.Query, req.Filters, req.Trend, req.MaxResults)
	if err != nil {
		return err
	}
	req.Candidates = candidates
	return nil
}

func (e *Engine) runBundleComposition(ctx context.Context, req *model.PipelineRequest) error {
	// 组合不出有效搭配不是错误，产出空集即可
	req.Bundles = e.composer.Compose(req.Candidates, e.explicitThemes(req), e.cfg.MaxBundles, req.Trend)
	return nil
}

// explicitThemes 意图属性中显式给出的主题
func (e *Engine) explicitThemes(req *model.PipelineRequest) []string {
	if req.Intent == nil {
		return nil
	}
	theme, ok := req.Intent.Attributes["theme"]
	if !ok || theme == "" {
		return nil
	}
	parts := strings.Split(theme, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(strings.ToLower(p)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (e *Engine) runRanking(ctx context.Context, req *model.PipelineRequest) error {
	var prefs *model.UserPreferences
	if req.UserContext != nil {
		prefs = &req.UserContext.Preferences
	}
	bundles := req.Bundles
	if len(bundles) == 0 && req.Routing != nil && !req.Routing.NeedsBundling {
		// 跳过组合但要求排序（如比价意图）：候选单件包装后参与加权评分
		bundles = singleItemBundles(req.Candidates)
	}
	req.Ranked = e.ranker.Rank(bundles, prefs, req.Trend, e.cfg.MaxRankedResults)
	return nil
}

// singleItemBundles 候选包装为单件搭配，连贯度取相似度
func singleItemBundles(candidates []model.SearchCandidate) []model.LookBundle {
	bundles := make([]model.LookBundle, len(candidates))
	for i, cand := range candidates {
		b := model.LookBundle{
			ID:             fmt.Sprintf("single-%s", cand.Product.ID),
			Name:           cand.Product.Name,
			StyleTheme:     model.ThemeSingleItem,
			Items:          []model.SearchCandidate{cand},
			CoherenceScore: cand.SimilarityScore,
			StyleCoherence: cand.SimilarityScore,
			ColorHarmony:   cand.SimilarityScore,
		}
		b.RecomputeDerived()
		bundles[i] = b
	}
	return bundles
}

func (e *Engine) runSafetyValidation(ctx context.Context, req *model.PipelineRequest) error {
	if req.Ranked == nil && len(req.Bundles) == 0 {
		// 未经过搭配组合的简单路径：直接校验候选，结果在装配阶段包装
		req.Candidates = e.safety.ValidateCandidates(req.Candidates, req.UserContext)
		return nil
	}
	req.Ranked = e.safety.Validate(req.Ranked, req.UserContext)
	return nil
}

func (e *Engine) runResponseAssembly(ctx context.Context, req *model.PipelineRequest) error {
	if req.Ranked == nil {
		req.Ranked = wrapCandidates(req.Candidates, e.cfg.MaxRankedResults)
	}
	return nil
}

// wrapCandidates 简单路径：候选按相似度包装为单件结果
func wrapCandidates(candidates []model.SearchCandidate, maxResults int) []model.RankedLook {
	if maxResults > 0 && len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	ranked := make([]model.RankedLook, len(candidates))
	for i, cand := range candidates {
		bundle := model.LookBundle{
			ID:         fmt.Sprintf("single-%s", cand.Product.ID),
			Name:       cand.Product.Name,
			StyleTheme: model.ThemeSingleItem,
			Items:      []model.SearchCandidate{cand},
		}
		bundle.RecomputeDerived()
		ranked[i] = model.RankedLook{
			Bundle:               bundle,
			FinalScore:           cand.SimilarityScore,
			Rank:                 i + 1,
			Confidence:           cand.SimilarityScore,
			RecommendationReason: cand.MatchReason,
		}
	}
	return ranked
}

// ---- 路由函数 ----

// routeTo 无条件出边
func routeTo(next StageName) routerFunc {
	return func(*model.PipelineRequest) StageName { return next }
}

// routeAfterUnderstanding 理解后的路由：澄清优先，其余按策略决策
func (e *Engine) routeAfterUnderstanding(req *model.PipelineRequest) StageName {
	if req.Intent != nil && len(req.Intent.ClarificationSignals) > 0 {
		return StageClarification
	}
	return e.routeByDecision(req)
}

// routeAfterClarification 澄清分支
// 已提供澄清回答则恢复正常路由，否则提前终止（成功，无错误）。
func (e *Engine) routeAfterClarification(req *model.PipelineRequest) StageName {
	if len(req.ClarifyingAnswers) > 0 {
		return e.routeByDecision(req)
	}
	if req.Clarification != nil && req.Clarification.NeedsClarification {
		return StageEnd
	}
	return e.routeByDecision(req)
}

func (e *Engine) routeAfterContext(req *model.PipelineRequest) StageName {
	if req.Routing.NeedsTrend {
		return StageTrendEnrichment
	}
	return StageRetrieval
}

func (e *Engine) routeAfterRetrieval(req *model.PipelineRequest) StageName {
	if req.Routing == nil {
		return StageSafetyValidation
	}
	if req.Routing.NeedsBundling {
		return StageBundleComposition
	}
	if req.Routing.NeedsRanking {
		// 组合被跳过时排序直接作用于单件包装结果
		return StageRanking
	}
	return StageSafetyValidation
}

func (e *Engine) routeAfterComposition(req *model.PipelineRequest) StageName {
	if req.Routing.NeedsRanking {
		return StageRanking
	}
	return StageSafetyValidation
}

// routeByDecision 按路由决策进入第一个需要的阶段
func (e *Engine) routeByDecision(req *model.PipelineRequest) StageName {
	decision := decideOnce(e.strategy, req)
	if decision.NeedsContext {
		return StageContextEnrichment
	}
	if decision.NeedsTrend {
		return StageTrendEnrichment
	}
	return StageRetrieval
}

// assembleResult 构建最终响应
func (e *Engine) assembleResult(req *model.PipelineRequest, start time.Time, stageErr error) *model.PipelineResult {
	result := &model.PipelineResult{
		Trace:                req.Trace.Records(),
		TotalExecutionTimeMs: time.Since(start).Milliseconds(),
		EstimatedCost:        req.EstimatedCost,
		ActualCost:           req.ActualCost,
	}

	if stageErr != nil {
		result.Success = false
		result.ErrorMessage = stageErr.Error()
		// 业务语义允许时，部分结果优于不透明失败
		result.Results = req.Ranked
		return result
	}

	// 澄清分支提前终止：成功、无错误、携带待澄清问题
	if req.Clarification != nil && req.Clarification.NeedsClarification && len(req.ClarifyingAnswers) == 0 {
		result.Success = true
		result.ClarificationNeeded = true
		result.Questions = append([]string(nil), req.Clarification.Questions...)
		return result
	}

	result.Success = true
	result.Results = req.Ranked
	if result.Results == nil {
		result.Results = []model.RankedLook{}
	}
	return result
}

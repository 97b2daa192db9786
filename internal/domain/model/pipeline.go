package model

import (
	"sync"
	"time"
)

// StageStatus 阶段执行状态
type StageStatus string

const (
	StageStatusSuccess StageStatus = "success"
	StageStatusError   StageStatus = "error"
	StageStatusTimeout StageStatus = "timeout"
)

// StageRecord 单个阶段的执行记录
type StageRecord struct {
	Stage       string      `json:"stage"`
	Status      StageStatus `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at"`
	DurationMs  int64       `json:"duration_ms"`
	Summary     string      `json:"summary,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// ExecutionTrace 请求级执行轨迹，只追加不修改
type ExecutionTrace struct {
	mu      sync.Mutex
	records []StageRecord
}

// Append 追加一条阶段记录
func (t *ExecutionTrace) Append(rec StageRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, rec)
}

// Records 返回记录的副本
func (t *ExecutionTrace) Records() []StageRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]StageRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Len 返回记录数
func (t *ExecutionTrace) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// RouteKind 路由粗分类
type RouteKind string

const (
	RouteSimple  RouteKind = "simple"
	RouteComplex RouteKind = "complex"
)

// RoutingDecision 路由决策：按请求计算一次，之后不可变
type RoutingDecision struct {
	RouteKind     RouteKind `json:"route_kind"`
	NeedsContext  bool      `json:"needs_context"`
	NeedsTrend    bool      `json:"needs_trend"`
	NeedsBundling bool      `json:"needs_bundling"`
	NeedsRanking  bool      `json:"needs_ranking"`
}

// PipelineRequest 单次管道调用的请求状态
// 由一次 Workflow 调用独占，响应产出后即废弃。
type PipelineRequest struct {
	RequestID   string        `json:"request_id"`
	Query       string        `json:"query"`
	ArrivedAt   time.Time     `json:"arrived_at"`
	MaxResults  int           `json:"max_results"`
	Filters     SearchFilters `json:"filters,omitempty"`
	UserContext *UserContext  `json:"user_context,omitempty"`

	// ClarifyingAnswers 调用方对澄清问题的回答，非空时澄清分支继续正常路由
	ClarifyingAnswers map[string]string `json:"clarifying_answers,omitempty"`

	// Metadata 路由与阶段间传递的元数据
	Metadata map[string]any `json:"metadata,omitempty"`

	// 各阶段产出的中间状态
	Intent        *QueryIntent          `json:"intent,omitempty"`
	Clarification *ClarificationRequest `json:"clarification,omitempty"`
	Contextual    *ContextualQuery      `json:"contextual,omitempty"`
	Trend         *TrendSignals         `json:"trend,omitempty"`
	Candidates    []SearchCandidate     `json:"candidates,omitempty"`
	Bundles       []LookBundle          `json:"bundles,omitempty"`
	Ranked        []RankedLook          `json:"ranked,omitempty"`
	Routing       *RoutingDecision      `json:"routing,omitempty"`

	Trace         *ExecutionTrace `json:"-"`
	EstimatedCost float64         `json:"estimated_cost"`
	ActualCost    float64         `json:"actual_cost"`
}

// NewPipelineRequest 创建管道请求状态
func NewPipelineRequest(requestID, query string) *PipelineRequest {
	return &PipelineRequest{
		RequestID: requestID,
		Query:     query,
		ArrivedAt: time.Now(),
		Metadata:  make(map[string]any),
		Trace:     &ExecutionTrace{},
	}
}

// PipelineResult 管道执行结果
type PipelineResult struct {
	Results              []RankedLook  `json:"results"`
	Trace                []StageRecord `json:"execution_trace"`
	TotalExecutionTimeMs int64         `json:"total_execution_time_ms"`
	EstimatedCost        float64       `json:"estimated_cost"`
	ActualCost           float64       `json:"actual_cost"`
	Success              bool          `json:"success"`
	ErrorMessage         string        `json:"error_message,omitempty"`

	// ClarificationNeeded 为真时 Questions 携带待澄清问题，不视为错误
	ClarificationNeeded bool     `json:"clarification_needed,omitempty"`
	Questions           []string `json:"questions,omitempty"`
}

// Package metrics 提供 Prometheus 指标采集功能
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "agentic_search"
)

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// 管道执行指标
	PipelineExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "executions_total",
			Help:      "Total number of pipeline executions",
		},
		[]string{"mode", "status"}, // mode: simple/full, status: success/error/clarification
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"stage"},
	)

	PipelineStageTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_total",
			Help:      "Total number of pipeline stage executions",
		},
		[]string{"stage", "status"},
	)

	// 检索指标
	RetrievalResultCount = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retrieval",
			Name:      "result_count",
			Help:      "Number of candidates returned per retrieval",
			Buckets:   []float64{0, 5, 10, 20, 50, 100},
		},
		[]string{"source"}, // source: cache/milvus
	)

	MilvusSearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "milvus",
			Name:      "search_duration_seconds",
			Help:      "Milvus search duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1},
		},
		[]string{"collection"},
	)

	MilvusSearchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "milvus",
			Name:      "search_total",
			Help:      "Total number of Milvus searches",
		},
		[]string{"collection", "status"},
	)

	// 缓存指标
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Total number of cache operations",
		},
		[]string{"cache", "result"}, // cache: embedding/result, result: hit/miss/evict
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of cache entries",
		},
		[]string{"cache"},
	)

	// 熔断器指标
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "transitions_total",
			Help:      "Total number of circuit breaker state transitions",
		},
		[]string{"name", "to"},
	)

	// 成本指标
	CostSpendUSD = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cost",
			Name:      "daily_spend_usd",
			Help:      "Accumulated daily spend in USD",
		},
		[]string{"service"},
	)

	CostRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cost",
			Name:      "rejections_total",
			Help:      "Total number of requests rejected by the cost guard",
		},
		[]string{"reason"}, // reason: budget/kill_switch/query_cost
	)

	CostQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cost",
			Name:      "queries_total",
			Help:      "Total number of admitted queries",
		},
		[]string{"service"},
	)

	// 安全校验指标
	SafetyValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "safety",
			Name:      "validations_total",
			Help:      "Total number of safety validations",
		},
		[]string{"status"}, // status: approved/rejected
	)

	// 外部协作方指标
	AgentCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "call_duration_seconds",
			Help:      "Collaborator agent call duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"agent"},
	)

	AgentCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "call_total",
			Help:      "Total number of collaborator agent calls",
		},
		[]string{"agent", "status"},
	)
)

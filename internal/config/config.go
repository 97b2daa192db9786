// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Agents        AgentsConfig        `yaml:"agents" mapstructure:"agents"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	Vector        VectorConfig        `yaml:"vector" mapstructure:"vector"`
	Embedding     EmbeddingConfig     `yaml:"embedding" mapstructure:"embedding"`
	Retrieval     RetrievalConfig     `yaml:"retrieval" mapstructure:"retrieval"`
	Pipeline      PipelineConfig      `yaml:"pipeline" mapstructure:"pipeline"`
	Cost          CostConfig          `yaml:"cost" mapstructure:"cost"`
	Breaker       BreakerConfig       `yaml:"breaker" mapstructure:"breaker"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// AgentsConfig 协作方智能体客户端配置
type AgentsConfig struct {
	// Timeout 单次调用超时
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Retry 重试退避配置
	Retry RetryConfig `yaml:"retry" mapstructure:"retry"`

	// QueryUnderstandingURL 查询理解服务地址
	QueryUnderstandingURL string `yaml:"query_understanding_url" mapstructure:"query_understanding_url"`
	// ClarificationURL 澄清服务地址
	ClarificationURL string `yaml:"clarification_url" mapstructure:"clarification_url"`
	// ContextEnrichmentURL 上下文补全服务地址
	ContextEnrichmentURL string `yaml:"context_enrichment_url" mapstructure:"context_enrichment_url"`
	// TrendEnrichmentURL 趋势信号服务地址
	TrendEnrichmentURL string `yaml:"trend_enrichment_url" mapstructure:"trend_enrichment_url"`
}

// RetryConfig 重试退避配置
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	Initial     time.Duration `yaml:"initial" mapstructure:"initial"`
	Max         time.Duration `yaml:"max" mapstructure:"max"`
	Multiplier  float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis     RedisConfig      `yaml:"redis" mapstructure:"redis"`
	Embedding LocalCacheConfig `yaml:"embedding" mapstructure:"embedding"`
	Result    LocalCacheConfig `yaml:"result" mapstructure:"result"`
}

// LocalCacheConfig 进程内 TTL 缓存配置
type LocalCacheConfig struct {
	TTL        time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MaxEntries int           `yaml:"max_entries" mapstructure:"max_entries"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// VectorConfig 向量数据库配置
type VectorConfig struct {
	Milvus MilvusConfig `yaml:"milvus" mapstructure:"milvus"`
}

// MilvusConfig Milvus 配置
type MilvusConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Collection         string `yaml:"collection" mapstructure:"collection"`
	IndexType          string `yaml:"index_type" mapstructure:"index_type"`
	MetricType         string `yaml:"metric_type" mapstructure:"metric_type"`
	HNSWM              int    `yaml:"hnsw_m" mapstructure:"hnsw_m"`
	HNSWEfConstruction int    `yaml:"hnsw_ef_construction" mapstructure:"hnsw_ef_construction"`
}

// EmbeddingConfig Embedding 配置
type EmbeddingConfig struct {
	Endpoint  string        `yaml:"endpoint" mapstructure:"endpoint"`
	Model     string        `yaml:"model" mapstructure:"model"`
	Dimension int           `yaml:"dimension" mapstructure:"dimension"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RetrievalConfig 检索配置
type RetrievalConfig struct {
	// DefaultMaxResults 未指定时的候选数上限
	DefaultMaxResults int `yaml:"default_max_results" mapstructure:"default_max_results"`
	// MaxResultsCap 候选数硬上限
	MaxResultsCap int `yaml:"max_results_cap" mapstructure:"max_results_cap"`
	// SearchTimeout 单次向量检索超时
	SearchTimeout time.Duration `yaml:"search_timeout" mapstructure:"search_timeout"`
}

// PipelineConfig 管道配置
type PipelineConfig struct {
	// MaxBundles 组合搭配数上限
	MaxBundles int `yaml:"max_bundles" mapstructure:"max_bundles"`
	// MaxRankedResults 最终返回结果数上限
	MaxRankedResults int `yaml:"max_ranked_results" mapstructure:"max_ranked_results"`
	// StageTimeout 单阶段超时
	StageTimeout time.Duration `yaml:"stage_timeout" mapstructure:"stage_timeout"`
}

// CostConfig 成本守卫配置
type CostConfig struct {
	// ServiceName redis 计数 key 中的服务标识
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// DailyBudgetUSD 每日预算（美元）
	DailyBudgetUSD float64 `yaml:"daily_budget_usd" mapstructure:"daily_budget_usd"`
	// MaxQueryCostUSD 单次查询成本上限（美元）
	MaxQueryCostUSD float64 `yaml:"max_query_cost_usd" mapstructure:"max_query_cost_usd"`
	// CostPerThousandQueriesUSD 每千次查询估算成本（美元）
	CostPerThousandQueriesUSD float64 `yaml:"cost_per_thousand_queries_usd" mapstructure:"cost_per_thousand_queries_usd"`
	// KillSwitch 紧急停止开关
	KillSwitch bool `yaml:"kill_switch" mapstructure:"kill_switch"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	// FailureThreshold 触发熔断的失败率阈值 [0,1]
	FailureThreshold float64 `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	// MinRequests 窗口内最少请求数（低于此数不评估失败率）
	MinRequests int `yaml:"min_requests" mapstructure:"min_requests"`
	// WindowSize 滑动窗口大小
	WindowSize int `yaml:"window_size" mapstructure:"window_size"`
	// OpenTimeout 熔断打开后进入半开前的等待时间
	OpenTimeout time.Duration `yaml:"open_timeout" mapstructure:"open_timeout"`
	// HalfOpenMaxCalls 半开状态允许的探测请求数
	HalfOpenMaxCalls int `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond int  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int  `yaml:"burst" mapstructure:"burst"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}

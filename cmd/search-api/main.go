// Package main 搜索 API 服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agentic-search-api/internal/application/admission"
	"agentic-search-api/internal/application/composer"
	"agentic-search-api/internal/application/ranker"
	"agentic-search-api/internal/application/retrieval"
	"agentic-search-api/internal/application/safety"
	"agentic-search-api/internal/config"
	"agentic-search-api/internal/domain/model"
	"agentic-search-api/internal/infrastructure/agents"
	"agentic-search-api/internal/infrastructure/cache"
	"agentic-search-api/internal/infrastructure/embedding"
	"agentic-search-api/internal/infrastructure/persistence/milvus"
	"agentic-search-api/internal/infrastructure/persistence/redis"
	"agentic-search-api/internal/infrastructure/resilience"
	"agentic-search-api/internal/interfaces/http/handler"
	"agentic-search-api/internal/interfaces/http/router"
	"agentic-search-api/internal/workflow"
	"agentic-search-api/pkg/logger"
	"agentic-search-api/pkg/tracer"

	"github.com/joho/godotenv"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting search-api",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// Redis：限流与成本账本（可选，不可达时本地降级）
	var (
		redisClient *redis.Client
		limiter     *redis.RateLimiter
		ledger      *redis.LedgerStore
	)
	redisClient, err = redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		log.Warn("redis unavailable, running with in-process cost ledger only", "error", err)
	} else {
		defer redisClient.Close()
		limiter = redis.NewRateLimiter(redisClient)
		ledger = redis.NewLedgerStore(redisClient, cfg.Cost.ServiceName)
	}

	// Milvus：检索的硬依赖
	milvusClient, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		logger.Fatal(ctx, "failed to connect milvus", err)
	}
	defer milvusClient.Close()

	milvusRepo := milvus.NewRepository(milvusClient)
	if err := milvusRepo.EnsureProductsCollection(ctx); err != nil {
		logger.Fatal(ctx, "failed to ensure products collection", err)
	}

	// 检索引擎：embedding + 向量近邻 + 双层缓存 + 熔断
	embCache := cache.NewTTLStore[[]float32]("embedding",
		cfg.Cache.Embedding.TTL, cfg.Cache.Embedding.MaxEntries)
	defer embCache.Close()
	resultCache := cache.NewTTLStore[[]model.SearchCandidate]("result",
		cfg.Cache.Result.TTL, cfg.Cache.Result.MaxEntries)
	defer resultCache.Close()

	breaker := resilience.NewCircuitBreaker("milvus", cfg.Breaker)
	retrievalEngine := retrieval.NewEngine(
		embedding.NewClient(&cfg.Embedding),
		milvus.NewRetrievalAdapter(milvusRepo),
		breaker,
		cfg.Agents.Retry,
		cfg.Retrieval,
		embCache,
		resultCache,
	)

	// 管道编排
	admissionCtrl := admission.NewController(cfg.Cost, ledger)
	engine := workflow.NewEngine(
		admissionCtrl,
		agents.NewClient(cfg.Agents),
		retrievalEngine,
		composer.NewComposer(),
		ranker.NewRanker(),
		safety.NewValidator(),
		workflow.FineGrainedStrategy{},
		cfg.Pipeline,
	)

	// HTTP 路由
	r := router.New(cfg, router.Handlers{
		Search:   handler.NewSearchHandler(engine),
		Health:   handler.NewHealthHandler(redisClient, milvusClient, admissionCtrl, Version),
		Cost:     handler.NewCostHandler(admissionCtrl),
		Pipeline: handler.NewPipelineHandler(engine),
	}, limiter)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}

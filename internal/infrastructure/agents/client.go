// Package agents 提供协作方智能体的类型化 HTTP 客户端
// 协作方（查询理解、澄清、上下文补全、趋势补全）只通过其输出契约被消费。
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"agentic-search-api/internal/config"
	"agentic-search-api/internal/domain/model"
	"agentic-search-api/internal/infrastructure/resilience"
	"agentic-search-api/pkg/metrics"
)

// Client 协作方客户端
type Client struct {
	cfg        config.AgentsConfig
	httpClient *http.Client
}

// NewClient 创建协作方客户端
func NewClient(cfg config.AgentsConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// analyzeRequest 查询理解请求
type analyzeRequest struct {
	Query       string             `json:"query"`
	UserContext *model.UserContext `json:"user_context,omitempty"`
}

// Analyze 调用查询理解能力
func (c *Client) Analyze(ctx context.Context, query string, userCtx *model.UserContext) (*model.QueryIntent, error) {
	var intent model.QueryIntent
	err := c.doPost(ctx, "query-understanding", c.cfg.QueryUnderstandingURL, "/analyze",
		&analyzeRequest{Query: query, UserContext: userCtx}, &intent)
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// clarifyRequest 澄清问题生成请求
type clarifyRequest struct {
	Intent      *model.QueryIntent `json:"intent"`
	UserContext *model.UserContext `json:"user_context,omitempty"`
}

// GenerateQuestions 调用澄清能力生成待澄清问题
func (c *Client) GenerateQuestions(ctx context.Context, intent *model.QueryIntent, userCtx *model.UserContext) (*model.ClarificationRequest, error) {
	var req model.ClarificationRequest
	err := c.doPost(ctx, "clarification", c.cfg.ClarificationURL, "/questions",
		&clarifyRequest{Intent: intent, UserContext: userCtx}, &req)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// enrichRequest 补全请求
type enrichRequest struct {
	Query string `json:"query"`
}

// EnrichContext 调用上下文补全能力
func (c *Client) EnrichContext(ctx context.Context, query string) (*model.ContextualQuery, error) {
	var out model.ContextualQuery
	err := c.doPost(ctx, "context-enrichment", c.cfg.ContextEnrichmentURL, "/enrich",
		&enrichRequest{Query: query}, &out)
	if err != nil {
		return nil, err
	}
	if out.Query == "" {
		out.Query = query
	}
	return &out, nil
}

// trendRequest 趋势补全请求
type trendRequest struct {
	Query    string `json:"query"`
	Season   string `json:"season,omitempty"`
	Location string `json:"location,omitempty"`
}

// EnrichTrends 调用趋势补全能力
func (c *Client) EnrichTrends(ctx context.Context, contextual *model.ContextualQuery) (*model.TrendEnrichedQuery, error) {
	req := &trendRequest{}
	if contextual != nil {
		req.Query = contextual.Query
		req.Season = contextual.Season
		req.Location = contextual.Location
	}
	var out model.TrendEnrichedQuery
	err := c.doPost(ctx, "trend-enrichment", c.cfg.TrendEnrichmentURL, "/enrich", req, &out)
	if err != nil {
		return nil, err
	}
	if out.Query == "" {
		out.Query = req.Query
	}
	return &out, nil
}

// doPost 发送请求并解析响应，按退避重试，附带指标上报
func (c *Client) doPost(ctx context.Context, agent, baseURL, path string, reqBody, respBody any) error {
	start := time.Now()
	err := resilience.WithRetry(ctx, c.cfg.Retry, func(ctx context.Context) error {
		return c.post(ctx, baseURL, path, reqBody, respBody)
	})
	metrics.AgentCallDuration.WithLabelValues(agent).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AgentCallTotal.WithLabelValues(agent, "error").Inc()
		return fmt.Errorf("%s call failed: %w", agent, err)
	}
	metrics.AgentCallTotal.WithLabelValues(agent, "success").Inc()
	return nil
}

func (c *Client) post(ctx context.Context, baseURL, path string, reqBody, respBody any) error {
	if baseURL == "" {
		return fmt.Errorf("endpoint not configured")
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("request failed: status=%d", httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

package agents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agentic-search-api/internal/config"
	"agentic-search-api/internal/domain/model"
)

func testAgentsConfig(baseURL string) config.AgentsConfig {
	return config.AgentsConfig{
		Timeout: time.Second,
		Retry: config.RetryConfig{
			MaxAttempts: 3,
			Initial:     time.Millisecond,
			Max:         5 * time.Millisecond,
			Multiplier:  2.0,
		},
		QueryUnderstandingURL: baseURL,
		ClarificationURL:      baseURL,
		ContextEnrichmentURL:  baseURL,
		TrendEnrichmentURL:    baseURL,
	}
}

func TestAnalyze_RetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"intent_type":"search","confidence":0.9}`))
	}))
	defer srv.Close()

	c := NewClient(testAgentsConfig(srv.URL))
	intent, err := c.Analyze(context.Background(), "blue dress", nil)
	require.NoError(t, err)

	assert.Equal(t, model.IntentSearch, intent.IntentType)
	assert.Equal(t, int32(3), hits.Load(), "前两次失败应按退避重试")
}

func TestAnalyze_ExhaustsRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(testAgentsConfig(srv.URL))
	_, err := c.Analyze(context.Background(), "blue dress", nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestEnrichContext_FallsBackToOriginalQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"season":"summer"}`))
	}))
	defer srv.Close()

	c := NewClient(testAgentsConfig(srv.URL))
	out, err := c.EnrichContext(context.Background(), "beach wedding")
	require.NoError(t, err)
	assert.Equal(t, "beach wedding", out.Query)
	assert.Equal(t, "summer", out.Season)
}

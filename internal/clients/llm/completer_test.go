package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
	"voiceloop/internal/structures"
	"voiceloop/internal/testutil"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func llmConfig(provider, url string) structures.LLMConfig {
	return structures.LLMConfig{
		Provider:  provider,
		Model:     "test-model",
		APIKey:    "secret",
		APIURL:    url,
		MaxTokens: 256,
		Timeout:   5 * time.Second,
	}
}

func TestAnthropicProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("Anthropic-Version"))

		body, _ := io.ReadAll(r.Body)
		var req anthropicRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "test-model", req.Model)
		assert.Equal(t, 256, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "describe my voice", req.Messages[0].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"ok\":"},{"type":"text","text":"true}"}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	p := NewAnthropicProvider(llmConfig("anthropic", server.URL), server.Client())
	out, err := p.Complete(context.Background(), "describe my voice")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
}

func TestAnthropicProvider_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	p := NewAnthropicProvider(llmConfig("anthropic", server.URL), server.Client())
	_, err := p.Complete(context.Background(), "x")

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.HTTPStatusCode())
	assert.False(t, IsRetryable(err))
}

func TestAnthropicProvider_EmptyCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	p := NewAnthropicProvider(llmConfig("anthropic", server.URL), server.Client())
	_, err := p.Complete(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrEmptyCompletion))
}

func TestOpenAIProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"[1,2,3]"}}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(llmConfig("openai", server.URL), server.Client())
	out, err := p.Complete(context.Background(), "count")
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", out)
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.True(t, IsRetryable(&HTTPError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, IsRetryable(&HTTPError{StatusCode: http.StatusBadGateway}))
	assert.True(t, IsRetryable(&HTTPError{StatusCode: 529}))
	assert.False(t, IsRetryable(&HTTPError{StatusCode: http.StatusBadRequest}))
}

func newTestCompleter(inner Completer, retries int, metrics *testutil.MockMetrics) *instrumentedCompleter {
	return &instrumentedCompleter{
		name:     "test",
		inner:    inner,
		executor: newExecutor(retries, time.Millisecond),
		timeout:  time.Second,
		logger:   &testutil.MockLogger{},
		metrics:  metrics,
	}
}

func TestInstrumentedCompleter_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"done"}]}`))
	}))
	defer server.Close()

	metrics := testutil.NewMockMetrics()
	c := newTestCompleter(NewAnthropicProvider(llmConfig("anthropic", server.URL), server.Client()), 3, metrics)

	out, err := c.Complete(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1, metrics.ExternalCalls["llm:ok"])
}

func TestInstrumentedCompleter_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	metrics := testutil.NewMockMetrics()
	c := newTestCompleter(NewAnthropicProvider(llmConfig("anthropic", server.URL), server.Client()), 3, metrics)

	_, err := c.Complete(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, metrics.ExternalCalls["llm:error"])

	var httpErr *HTTPError
	assert.True(t, errors.As(err, &httpErr))
}

func TestInstrumentedCompleter_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestCompleter(NewAnthropicProvider(llmConfig("anthropic", server.URL), server.Client()), 2, testutil.NewMockMetrics())

	_, err := c.Complete(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNewCompleter_UnknownProvider(t *testing.T) {
	conf := &structures.Config{LLM: llmConfig("mystery", "")}
	_, err := NewCompleter(conf, &testutil.MockLogger{}, testutil.NewMockMetrics())
	assert.Error(t, err)
}

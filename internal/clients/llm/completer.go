package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
	"voiceloop/internal/providers"
	"voiceloop/internal/structures"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const (
	defaultMaxTokens = 4096
	retryBaseDelay   = 500 * time.Millisecond
	retryMaxDelay    = 10 * time.Second
)

// Completer sends a single prompt to a language model and returns the text of
// its answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// HTTPError is a non-2xx answer from a model API.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// ErrEmptyCompletion is returned when the model answered without any text.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// IsRetryable reports whether a failed call is worth repeating: transport
// errors, rate limiting and server errors are. Cancellation is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
			529:
			return true
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

func newExecutor(maxRetries int, baseDelay time.Duration) failsafe.Executor[string] {
	if maxRetries < 0 {
		maxRetries = 0
	}
	retry := retrypolicy.NewBuilder[string]().
		WithBackoff(baseDelay, retryMaxDelay).
		WithMaxRetries(maxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ string, err error) bool {
			return IsRetryable(err)
		}).
		ReturnLastFailure().
		Build()
	return failsafe.With(retry)
}

// instrumentedCompleter bounds every call by the configured timeout and
// counts outcomes.
type instrumentedCompleter struct {
	name     string
	inner    Completer
	executor failsafe.Executor[string]
	timeout  time.Duration
	logger   providers.Logger
	metrics  providers.MetricsProviderInterface
}

func (c *instrumentedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	attempt := 0
	text, err := c.executor.WithContext(ctx).Get(func() (string, error) {
		attempt++
		if attempt > 1 {
			c.logger.Warnf(providers.TypeApp, "Retrying %s completion, attempt %d", c.name, attempt)
		}
		return c.inner.Complete(ctx, prompt)
	})
	if err != nil {
		c.metrics.IncExternalCalls("llm", "error")
		return "", fmt.Errorf("%s completion: %w", c.name, err)
	}
	c.metrics.IncExternalCalls("llm", "ok")
	return text, nil
}

// NewCompleter builds the configured provider wrapped with retries, a per-call
// timeout and metrics.
func NewCompleter(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) (Completer, error) {
	httpClient := &http.Client{}

	var inner Completer
	switch conf.LLM.Provider {
	case "anthropic":
		inner = NewAnthropicProvider(conf.LLM, httpClient)
	case "openai":
		inner = NewOpenAIProvider(conf.LLM, httpClient)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", conf.LLM.Provider)
	}

	if conf.LLM.APIKey == "" {
		logger.Warnf(providers.TypeApp, "No API key configured for %s", conf.LLM.Provider)
	}

	return &instrumentedCompleter{
		name:     conf.LLM.Provider,
		inner:    inner,
		executor: newExecutor(conf.LLM.MaxRetries, retryBaseDelay),
		timeout:  conf.LLM.Timeout,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"voiceloop/internal/providers"
	"voiceloop/internal/structures"

	json "github.com/goccy/go-json"
)

// tokenExpiryMargin is how long before the platform's expiry a cached token
// is considered stale.
const tokenExpiryMargin = time.Hour

// TokenSource hands out a bearer token that is valid right now.
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, error)
}

// StaticTokenSource returns the configured token as is.
type StaticTokenSource string

func (s StaticTokenSource) GetValidToken(_ context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: no platform token configured", ErrUnauthorized)
	}
	return string(s), nil
}

// RefreshingTokenSource exchanges the configured long-lived token for a fresh
// one and keeps the result in the cache until shortly before it expires.
type RefreshingTokenSource struct {
	mu         sync.Mutex
	seed       string
	baseURL    string
	cacheKey   string
	httpClient *http.Client
	cache      providers.CacheProviderInterface
	logger     providers.Logger
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func NewRefreshingTokenSource(conf *structures.Config, httpClient *http.Client, cache providers.CacheProviderInterface, logger providers.Logger) *RefreshingTokenSource {
	return &RefreshingTokenSource{
		seed:       conf.Platform.Token,
		baseURL:    strings.TrimRight(conf.Platform.BaseURL, "/"),
		cacheKey:   "platform:token:" + conf.Platform.UserID,
		httpClient: httpClient,
		cache:      cache,
		logger:     logger,
	}
}

func (s *RefreshingTokenSource) GetValidToken(ctx context.Context) (string, error) {
	if token, ok := s.cache.Get(s.cacheKey); ok {
		return string(token), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// another caller may have refreshed while we waited
	if token, ok := s.cache.Get(s.cacheKey); ok {
		return string(token), nil
	}
	if s.seed == "" {
		return "", fmt.Errorf("%w: no platform token configured", ErrUnauthorized)
	}

	q := url.Values{}
	q.Set("grant_type", "ig_refresh_token")
	q.Set("access_token", s.seed)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/refresh_access_token?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()

	if err = checkStatus(resp); err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	var out refreshResponse
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("refresh token: decode response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: refresh returned no token", ErrUnauthorized)
	}

	ttl := time.Duration(out.ExpiresIn)*time.Second - tokenExpiryMargin
	s.cache.SetWithTTL(s.cacheKey, []byte(out.AccessToken), ttl)
	s.seed = out.AccessToken
	s.logger.Infof(providers.TypeIngest, "Platform token refreshed, valid for %s", time.Duration(out.ExpiresIn)*time.Second)

	return out.AccessToken, nil
}

// NewTokenSource picks the refreshing source when token refresh is enabled.
func NewTokenSource(conf *structures.Config, cache providers.CacheProviderInterface, logger providers.Logger) TokenSource {
	if conf.Platform.RefreshToken {
		return NewRefreshingTokenSource(conf, &http.Client{Timeout: conf.Platform.Timeout}, cache, logger)
	}
	return StaticTokenSource(conf.Platform.Token)
}

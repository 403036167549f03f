package platform

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"voiceloop/internal/models"
	"voiceloop/internal/providers"
	"voiceloop/internal/structures"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

const (
	mediaFields    = "id,caption,media_type,timestamp,like_count,comments_count"
	insightMetrics = "likes,comments,shares,saved"
	timestampForm  = "2006-01-02T15:04:05-0700"
)

// Client is the narrow view of the social platform the pipeline needs.
type Client interface {
	ListPosts(ctx context.Context, cursor string, limit int) (*models.PostPage, error)
	FetchMetrics(ctx context.Context, postID string) (*models.PostMetrics, error)
}

type GraphClient struct {
	httpClient *http.Client
	baseURL    string
	userID     string
	pageSize   int
	timeout    time.Duration
	tokens     TokenSource
	executor   failsafe.Executor[[]byte]
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

func newExecutor(maxRetries int, baseDelay time.Duration) failsafe.Executor[[]byte] {
	if maxRetries < 0 {
		maxRetries = 0
	}
	retry := retrypolicy.NewBuilder[[]byte]().
		WithBackoff(baseDelay, 10*time.Second).
		WithMaxRetries(maxRetries).
		WithJitterFactor(0.1).
		HandleIf(func(_ []byte, err error) bool {
			return isRetryable(err)
		}).
		ReturnLastFailure().
		Build()
	return failsafe.With(retry)
}

func NewClient(conf *structures.Config, tokens TokenSource, logger providers.Logger, metrics providers.MetricsProviderInterface) Client {
	return newGraphClient(conf, tokens, logger, metrics, 500*time.Millisecond)
}

func newGraphClient(conf *structures.Config, tokens TokenSource, logger providers.Logger, metrics providers.MetricsProviderInterface, baseDelay time.Duration) *GraphClient {
	return &GraphClient{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(conf.Platform.BaseURL, "/"),
		userID:     conf.Platform.UserID,
		pageSize:   conf.Platform.PageSize,
		timeout:    conf.Platform.Timeout,
		tokens:     tokens,
		executor:   newExecutor(conf.Platform.MaxRetries, baseDelay),
		logger:     logger,
		metrics:    metrics,
	}
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(raw))
	var ge graphError
	if json.Unmarshal(raw, &ge) == nil && ge.Error.Message != "" {
		message = ge.Error.Message
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrUnauthorized, message)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

func (c *GraphClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	attempt := 0
	body, err := c.executor.WithContext(ctx).Get(func() ([]byte, error) {
		attempt++
		if attempt > 1 {
			c.logger.Warnf(providers.TypeIngest, "Retrying platform request %s, attempt %d", path, attempt)
		}

		token, err := c.tokens.GetValidToken(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if err = checkStatus(resp); err != nil {
			return nil, err
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		c.metrics.IncExternalCalls("platform", "error")
		return nil, err
	}
	c.metrics.IncExternalCalls("platform", "ok")
	return body, nil
}

type mediaPage struct {
	Data []struct {
		ID            string `json:"id"`
		Caption       string `json:"caption"`
		MediaType     string `json:"media_type"`
		Timestamp     string `json:"timestamp"`
		LikeCount     int    `json:"like_count"`
		CommentsCount int    `json:"comments_count"`
	} `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
		Next string `json:"next"`
	} `json:"paging"`
}

func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(timestampForm, raw); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// ListPosts returns one page of the user's posts. The next cursor is empty
// on the last page.
func (c *GraphClient) ListPosts(ctx context.Context, cursor string, limit int) (*models.PostPage, error) {
	if limit <= 0 || limit > c.pageSize {
		limit = c.pageSize
	}
	q := url.Values{}
	q.Set("fields", mediaFields)
	q.Set("limit", strconv.Itoa(limit))
	if cursor != "" {
		q.Set("after", cursor)
	}

	body, err := c.get(ctx, "/"+url.PathEscape(c.userID)+"/media", q)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	var page mediaPage
	if err = json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("list posts: malformed page: %w", err)
	}

	out := &models.PostPage{Posts: make([]models.SourcePost, 0, len(page.Data))}
	for _, item := range page.Data {
		postedAt, err := parseTimestamp(item.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("list posts: post %s has malformed timestamp %q", item.ID, item.Timestamp)
		}
		out.Posts = append(out.Posts, models.SourcePost{
			ID:           item.ID,
			Text:         item.Caption,
			PostedAt:     postedAt,
			LikeCount:    item.LikeCount,
			CommentCount: item.CommentsCount,
			MediaKind:    models.MediaKind(item.MediaType),
		})
	}
	if page.Paging.Next != "" {
		out.NextCursor = page.Paging.Cursors.After
	}
	return out, nil
}

type insightsResponse struct {
	Data []struct {
		Name   string `json:"name"`
		Values []struct {
			Value any `json:"value"`
		} `json:"values"`
		TotalValue *struct {
			Value any `json:"value"`
		} `json:"total_value"`
	} `json:"data"`
}

// FetchMetrics returns the current counters of a published post. Values the
// platform omits are zero.
func (c *GraphClient) FetchMetrics(ctx context.Context, postID string) (*models.PostMetrics, error) {
	q := url.Values{}
	q.Set("metric", insightMetrics)

	body, err := c.get(ctx, "/"+url.PathEscape(postID)+"/insights", q)
	if err != nil {
		return nil, fmt.Errorf("fetch metrics for %s: %w", postID, err)
	}

	var resp insightsResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("fetch metrics for %s: malformed response: %w", postID, err)
	}

	metrics := &models.PostMetrics{}
	for _, entry := range resp.Data {
		var raw any
		switch {
		case entry.TotalValue != nil:
			raw = entry.TotalValue.Value
		case len(entry.Values) > 0:
			raw = entry.Values[len(entry.Values)-1].Value
		default:
			continue
		}
		value, err := cast.ToIntE(raw)
		if err != nil {
			return nil, fmt.Errorf("fetch metrics for %s: metric %s: %w", postID, entry.Name, err)
		}

		switch entry.Name {
		case "likes":
			metrics.Likes = value
		case "comments":
			metrics.Comments = value
		case "shares":
			metrics.Shares = value
		case "saved":
			metrics.Saves = value
		}
	}
	return metrics, nil
}

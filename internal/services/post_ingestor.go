package services

import (
	"context"
	"strings"
	"time"
	"voiceloop/internal/clients/platform"
	"voiceloop/internal/models"
	"voiceloop/internal/providers"
	"voiceloop/internal/structures"

	"golang.org/x/time/rate"
)

type PostIngestorInterface interface {
	Ingest(ctx context.Context, maxCount int) ([]models.SourcePost, error)
}

// PostIngestor walks the platform's paginated listing and keeps posts that
// have text. Requests are spaced by a fixed delay.
type PostIngestor struct {
	client   platform.Client
	pageSize int
	delay    time.Duration
	logger   providers.Logger
}

func NewPostIngestor(conf *structures.Config, client platform.Client, logger providers.Logger) PostIngestorInterface {
	return &PostIngestor{
		client:   client,
		pageSize: conf.Platform.PageSize,
		delay:    conf.Ingest.RequestDelay,
		logger:   logger,
	}
}

func (pi *PostIngestor) newLimiter() *rate.Limiter {
	if pi.delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(pi.delay), 1)
}

// Ingest returns at most maxCount posts in page order. Any listing failure
// aborts the whole ingestion; a partial corpus is never returned.
func (pi *PostIngestor) Ingest(ctx context.Context, maxCount int) ([]models.SourcePost, error) {
	if maxCount <= 0 {
		return nil, &IngestionError{Stage: StageIngest, Reason: "max post count must be positive"}
	}

	limiter := pi.newLimiter()
	posts := make([]models.SourcePost, 0, maxCount)
	cursor := ""
	pages := 0

	for len(posts) < maxCount {
		if err := limiter.Wait(ctx); err != nil {
			return nil, &IngestionError{Stage: StageIngest, Reason: "interrupted while paginating", Err: err}
		}

		limit := pi.pageSize
		if remaining := maxCount - len(posts); limit <= 0 || remaining < limit {
			limit = remaining
		}

		page, err := pi.client.ListPosts(ctx, cursor, limit)
		if err != nil {
			return nil, &IngestionError{Stage: StageIngest, Reason: "listing posts failed", Err: err}
		}
		pages++

		for _, post := range page.Posts {
			if strings.TrimSpace(post.Text) == "" {
				continue
			}
			posts = append(posts, post)
			if len(posts) == maxCount {
				break
			}
		}

		pi.logger.Debugf(providers.TypeIngest, "Page %d: %d posts, %d collected", pages, len(page.Posts), len(posts))

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if len(posts) == 0 {
		return nil, &IngestionError{Stage: StageIngest, Reason: "no posts with text found"}
	}

	pi.logger.Infof(providers.TypeIngest, "Ingested %d posts over %d pages", len(posts), pages)
	return posts, nil
}

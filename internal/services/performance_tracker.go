package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
	"voiceloop/internal/clients/platform"
	"voiceloop/internal/models"
	"voiceloop/internal/providers"
	"voiceloop/internal/storage/interfaces"
)

const (
	topPerformerScore      = 80.0
	bottomPerformerScore   = 20.0
	highCommentRatio       = 0.1
	strongAuthenticity     = 98
	strongPerformanceScore = 75.0
	lowAuthenticity        = 97
	poorPerformanceScore   = 25.0
)

const (
	InsightTopPerformer     = "Top performer in category"
	InsightHighCommentRate  = "High comment rate"
	InsightAuthenticStrong  = "Authentic voice + strong performance"
	InsightLowAuthenticPoor = "Low authenticity + poor performance"
	InsightBottomPerformer  = "Bottom performer in category"
)

// RefreshSummary reports a batch refresh. Failed posts keep their previous
// metrics.
type RefreshSummary struct {
	Refreshed int      `json:"refreshed"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids"`
}

type PerformanceTrackerInterface interface {
	Record(ctx context.Context, candidate models.GeneratedCandidate, postID string) (*models.PerformanceRecord, error)
	RefreshMetrics(ctx context.Context, postID string) (*models.PerformanceRecord, error)
	UpdateRecent(ctx context.Context, windowHours int) (RefreshSummary, error)
}

type PerformanceTracker struct {
	mu      sync.Mutex
	repo    interfaces.PerformanceRepository
	client  platform.Client
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func NewPerformanceTracker(repo interfaces.PerformanceRepository, client platform.Client, logger providers.Logger, metrics providers.MetricsProviderInterface) PerformanceTrackerInterface {
	return &PerformanceTracker{
		repo:    repo,
		client:  client,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Record starts tracking a published candidate with zero metrics.
func (pt *PerformanceTracker) Record(ctx context.Context, candidate models.GeneratedCandidate, postID string) (*models.PerformanceRecord, error) {
	if postID == "" {
		return nil, errors.New("record: published post id is required")
	}

	pt.mu.Lock()
	defer pt.mu.Unlock()

	rec := models.NewPerformanceRecord(candidate, postID, pt.now().UTC())
	rec.LastCheckedAt = rec.PostedAt
	if err := pt.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, interfaces.ErrRecordExists) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyTracked, postID)
		}
		return nil, fmt.Errorf("record %s: %w", postID, err)
	}

	pt.updateCategoryGauge(ctx, rec.Category)
	pt.logger.Infof(providers.TypeTrack, "Tracking post %s (%s, authenticity %d%%)", postID, rec.Category, rec.AuthenticityScore)
	return rec, nil
}

// RefreshMetrics pulls fresh counters for one post and re-ranks it against
// the other posts of its category.
func (pt *PerformanceTracker) RefreshMetrics(ctx context.Context, postID string) (*models.PerformanceRecord, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.refresh(ctx, postID)
}

func (pt *PerformanceTracker) refresh(ctx context.Context, postID string) (*models.PerformanceRecord, error) {
	rec, err := pt.repo.Get(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", postID, err)
	}

	counters, err := pt.client.FetchMetrics(ctx, postID)
	if err != nil {
		pt.metrics.IncMetricsFetchFailures()
		return nil, &MetricsFetchError{Stage: StageTrack, PostID: postID, Reason: "fetching metrics failed", Err: err}
	}

	rec.Likes = counters.Likes
	rec.Comments = counters.Comments
	rec.Shares = counters.Shares
	rec.Saves = counters.Saves
	rec.EngagementRate = models.EngagementRate(counters.Likes, counters.Comments, counters.Shares, counters.Saves)

	peers, err := pt.repo.ListByCategory(ctx, rec.Category)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: load cohort: %w", postID, err)
	}
	cohort := make([]float64, 0, len(peers))
	for _, peer := range peers {
		if peer.PostID != rec.PostID && peer.EngagementRate > 0 {
			cohort = append(cohort, peer.EngagementRate)
		}
	}

	rec.PerformanceScore = models.PercentileScore(rec.EngagementRate, cohort)
	rec.Insights = deriveInsights(rec, len(cohort))

	now := pt.now().UTC()
	rec.LastCheckedAt = now
	rec.HoursElapsed = math.Round(rec.Age(now).Hours()*10) / 10

	if err = pt.repo.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("refresh %s: %w", postID, err)
	}

	pt.logger.Debugf(providers.TypeTrack, "Post %s: rate %.2f, score %.1f against %d peers", postID, rec.EngagementRate, rec.PerformanceScore, len(cohort))
	return rec, nil
}

// UpdateRecent refreshes every post published within the window. Fetch
// failures are logged and counted; repository failures abort the batch.
func (pt *PerformanceTracker) UpdateRecent(ctx context.Context, windowHours int) (RefreshSummary, error) {
	summary := RefreshSummary{FailedIDs: []string{}}

	pt.mu.Lock()
	defer pt.mu.Unlock()

	records, err := pt.repo.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("update recent: %w", err)
	}

	window := time.Duration(windowHours) * time.Hour
	now := pt.now()
	categories := make(map[string]int)

	for _, rec := range records {
		categories[rec.Category]++
		if rec.Age(now) > window {
			continue
		}
		if err = ctx.Err(); err != nil {
			return summary, err
		}

		_, err = pt.refresh(ctx, rec.PostID)
		var fetchErr *MetricsFetchError
		switch {
		case err == nil:
			summary.Refreshed++
		case errors.As(err, &fetchErr):
			pt.logger.Warnf(providers.TypeTrack, "Skipping %s: %s", rec.PostID, err)
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, rec.PostID)
		default:
			return summary, err
		}
	}

	for category, count := range categories {
		pt.metrics.SetRecordsTotal(category, count)
	}
	pt.logger.Infof(providers.TypeTrack, "Refreshed %d posts within %dh, %d failed", summary.Refreshed, windowHours, summary.Failed)
	return summary, nil
}

func (pt *PerformanceTracker) updateCategoryGauge(ctx context.Context, category string) {
	peers, err := pt.repo.ListByCategory(ctx, category)
	if err != nil {
		pt.logger.Warnf(providers.TypeTrack, "Unable to count %s records: %s", category, err)
		return
	}
	pt.metrics.SetRecordsTotal(category, len(peers))
}

// deriveInsights annotates a record. The strings are advisory only.
func deriveInsights(rec *models.PerformanceRecord, cohortSize int) []string {
	insights := make([]string, 0, 2)
	score := rec.PerformanceScore

	if score >= topPerformerScore {
		insights = append(insights, InsightTopPerformer)
	}
	if float64(rec.Comments) > float64(rec.Likes)*highCommentRatio {
		insights = append(insights, InsightHighCommentRate)
	}
	if rec.AuthenticityScore >= strongAuthenticity && score >= strongPerformanceScore {
		insights = append(insights, InsightAuthenticStrong)
	}
	if rec.AuthenticityScore < lowAuthenticity && score < poorPerformanceScore {
		insights = append(insights, InsightLowAuthenticPoor)
	}
	if score <= bottomPerformerScore && cohortSize >= models.MinCohortSize {
		insights = append(insights, InsightBottomPerformer)
	}
	return insights
}

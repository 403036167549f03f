package services

import (
	"context"
	"errors"
	"testing"
	"time"
	"voiceloop/internal/models"
	"voiceloop/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackerFixture struct {
	tracker  *PerformanceTracker
	repo     *testutil.MemoryRepository
	platform *testutil.MockPlatform
	metrics  *testutil.MockMetrics
	logger   *testutil.MockLogger
}

func newTracker(records ...*models.PerformanceRecord) trackerFixture {
	repo := testutil.NewMemoryRepository(records...)
	platform := &testutil.MockPlatform{
		Metrics:    make(map[string]*models.PostMetrics),
		MetricErrs: make(map[string]error),
	}
	metrics := testutil.NewMockMetrics()
	logger := &testutil.MockLogger{}
	tracker := NewPerformanceTracker(repo, platform, logger, metrics).(*PerformanceTracker)
	tracker.now = func() time.Time { return fixedNow }
	return trackerFixture{tracker: tracker, repo: repo, platform: platform, metrics: metrics, logger: logger}
}

func peer(id, category string, rate float64) *models.PerformanceRecord {
	return &models.PerformanceRecord{
		PostID:            id,
		Category:          category,
		EngagementRate:    rate,
		AuthenticityScore: 96,
		Insights:          []string{},
		PostedAt:          fixedNow.Add(-72 * time.Hour),
	}
}

func candidate(category string, score int) models.GeneratedCandidate {
	return models.GeneratedCandidate{
		ID:                "cand-1",
		Text:              "launch day, no fluff",
		Hashtags:          []string{"#launch"},
		AuthenticityScore: score,
		Rationale:         "matches",
		Category:          category,
		TargetPlatform:    "instagram",
	}
}

func TestRecord_CreatesZeroedRecord(t *testing.T) {
	f := newTracker()

	rec, err := f.tracker.Record(context.Background(), candidate("tip", 97), "post-1")
	require.NoError(t, err)

	assert.Equal(t, "post-1", rec.PostID)
	assert.Equal(t, 97, rec.AuthenticityScore)
	assert.Equal(t, "instagram", rec.Platform)
	assert.Equal(t, fixedNow, rec.PostedAt)
	assert.Zero(t, rec.Likes)
	assert.Zero(t, rec.EngagementRate)
	assert.Empty(t, rec.Insights)

	stored, err := f.repo.Get(context.Background(), "post-1")
	require.NoError(t, err)
	assert.Equal(t, rec, stored)
	assert.Equal(t, 1, f.metrics.RecordsTotal["tip"])
}

func TestRecord_DuplicatePostID(t *testing.T) {
	f := newTracker()
	_, err := f.tracker.Record(context.Background(), candidate("tip", 97), "post-1")
	require.NoError(t, err)

	_, err = f.tracker.Record(context.Background(), candidate("tip", 99), "post-1")
	assert.True(t, errors.Is(err, ErrAlreadyTracked))

	stored, _ := f.repo.Get(context.Background(), "post-1")
	assert.Equal(t, 97, stored.AuthenticityScore)
}

func TestRefreshMetrics_EngagementRate(t *testing.T) {
	f := newTracker()
	_, err := f.tracker.Record(context.Background(), candidate("tip", 96), "post-1")
	require.NoError(t, err)
	f.platform.Metrics["post-1"] = &models.PostMetrics{Likes: 10, Comments: 2, Shares: 1, Saves: 0}

	rec, err := f.tracker.RefreshMetrics(context.Background(), "post-1")
	require.NoError(t, err)

	assert.InDelta(t, 0.5, rec.EngagementRate, 1e-9)
	assert.Equal(t, 50.0, rec.PerformanceScore)
	assert.Equal(t, []string{InsightHighCommentRate}, rec.Insights)
	assert.Equal(t, fixedNow, rec.LastCheckedAt)
}

func TestRefreshMetrics_CohortPercentile(t *testing.T) {
	f := newTracker(
		peer("a", "tip", 0.2),
		peer("b", "tip", 0.4),
		peer("c", "tip", 0.6),
		peer("d", "tip", 0.8),
		peer("zero", "tip", 0),
		peer("other", "story", 5.0),
		peer("target", "tip", 0),
	)
	f.platform.Metrics["target"] = &models.PostMetrics{Likes: 50}

	rec, err := f.tracker.RefreshMetrics(context.Background(), "target")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, rec.EngagementRate, 1e-9)
	assert.Equal(t, 50.0, rec.PerformanceScore)
	assert.Empty(t, rec.Insights)
	assert.InDelta(t, 72.0, rec.HoursElapsed, 0.01)
}

func TestRefreshMetrics_ScoreIsMonotonicInRate(t *testing.T) {
	cohort := []*models.PerformanceRecord{
		peer("a", "tip", 0.2), peer("b", "tip", 0.4), peer("c", "tip", 0.6), peer("d", "tip", 0.8),
	}
	previous := -1.0
	for _, likes := range []int{5, 30, 50, 70, 90} {
		f := newTracker(append(cohort, peer("target", "tip", 0))...)
		f.platform.Metrics["target"] = &models.PostMetrics{Likes: likes}

		rec, err := f.tracker.RefreshMetrics(context.Background(), "target")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rec.PerformanceScore, previous)
		previous = rec.PerformanceScore
	}
	assert.Equal(t, 100.0, previous)
}

func TestRefreshMetrics_InsufficientCohort(t *testing.T) {
	f := newTracker(peer("a", "tip", 0.1), peer("b", "tip", 0.2), peer("target", "tip", 0))
	f.platform.Metrics["target"] = &models.PostMetrics{Likes: 1000}

	rec, err := f.tracker.RefreshMetrics(context.Background(), "target")
	require.NoError(t, err)
	assert.Equal(t, 50.0, rec.PerformanceScore)
	assert.NotContains(t, rec.Insights, InsightTopPerformer)
}

func TestRefreshMetrics_TopAndBottomInsights(t *testing.T) {
	cohort := []*models.PerformanceRecord{
		peer("a", "tip", 0.2), peer("b", "tip", 0.4), peer("c", "tip", 0.6), peer("d", "tip", 0.8),
	}

	top := peer("top", "tip", 0)
	top.AuthenticityScore = 99
	f := newTracker(append(cohort, top)...)
	f.platform.Metrics["top"] = &models.PostMetrics{Likes: 90}
	rec, err := f.tracker.RefreshMetrics(context.Background(), "top")
	require.NoError(t, err)
	assert.Equal(t, []string{InsightTopPerformer, InsightAuthenticStrong}, rec.Insights)

	f = newTracker(append(cohort, peer("low", "tip", 0))...)
	f.platform.Metrics["low"] = &models.PostMetrics{Likes: 10}
	rec, err = f.tracker.RefreshMetrics(context.Background(), "low")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.PerformanceScore)
	assert.Equal(t, []string{InsightLowAuthenticPoor, InsightBottomPerformer}, rec.Insights)
}

func TestRefreshMetrics_Idempotent(t *testing.T) {
	f := newTracker(peer("a", "tip", 0.2), peer("b", "tip", 0.4), peer("c", "tip", 0.6), peer("target", "tip", 0))
	f.platform.Metrics["target"] = &models.PostMetrics{Likes: 30, Comments: 4, Shares: 2, Saves: 1}

	first, err := f.tracker.RefreshMetrics(context.Background(), "target")
	require.NoError(t, err)
	second, err := f.tracker.RefreshMetrics(context.Background(), "target")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRefreshMetrics_FetchFailure(t *testing.T) {
	f := newTracker(peer("target", "tip", 0.3))
	f.platform.MetricErrs["target"] = errors.New("rate limited")

	_, err := f.tracker.RefreshMetrics(context.Background(), "target")

	var fetchErr *MetricsFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "target", fetchErr.PostID)
	assert.Equal(t, 1, f.metrics.FetchFailures)

	stored, _ := f.repo.Get(context.Background(), "target")
	assert.Equal(t, 0.3, stored.EngagementRate)
}

func TestRefreshMetrics_UnknownPost(t *testing.T) {
	f := newTracker()
	_, err := f.tracker.RefreshMetrics(context.Background(), "missing")
	assert.Error(t, err)
	assert.Empty(t, f.platform.FetchCalls)
}

func TestUpdateRecent_RefreshesWindowAndSkipsFailures(t *testing.T) {
	recent := peer("recent", "tip", 0)
	recent.PostedAt = fixedNow.Add(-10 * time.Hour)
	failing := peer("failing", "tip", 0)
	failing.PostedAt = fixedNow.Add(-30 * time.Hour)
	old := peer("old", "tip", 0)
	old.PostedAt = fixedNow.Add(-100 * time.Hour)

	f := newTracker(recent, failing, old)
	f.platform.Metrics["recent"] = &models.PostMetrics{Likes: 20}
	f.platform.Metrics["old"] = &models.PostMetrics{Likes: 20}
	f.platform.MetricErrs["failing"] = errors.New("timeout")

	summary, err := f.tracker.UpdateRecent(context.Background(), 48)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Refreshed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{"failing"}, summary.FailedIDs)
	assert.ElementsMatch(t, []string{"failing", "recent"}, f.platform.FetchCalls)
	assert.True(t, f.logger.HasMessage("warn", "Skipping failing"))
	assert.Equal(t, 3, f.metrics.RecordsTotal["tip"])

	stored, _ := f.repo.Get(context.Background(), "recent")
	assert.InDelta(t, 0.2, stored.EngagementRate, 1e-9)
}

func TestDeriveInsights(t *testing.T) {
	rec := &models.PerformanceRecord{Likes: 100, Comments: 10, AuthenticityScore: 97, PerformanceScore: 80}
	assert.Equal(t, []string{InsightTopPerformer}, deriveInsights(rec, 5))

	rec.Comments = 11
	assert.Contains(t, deriveInsights(rec, 5), InsightHighCommentRate)

	rec = &models.PerformanceRecord{AuthenticityScore: 96, PerformanceScore: 20}
	assert.Equal(t, []string{InsightLowAuthenticPoor}, deriveInsights(rec, 2))
	assert.Equal(t, []string{InsightLowAuthenticPoor, InsightBottomPerformer}, deriveInsights(rec, 3))
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngagementRate_Weighted(t *testing.T) {
	// (10 + 2*10 + 1*20 + 0*15) / 100
	assert.InDelta(t, 0.5, EngagementRate(10, 2, 1, 0), 1e-9)
	assert.InDelta(t, 0.15, EngagementRate(0, 0, 0, 1), 1e-9)
	assert.Equal(t, 0.0, EngagementRate(0, 0, 0, 0))
}

func TestEngagementRate_Deterministic(t *testing.T) {
	first := EngagementRate(123, 17, 4, 9)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, EngagementRate(123, 17, 4, 9))
	}
}

func TestSourcePost_Engagement(t *testing.T) {
	p := SourcePost{LikeCount: 40, CommentCount: 3}
	assert.Equal(t, 70, p.Engagement())
}

func TestPercentileScore_CohortScenario(t *testing.T) {
	cohort := []float64{1.0, 2.0, 3.0, 4.0}
	assert.Equal(t, 50.0, PercentileScore(2.5, cohort))
}

func TestPercentileScore_UnsortedCohort(t *testing.T) {
	cohort := []float64{4.0, 1.0, 3.0, 2.0}
	assert.Equal(t, 50.0, PercentileScore(2.5, cohort))
	// input slice is left untouched
	assert.Equal(t, []float64{4.0, 1.0, 3.0, 2.0}, cohort)
}

func TestPercentileScore_SmallCohortIsNeutral(t *testing.T) {
	assert.Equal(t, NeutralPerformanceScore, PercentileScore(100, nil))
	assert.Equal(t, NeutralPerformanceScore, PercentileScore(100, []float64{1.0}))
	assert.Equal(t, NeutralPerformanceScore, PercentileScore(0.01, []float64{1.0, 9.0}))
}

func TestPercentileScore_Bounds(t *testing.T) {
	cohort := []float64{1, 2, 3}
	assert.Equal(t, 0.0, PercentileScore(0.5, cohort))
	assert.Equal(t, 100.0, PercentileScore(10, cohort))
}

func TestPercentileScore_TiesCountAsNotBelow(t *testing.T) {
	cohort := []float64{1, 2, 2, 3}
	assert.Equal(t, 25.0, PercentileScore(2, cohort))
}

func TestPercentileScore_MonotonicInRate(t *testing.T) {
	cohort := []float64{0.3, 0.9, 1.4, 2.2, 2.2, 5.1, 7.7}
	prev := -1.0
	for rate := 0.0; rate <= 10; rate += 0.05 {
		score := PercentileScore(rate, cohort)
		assert.GreaterOrEqual(t, score, prev, "rate %.2f", rate)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
		prev = score
	}
}

func TestNewPerformanceRecord_CopiesCandidate(t *testing.T) {
	postedAt := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	candidate := GeneratedCandidate{
		ID:                "c1",
		Text:              "still learning to sit with the questions",
		Hashtags:          []string{"#poetry"},
		AuthenticityScore: 97,
		Category:          "poetry",
		TargetPlatform:    "instagram",
	}

	rec := NewPerformanceRecord(candidate, "post-1", postedAt)
	require.NotNil(t, rec)
	assert.Equal(t, "post-1", rec.PostID)
	assert.Equal(t, 97, rec.AuthenticityScore)
	assert.Equal(t, "poetry", rec.Category)
	assert.Equal(t, "instagram", rec.Platform)
	assert.Zero(t, rec.Likes)
	assert.Zero(t, rec.EngagementRate)
	assert.Zero(t, rec.PerformanceScore)
	assert.Equal(t, postedAt, rec.PostedAt)

	candidate.Hashtags[0] = "#changed"
	assert.Equal(t, []string{"#poetry"}, rec.Hashtags)
}

func TestInsights_ApplyTo(t *testing.T) {
	brief := &ContentBrief{Topic: "grief", PerformanceNotes: []string{"keep it short"}}
	insights := &Insights{Recommendations: []string{"Focus on poetry content"}}

	insights.ApplyTo(brief)
	assert.Equal(t, []string{"keep it short", "Focus on poetry content"}, brief.PerformanceNotes)

	var nilInsights *Insights
	nilInsights.ApplyTo(brief)
	assert.Len(t, brief.PerformanceNotes, 2)
}

func TestVoiceProfile_Age(t *testing.T) {
	generated := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	p := &VoiceProfile{GeneratedAt: generated}
	assert.Equal(t, 48*time.Hour, p.Age(generated.Add(48*time.Hour)))
}

package models

import (
	"math"
	"sort"
	"time"
)

const (
	// NeutralPerformanceScore is assigned while a category has too few
	// comparable records to rank against.
	NeutralPerformanceScore = 50.0
	// MinCohortSize is the smallest cohort a percentile is computed over.
	MinCohortSize = 3
)

type PerformanceRecord struct {
	PostID            string    `json:"post_id"`
	Platform          string    `json:"platform"`
	Text              string    `json:"text"`
	Hashtags          []string  `json:"hashtags"`
	Category          string    `json:"category"`
	AuthenticityScore int       `json:"authenticity_score"`
	Likes             int       `json:"likes"`
	Comments          int       `json:"comments"`
	Shares            int       `json:"shares"`
	Saves             int       `json:"saves"`
	EngagementRate    float64   `json:"engagement_rate"`
	PerformanceScore  float64   `json:"performance_score"`
	Insights          []string  `json:"insights"`
	PostedAt          time.Time `json:"posted_at"`
	LastCheckedAt     time.Time `json:"last_checked_at"`
	HoursElapsed      float64   `json:"hours_elapsed"`
}

// NewPerformanceRecord starts tracking a published candidate with zeroed
// metrics. The authenticity score is copied verbatim from the candidate.
func NewPerformanceRecord(candidate GeneratedCandidate, postID string, postedAt time.Time) *PerformanceRecord {
	hashtags := make([]string, len(candidate.Hashtags))
	copy(hashtags, candidate.Hashtags)
	return &PerformanceRecord{
		PostID:            postID,
		Platform:          candidate.TargetPlatform,
		Text:              candidate.Text,
		Hashtags:          hashtags,
		Category:          candidate.Category,
		AuthenticityScore: candidate.AuthenticityScore,
		Insights:          []string{},
		PostedAt:          postedAt,
	}
}

// Age is the time since the post was published.
func (r *PerformanceRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.PostedAt)
}

// EngagementRate weights the raw counters: a comment counts as 10 likes, a
// share as 20 and a save as 15.
func EngagementRate(likes, comments, shares, saves int) float64 {
	weighted := likes + comments*10 + shares*20 + saves*15
	return float64(weighted) / 100
}

// PercentileScore ranks rate against the cohort on a 0-100 scale. The
// position is the number of cohort rates strictly below rate. Cohorts
// smaller than MinCohortSize yield NeutralPerformanceScore.
func PercentileScore(rate float64, cohort []float64) float64 {
	if len(cohort) < MinCohortSize {
		return NeutralPerformanceScore
	}
	sorted := make([]float64, len(cohort))
	copy(sorted, cohort)
	sort.Float64s(sorted)

	position := sort.SearchFloat64s(sorted, rate)
	score := float64(position) / float64(len(sorted)) * 100
	return math.Round(score*10) / 10
}

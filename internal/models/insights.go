package models

import "time"

type CategoryPerformance struct {
	Category      string  `json:"category"`
	AvgEngagement float64 `json:"avg_engagement"`
	Posts         int     `json:"posts"`
}

type HashtagPerformance struct {
	Hashtag       string  `json:"hashtag"`
	AvgEngagement float64 `json:"avg_engagement"`
	Uses          int     `json:"uses"`
}

type PostSummary struct {
	PostID            string  `json:"post_id"`
	Text              string  `json:"text"`
	Category          string  `json:"category"`
	PerformanceScore  float64 `json:"performance_score"`
	EngagementRate    float64 `json:"engagement_rate"`
	AuthenticityScore int     `json:"authenticity_score"`
}

// AuthenticityCorrelation compares posts at or above the split score with
// those below it.
type AuthenticityCorrelation struct {
	Split                int     `json:"split"`
	HighCount            int     `json:"high_count"`
	LowCount             int     `json:"low_count"`
	HighAvgPerformance   float64 `json:"high_avg_performance"`
	LowAvgPerformance    float64 `json:"low_avg_performance"`
	HighOutperformsLow   bool    `json:"high_outperforms_low"`
	HasComparableSamples bool    `json:"has_comparable_samples"`
}

type Insights struct {
	GeneratedAt     time.Time               `json:"generated_at"`
	MinAgeHours     int                     `json:"min_age_hours"`
	TotalAnalyzed   int                     `json:"total_analyzed"`
	Categories      []CategoryPerformance   `json:"categories"`
	Hashtags        []HashtagPerformance    `json:"hashtags"`
	TopPosts        []PostSummary           `json:"top_posts"`
	BottomPosts     []PostSummary           `json:"bottom_posts"`
	Authenticity    AuthenticityCorrelation `json:"authenticity"`
	Recommendations []string                `json:"recommendations"`
	// Note explains an empty analysis. It is never fed into a brief.
	Note string `json:"note,omitempty"`
}

// ApplyTo feeds the recommendations back into a brief for the next
// generation request.
func (i *Insights) ApplyTo(brief *ContentBrief) {
	if i == nil || brief == nil || len(i.Recommendations) == 0 {
		return
	}
	notes := make([]string, 0, len(brief.PerformanceNotes)+len(i.Recommendations))
	notes = append(notes, brief.PerformanceNotes...)
	notes = append(notes, i.Recommendations...)
	brief.PerformanceNotes = notes
}

package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"voiceloop/internal/models"
	"voiceloop/internal/providers"
	"voiceloop/internal/storage/interfaces"
)

const (
	minHashtagUses     = 3
	summaryPostCount   = 5
	summaryTextRunes   = 100
	authenticitySplit  = 97
	recommendedHashtag = 3
)

type InsightAggregatorInterface interface {
	Analyze(ctx context.Context, minAgeHours int) (*models.Insights, error)
}

// InsightAggregator derives insights from the records on every call. Nothing
// is cached, so the result always reflects the latest refresh.
type InsightAggregator struct {
	repo   interfaces.PerformanceRepository
	logger providers.Logger
	now    func() time.Time
}

func NewInsightAggregator(repo interfaces.PerformanceRepository, logger providers.Logger) InsightAggregatorInterface {
	return &InsightAggregator{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (ia *InsightAggregator) Analyze(ctx context.Context, minAgeHours int) (*models.Insights, error) {
	records, err := ia.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("analyze insights: %w", err)
	}

	now := ia.now()
	minAge := time.Duration(minAgeHours) * time.Hour
	mature := make([]*models.PerformanceRecord, 0, len(records))
	for _, rec := range records {
		if rec.Age(now) >= minAge {
			mature = append(mature, rec)
		}
	}

	insights := &models.Insights{
		GeneratedAt:   now.UTC(),
		MinAgeHours:   minAgeHours,
		TotalAnalyzed: len(mature),
		Categories:    categoryPerformance(mature),
		Hashtags:      hashtagPerformance(mature),
		TopPosts:      summarize(mature, true),
		BottomPosts:   summarize(mature, false),
		Authenticity:  authenticityCorrelation(mature),
	}
	insights.Recommendations = recommend(insights)
	if insights.TotalAnalyzed == 0 {
		insights.Note = fmt.Sprintf("Not enough posts older than %dh to draw conclusions yet", minAgeHours)
	}

	ia.logger.Infof(providers.TypeInsight, "Insights over %d of %d records (min age %dh)", len(mature), len(records), minAgeHours)
	return insights, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func categoryPerformance(records []*models.PerformanceRecord) []models.CategoryPerformance {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		sums[rec.Category] += rec.EngagementRate
		counts[rec.Category]++
	}

	out := make([]models.CategoryPerformance, 0, len(counts))
	for category, n := range counts {
		out = append(out, models.CategoryPerformance{
			Category:      category,
			AvgEngagement: round3(sums[category] / float64(n)),
			Posts:         n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgEngagement != out[j].AvgEngagement {
			return out[i].AvgEngagement > out[j].AvgEngagement
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func hashtagPerformance(records []*models.PerformanceRecord) []models.HashtagPerformance {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		seen := make(map[string]bool, len(rec.Hashtags))
		for _, tag := range rec.Hashtags {
			tag = strings.ToLower(tag)
			if seen[tag] {
				continue
			}
			seen[tag] = true
			sums[tag] += rec.EngagementRate
			counts[tag]++
		}
	}

	out := make([]models.HashtagPerformance, 0)
	for tag, n := range counts {
		if n < minHashtagUses {
			continue
		}
		out = append(out, models.HashtagPerformance{
			Hashtag:       tag,
			AvgEngagement: round3(sums[tag] / float64(n)),
			Uses:          n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgEngagement != out[j].AvgEngagement {
			return out[i].AvgEngagement > out[j].AvgEngagement
		}
		return out[i].Hashtag < out[j].Hashtag
	})
	return out
}

func summarize(records []*models.PerformanceRecord, best bool) []models.PostSummary {
	sorted := make([]*models.PerformanceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PerformanceScore != sorted[j].PerformanceScore {
			if best {
				return sorted[i].PerformanceScore > sorted[j].PerformanceScore
			}
			return sorted[i].PerformanceScore < sorted[j].PerformanceScore
		}
		return sorted[i].PostID < sorted[j].PostID
	})
	if len(sorted) > summaryPostCount {
		sorted = sorted[:summaryPostCount]
	}

	out := make([]models.PostSummary, 0, len(sorted))
	for _, rec := range sorted {
		out = append(out, models.PostSummary{
			PostID:            rec.PostID,
			Text:              truncateRunes(rec.Text, summaryTextRunes),
			Category:          rec.Category,
			PerformanceScore:  rec.PerformanceScore,
			EngagementRate:    rec.EngagementRate,
			AuthenticityScore: rec.AuthenticityScore,
		})
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func authenticityCorrelation(records []*models.PerformanceRecord) models.AuthenticityCorrelation {
	corr := models.AuthenticityCorrelation{Split: authenticitySplit}
	var highSum, lowSum float64
	for _, rec := range records {
		if rec.AuthenticityScore >= authenticitySplit {
			corr.HighCount++
			highSum += rec.PerformanceScore
		} else {
			corr.LowCount++
			lowSum += rec.PerformanceScore
		}
	}
	if corr.HighCount > 0 {
		corr.HighAvgPerformance = math.Round(highSum/float64(corr.HighCount)*10) / 10
	}
	if corr.LowCount > 0 {
		corr.LowAvgPerformance = math.Round(lowSum/float64(corr.LowCount)*10) / 10
	}
	corr.HasComparableSamples = corr.HighCount > 0 && corr.LowCount > 0
	corr.HighOutperformsLow = corr.HasComparableSamples && corr.HighAvgPerformance > corr.LowAvgPerformance
	return corr
}

func recommend(insights *models.Insights) []string {
	recs := make([]string, 0, 3)
	if insights.TotalAnalyzed == 0 {
		return recs
	}

	if len(insights.Categories) > 0 {
		top := insights.Categories[0]
		recs = append(recs, fmt.Sprintf("Focus on %s content (avg engagement %.2f over %d posts)", top.Category, top.AvgEngagement, top.Posts))
	}

	if len(insights.Hashtags) > 0 {
		n := min(recommendedHashtag, len(insights.Hashtags))
		tags := make([]string, 0, n)
		for _, h := range insights.Hashtags[:n] {
			tags = append(tags, h.Hashtag)
		}
		recs = append(recs, "Use top hashtags: "+strings.Join(tags, ", "))
	}

	corr := insights.Authenticity
	if corr.HighOutperformsLow {
		recs = append(recs, fmt.Sprintf("Keep authenticity ≥%d: those posts score %.1f vs %.1f", corr.Split, corr.HighAvgPerformance, corr.LowAvgPerformance))
	}
	return recs
}

package services

import (
	"fmt"
	"time"
	"voiceloop/internal/models"
	"voiceloop/internal/structures"
)

var fixedNow = time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC)

func testConfig() *structures.Config {
	return &structures.Config{
		Platform:  structures.PlatformConfig{PageSize: 50},
		Ingest:    structures.IngestConfig{MaxPosts: 100},
		Analyzer:  structures.AnalyzerConfig{TopPosts: 3, MaxBigrams: 10},
		Generator: structures.GeneratorConfig{Threshold: 95, Count: 5},
	}
}

func makePosts(prefix string, n int) []models.SourcePost {
	posts := make([]models.SourcePost, n)
	for i := range posts {
		posts[i] = models.SourcePost{
			ID:        fmt.Sprintf("%s-%d", prefix, i),
			Text:      fmt.Sprintf("post %s number %d", prefix, i),
			PostedAt:  fixedNow.Add(-time.Duration(i) * time.Hour),
			LikeCount: i,
			MediaKind: models.MediaImage,
		}
	}
	return posts
}

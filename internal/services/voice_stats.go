package services

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"voiceloop/internal/models"
)

// toneMarkers are matched as case-insensitive substrings. A post counts once
// per group no matter how many markers it contains.
var toneMarkers = map[string][]string{
	"raw":           {"fuck", "shit", "damn", "crap", "wtf", "pissed"},
	"questioning":   {"?", "why do", "why does", "what if", "how come", "ever wonder"},
	"philosophical": {"meaning", "truth", "purpose", "existence", "conscious", "the soul"},
}

var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{N}_]+`)

const minBigramCount = 3

func computeCorpusStats(posts []models.SourcePost, maxBigrams int) models.CorpusStats {
	stats := models.CorpusStats{
		PostCount:       len(posts),
		ToneMarkers:     make(map[string]int, len(toneMarkers)),
		RepeatedBigrams: []models.Bigram{},
		Hashtags:        []models.HashtagCount{},
	}
	if len(posts) == 0 {
		return stats
	}

	totalWords := 0
	bigrams := make(map[string]int)
	hashtags := make(map[string]int)

	for group := range toneMarkers {
		stats.ToneMarkers[group] = 0
	}

	for _, post := range posts {
		totalWords += len(strings.Fields(post.Text))
		lower := strings.ToLower(post.Text)

		for group, markers := range toneMarkers {
			for _, marker := range markers {
				if strings.Contains(lower, marker) {
					stats.ToneMarkers[group]++
					break
				}
			}
		}

		words := tokenize(lower)
		for i := 0; i+1 < len(words); i++ {
			bigrams[words[i]+" "+words[i+1]]++
		}

		for _, tag := range hashtagPattern.FindAllString(lower, -1) {
			hashtags[tag]++
		}
	}

	stats.AvgWordCount = float64(totalWords) / float64(len(posts))

	for phrase, count := range bigrams {
		if count >= minBigramCount {
			stats.RepeatedBigrams = append(stats.RepeatedBigrams, models.Bigram{Phrase: phrase, Count: count})
		}
	}
	sort.Slice(stats.RepeatedBigrams, func(i, j int) bool {
		a, b := stats.RepeatedBigrams[i], stats.RepeatedBigrams[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Phrase < b.Phrase
	})
	if maxBigrams > 0 && len(stats.RepeatedBigrams) > maxBigrams {
		stats.RepeatedBigrams = stats.RepeatedBigrams[:maxBigrams]
	}

	for tag, count := range hashtags {
		stats.Hashtags = append(stats.Hashtags, models.HashtagCount{Tag: tag, Count: count})
	}
	sort.Slice(stats.Hashtags, func(i, j int) bool {
		a, b := stats.Hashtags[i], stats.Hashtags[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Tag < b.Tag
	})

	return stats
}

// tokenize splits lowercased text into words, dropping hashtags, mentions,
// links and surrounding punctuation.
func tokenize(text string) []string {
	fields := strings.Fields(text)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.HasPrefix(f, "#") || strings.HasPrefix(f, "@") || strings.HasPrefix(f, "http") {
			continue
		}
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
		})
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

// topByEngagement returns up to n posts ordered by engagement, keeping the
// original order between equals.
func topByEngagement(posts []models.SourcePost, n int) []models.SourcePost {
	sorted := make([]models.SourcePost, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Engagement() > sorted[j].Engagement()
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

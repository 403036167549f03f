package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"voiceloop/internal/clients/llm"
	"voiceloop/internal/models"
	"voiceloop/internal/providers"
	"voiceloop/internal/structures"

	json "github.com/goccy/go-json"
	"github.com/gookit/validate"
)

type VoiceAnalyzerInterface interface {
	Analyze(ctx context.Context, posts []models.SourcePost) (*models.VoiceProfile, error)
}

type VoiceAnalyzer struct {
	completer  llm.Completer
	topPosts   int
	maxBigrams int
	logger     providers.Logger
	now        func() time.Time
}

func NewVoiceAnalyzer(conf *structures.Config, completer llm.Completer, logger providers.Logger) VoiceAnalyzerInterface {
	return &VoiceAnalyzer{
		completer:  completer,
		topPosts:   conf.Analyzer.TopPosts,
		maxBigrams: conf.Analyzer.MaxBigrams,
		logger:     logger,
		now:        time.Now,
	}
}

type extractedTone struct {
	Primary      []string `json:"primary" validate:"required"`
	Intensity    int      `json:"intensity" validate:"required|int|min:1|max:10"`
	Authenticity int      `json:"authenticity" validate:"required|int|min:1|max:10"`
}

type extractedStyle struct {
	AvgLength         int    `json:"avg_length" validate:"int|min:0"`
	SentenceStructure string `json:"sentence_structure" validate:"required"`
	PunctuationStyle  string `json:"punctuation_style"`
	Capitalization    string `json:"capitalization"`
}

type extractedHashtagStyle struct {
	Usage    string   `json:"usage" validate:"required|in:minimal,moderate,heavy"`
	Types    []string `json:"types"`
	Examples []string `json:"examples"`
}

type extractedVocabulary struct {
	CommonWords   []string `json:"common_words" validate:"required"`
	UniquePhrases []string `json:"unique_phrases"`
	AvoidWords    []string `json:"avoid_words"`
}

type extractedThemes struct {
	Primary   []string `json:"primary" validate:"required"`
	Secondary []string `json:"secondary"`
	Taboo     []string `json:"taboo"`
}

// profileExtraction is the shape the model is asked to return. A profile
// without themes, vocabulary or example posts is rejected.
type profileExtraction struct {
	Tone         extractedTone         `json:"tone"`
	Style        extractedStyle        `json:"style"`
	Vocabulary   extractedVocabulary   `json:"vocabulary"`
	Themes       extractedThemes       `json:"themes"`
	HashtagStyle extractedHashtagStyle `json:"hashtag_style"`
	ExamplePosts []models.ExamplePost  `json:"example_posts" validate:"required"`
}

const profileSchema = `{
  "tone": {"primary": ["string"], "intensity": 1-10, "authenticity": 1-10},
  "style": {"avg_length": int, "sentence_structure": "string", "punctuation_style": "string", "capitalization": "string"},
  "vocabulary": {"common_words": ["string"], "unique_phrases": ["string"], "avoid_words": ["string"]},
  "themes": {"primary": ["string"], "secondary": ["string"], "taboo": ["string"]},
  "hashtag_style": {"usage": "minimal|moderate|heavy", "types": ["string"], "examples": ["string"]},
  "example_posts": [{"text": "string", "engagement": int, "rationale": "string"}]
}`

// Analyze computes local statistics over the corpus and asks the model for
// the deep characterization. The result is not persisted and carries no
// version yet.
func (va *VoiceAnalyzer) Analyze(ctx context.Context, posts []models.SourcePost) (*models.VoiceProfile, error) {
	if len(posts) == 0 {
		return nil, &ProfileGenerationError{Stage: StageAnalyze, Reason: "corpus is empty"}
	}

	stats := computeCorpusStats(posts, va.maxBigrams)
	top := topByEngagement(posts, va.topPosts)
	va.logger.Debugf(providers.TypeAnalyze, "Corpus stats: %d posts, %.1f avg words, %d repeated bigrams, %d hashtags",
		stats.PostCount, stats.AvgWordCount, len(stats.RepeatedBigrams), len(stats.Hashtags))

	raw, err := va.completer.Complete(ctx, buildProfilePrompt(stats, top))
	if err != nil {
		return nil, &ProfileGenerationError{Stage: StageAnalyze, Reason: "model request failed", Err: err}
	}

	var extraction profileExtraction
	if err = llm.ExtractObject(raw, &extraction); err != nil {
		return nil, &ProfileGenerationError{Stage: StageAnalyze, Reason: "model output is not a profile", Excerpt: excerpt(raw), Err: err}
	}

	v := validate.Struct(&extraction)
	if !v.Validate() {
		return nil, &ProfileGenerationError{Stage: StageAnalyze, Reason: "profile failed validation", Excerpt: excerpt(raw), Err: v.Errors}
	}

	profile := &models.VoiceProfile{
		GeneratedAt: va.now().UTC(),
		Tone: models.Tone{
			Primary:      extraction.Tone.Primary,
			Intensity:    extraction.Tone.Intensity,
			Authenticity: extraction.Tone.Authenticity,
		},
		Style: models.Style{
			AvgLength:         extraction.Style.AvgLength,
			SentenceStructure: extraction.Style.SentenceStructure,
			PunctuationStyle:  extraction.Style.PunctuationStyle,
			Capitalization:    extraction.Style.Capitalization,
		},
		Vocabulary: models.Vocabulary{
			CommonWords:   extraction.Vocabulary.CommonWords,
			UniquePhrases: extraction.Vocabulary.UniquePhrases,
			AvoidWords:    extraction.Vocabulary.AvoidWords,
		},
		Themes: models.Themes{
			Primary:   extraction.Themes.Primary,
			Secondary: extraction.Themes.Secondary,
			Taboo:     extraction.Themes.Taboo,
		},
		HashtagStyle: models.HashtagStyle{
			Usage:    models.HashtagUsage(extraction.HashtagStyle.Usage),
			Types:    extraction.HashtagStyle.Types,
			Examples: extraction.HashtagStyle.Examples,
		},
		ExamplePosts: extraction.ExamplePosts,
		Corpus:       stats,
	}
	va.logger.Infof(providers.TypeAnalyze, "Voice profile derived from %d posts: tone %s, intensity %d",
		len(posts), strings.Join(profile.Tone.Primary, "/"), profile.Tone.Intensity)
	return profile, nil
}

func buildProfilePrompt(stats models.CorpusStats, top []models.SourcePost) string {
	var sb strings.Builder

	sb.WriteString("You are analyzing a creator's historical social posts to describe their authentic writing voice.\n\n")
	sb.WriteString("CORPUS STATISTICS:\n")
	fmt.Fprintf(&sb, "- posts analyzed: %d\n", stats.PostCount)
	fmt.Fprintf(&sb, "- average words per post: %.1f\n", stats.AvgWordCount)

	groups := make([]string, 0, len(stats.ToneMarkers))
	for group := range stats.ToneMarkers {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	for _, group := range groups {
		fmt.Fprintf(&sb, "- posts with %s markers: %d\n", group, stats.ToneMarkers[group])
	}

	if len(stats.RepeatedBigrams) > 0 {
		sb.WriteString("- repeated phrases: ")
		for i, b := range stats.RepeatedBigrams {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%q x%d", b.Phrase, b.Count)
		}
		sb.WriteString("\n")
	}
	if len(stats.Hashtags) > 0 {
		sb.WriteString("- hashtags used: ")
		for i, h := range stats.Hashtags {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s x%d", h.Tag, h.Count)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nHIGHEST ENGAGEMENT POSTS (engagement = likes + comments*10):\n")
	for i, post := range top {
		fmt.Fprintf(&sb, "%d. [engagement %d] %s\n", i+1, post.Engagement(), post.Text)
	}

	sb.WriteString("\nDescribe the voice. Respond with a single JSON object and nothing else, using exactly this schema:\n")
	sb.WriteString(profileSchema)
	sb.WriteString("\nexample_posts must be chosen from the posts above, with their engagement copied and a rationale for why each is representative.\n")
	return sb.String()
}

// marshalProfile renders a profile for embedding in a prompt.
func marshalProfile(profile *models.VoiceProfile) string {
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

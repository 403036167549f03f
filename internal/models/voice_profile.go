package models

import "time"

type HashtagUsage string

const (
	HashtagMinimal  HashtagUsage = "minimal"
	HashtagModerate HashtagUsage = "moderate"
	HashtagHeavy    HashtagUsage = "heavy"
)

type Tone struct {
	Primary      []string `json:"primary"`
	Intensity    int      `json:"intensity"`
	Authenticity int      `json:"authenticity"`
}

type Style struct {
	AvgLength         int    `json:"avg_length"`
	SentenceStructure string `json:"sentence_structure"`
	PunctuationStyle  string `json:"punctuation_style"`
	Capitalization    string `json:"capitalization"`
}

type Vocabulary struct {
	CommonWords   []string `json:"common_words"`
	UniquePhrases []string `json:"unique_phrases"`
	AvoidWords    []string `json:"avoid_words"`
}

type Themes struct {
	Primary   []string `json:"primary"`
	Secondary []string `json:"secondary"`
	Taboo     []string `json:"taboo"`
}

type HashtagStyle struct {
	Usage    HashtagUsage `json:"usage"`
	Types    []string     `json:"types"`
	Examples []string     `json:"examples"`
}

type ExamplePost struct {
	Text       string `json:"text"`
	Engagement int    `json:"engagement"`
	Rationale  string `json:"rationale"`
}

type Bigram struct {
	Phrase string `json:"phrase"`
	Count  int    `json:"count"`
}

type HashtagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// CorpusStats are the cheap local statistics computed before the model is
// consulted. They are kept on the profile so a reader can see what it was
// derived from.
type CorpusStats struct {
	PostCount       int            `json:"post_count"`
	AvgWordCount    float64        `json:"avg_word_count"`
	ToneMarkers     map[string]int `json:"tone_markers"`
	RepeatedBigrams []Bigram       `json:"repeated_bigrams"`
	Hashtags        []HashtagCount `json:"hashtags"`
}

type VoiceProfile struct {
	Version      int           `json:"version"`
	GeneratedAt  time.Time     `json:"generated_at"`
	Tone         Tone          `json:"tone"`
	Style        Style         `json:"style"`
	Vocabulary   Vocabulary    `json:"vocabulary"`
	Themes       Themes        `json:"themes"`
	HashtagStyle HashtagStyle  `json:"hashtag_style"`
	ExamplePosts []ExamplePost `json:"example_posts"`
	Corpus       CorpusStats   `json:"corpus"`
}

// Age reports how old the profile is relative to now.
func (p *VoiceProfile) Age(now time.Time) time.Duration {
	return now.Sub(p.GeneratedAt)
}

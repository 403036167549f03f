package models

type ContentBrief struct {
	ContentKind    string `json:"content_kind"`
	Topic          string `json:"topic"`
	OptionalLink   string `json:"optional_link,omitempty"`
	TargetPlatform string `json:"target_platform"`
	// PerformanceNotes carries insight recommendations from earlier passes.
	PerformanceNotes []string `json:"performance_notes,omitempty"`
}

type GeneratedCandidate struct {
	ID                string   `json:"id"`
	Text              string   `json:"text"`
	Hashtags          []string `json:"hashtags"`
	AuthenticityScore int      `json:"authenticity_score"`
	Rationale         string   `json:"rationale"`
	Category          string   `json:"category"`
	TargetPlatform    string   `json:"target_platform"`
}

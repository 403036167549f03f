package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"voiceloop/internal/clients/llm"
	"voiceloop/internal/models"
	"voiceloop/internal/providers"
	"voiceloop/internal/structures"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

type CandidateGeneratorInterface interface {
	Generate(ctx context.Context, profile *models.VoiceProfile, brief models.ContentBrief, count int) ([]models.GeneratedCandidate, error)
	GenerateBest(ctx context.Context, profile *models.VoiceProfile, brief models.ContentBrief) (*models.GeneratedCandidate, *GateReport, error)
}

type CandidateGenerator struct {
	completer llm.Completer
	gate      *AuthenticityGate
	count     int
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
}

func NewCandidateGenerator(conf *structures.Config, completer llm.Completer, gate *AuthenticityGate, logger providers.Logger, metrics providers.MetricsProviderInterface) CandidateGeneratorInterface {
	return &CandidateGenerator{
		completer: completer,
		gate:      gate,
		count:     conf.Generator.Count,
		logger:    logger,
		metrics:   metrics,
	}
}

// rawCandidate tolerates scores given as strings or fractions.
type rawCandidate struct {
	Text              string   `json:"text"`
	Hashtags          []string `json:"hashtags"`
	AuthenticityScore any      `json:"authenticity_score"`
	Rationale         string   `json:"rationale"`
	Category          string   `json:"category"`
}

const candidateSchema = `[{"text": "string", "hashtags": ["#tag"], "authenticity_score": 0-100, "rationale": "string", "category": "string"}]`

// Generate asks the model for count candidates and returns them ordered by
// authenticity score, highest first.
func (cg *CandidateGenerator) Generate(ctx context.Context, profile *models.VoiceProfile, brief models.ContentBrief, count int) ([]models.GeneratedCandidate, error) {
	if profile == nil {
		return nil, &GenerationError{Stage: StageGenerate, Reason: "no voice profile available"}
	}
	if count <= 0 {
		return nil, &GenerationError{Stage: StageGenerate, Reason: "candidate count must be positive"}
	}

	raw, err := cg.completer.Complete(ctx, buildCandidatePrompt(profile, brief, count))
	if err != nil {
		return nil, &GenerationError{Stage: StageGenerate, Reason: "model request failed", Err: err}
	}

	var parsed []rawCandidate
	if err = llm.ExtractArray(raw, &parsed); err != nil {
		return nil, &GenerationError{Stage: StageGenerate, Reason: "model output is not a candidate list", Excerpt: excerpt(raw), Err: err}
	}

	candidates := make([]models.GeneratedCandidate, 0, len(parsed))
	for i, rc := range parsed {
		text := strings.TrimSpace(rc.Text)
		if text == "" {
			cg.logger.Warnf(providers.TypeGenerate, "Dropping candidate %d without text", i+1)
			continue
		}
		score, err := cast.ToFloat64E(rc.AuthenticityScore)
		if err != nil {
			cg.logger.Warnf(providers.TypeGenerate, "Candidate %d has unreadable score %v, treating as 0", i+1, rc.AuthenticityScore)
			score = 0
		}
		category := strings.TrimSpace(rc.Category)
		if category == "" {
			category = brief.ContentKind
		}
		candidates = append(candidates, models.GeneratedCandidate{
			ID:                uuid.NewString(),
			Text:              text,
			Hashtags:          normalizeHashtags(rc.Hashtags),
			AuthenticityScore: clampScore(score),
			Rationale:         strings.TrimSpace(rc.Rationale),
			Category:          category,
			TargetPlatform:    brief.TargetPlatform,
		})
	}
	if len(candidates) == 0 {
		return nil, &GenerationError{Stage: StageGenerate, Reason: "model returned no usable candidates", Excerpt: excerpt(raw)}
	}
	if len(candidates) != count {
		cg.logger.Warnf(providers.TypeGenerate, "Asked for %d candidates, got %d", count, len(candidates))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].AuthenticityScore > candidates[j].AuthenticityScore
	})
	for _, c := range candidates {
		cg.metrics.ObserveCandidateScore(c.AuthenticityScore)
	}
	return candidates, nil
}

// GenerateBest returns the top candidate only if it reaches the threshold.
// A refusal is not an error: the candidate is nil and the report explains
// how close the batch came.
func (cg *CandidateGenerator) GenerateBest(ctx context.Context, profile *models.VoiceProfile, brief models.ContentBrief) (*models.GeneratedCandidate, *GateReport, error) {
	candidates, err := cg.Generate(ctx, profile, brief, cg.count)
	if err != nil {
		return nil, nil, err
	}

	report := cg.gate.Evaluate(candidates)
	best := cg.gate.Select(report)
	cg.metrics.IncGateOutcome(best != nil)

	if best == nil {
		cg.logger.Warnf(providers.TypeGenerate, "No candidate published: %s (avg %.1f over %d). Best rationale: %s",
			report.Diagnostic, report.AverageScore, len(report.Candidates), report.BestRationale)
		return nil, &report, nil
	}

	cg.logger.Infof(providers.TypeGenerate, "Selected candidate %s at %d%%: %s", best.ID, best.AuthenticityScore, report.Diagnostic)
	return best, &report, nil
}

func clampScore(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, score))))
}

func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		out = append(out, tag)
	}
	return out
}

func buildCandidatePrompt(profile *models.VoiceProfile, brief models.ContentBrief, count int) string {
	var sb strings.Builder

	sb.WriteString("You write social posts in a specific creator's voice. The full voice profile follows.\n\n")
	sb.WriteString("VOICE PROFILE:\n")
	sb.WriteString(marshalProfile(profile))
	sb.WriteString("\n\n")

	if len(profile.Vocabulary.AvoidWords) > 0 {
		fmt.Fprintf(&sb, "NEVER use these words: %s\n", strings.Join(profile.Vocabulary.AvoidWords, ", "))
	}
	if len(profile.Vocabulary.UniquePhrases) > 0 {
		fmt.Fprintf(&sb, "Signature phrases (use naturally, never forced): %s\n", strings.Join(profile.Vocabulary.UniquePhrases, ", "))
	}
	if len(profile.Themes.Taboo) > 0 {
		fmt.Fprintf(&sb, "Never touch these themes: %s\n", strings.Join(profile.Themes.Taboo, ", "))
	}
	if len(profile.ExamplePosts) > 0 {
		sb.WriteString("Example posts in this voice:\n")
		for i, ex := range profile.ExamplePosts {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, ex.Text)
		}
	}

	sb.WriteString("\nBRIEF:\n")
	fmt.Fprintf(&sb, "- content type: %s\n", brief.ContentKind)
	fmt.Fprintf(&sb, "- topic: %s\n", brief.Topic)
	fmt.Fprintf(&sb, "- platform: %s\n", brief.TargetPlatform)
	if brief.OptionalLink != "" {
		fmt.Fprintf(&sb, "- link to include: %s\n", brief.OptionalLink)
	}
	if len(brief.PerformanceNotes) > 0 {
		sb.WriteString("\nWHAT HAS WORKED BEFORE:\n")
		for _, note := range brief.PerformanceNotes {
			fmt.Fprintf(&sb, "- %s\n", note)
		}
	}

	fmt.Fprintf(&sb, "\nWrite exactly %d candidate posts. For each, score from 0 to 100 how authentically it matches the voice profile and explain the score in the rationale. Be harsh: generic phrasing is not authentic.\n", count)
	sb.WriteString("Respond with a JSON array and nothing else, using this schema:\n")
	sb.WriteString(candidateSchema)
	sb.WriteString("\n")
	return sb.String()
}

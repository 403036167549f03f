package services

import (
	"fmt"
	"sort"
	"voiceloop/internal/models"
	"voiceloop/internal/structures"
)

// GateReport keeps every candidate of a batch, passing or not, so an
// operator can see how close generation came.
type GateReport struct {
	Candidates    []models.GeneratedCandidate `json:"candidates"`
	Passed        int                         `json:"passed"`
	AverageScore  float64                     `json:"average_score"`
	BestScore     int                         `json:"best_score"`
	BestRationale string                      `json:"best_rationale"`
	Threshold     int                         `json:"threshold"`
	Diagnostic    string                      `json:"diagnostic"`
}

// AuthenticityGate decides which candidates may be treated as output.
type AuthenticityGate struct {
	threshold int
}

func NewAuthenticityGate(conf *structures.Config) *AuthenticityGate {
	return &AuthenticityGate{threshold: conf.Generator.Threshold}
}

func (g *AuthenticityGate) Threshold() int {
	return g.threshold
}

func (g *AuthenticityGate) Passes(c models.GeneratedCandidate) bool {
	return c.AuthenticityScore >= g.threshold
}

// Evaluate summarizes a batch. Candidates in the report are ordered by score,
// highest first.
func (g *AuthenticityGate) Evaluate(candidates []models.GeneratedCandidate) GateReport {
	sorted := make([]models.GeneratedCandidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AuthenticityScore > sorted[j].AuthenticityScore
	})

	report := GateReport{Candidates: sorted, Threshold: g.threshold}
	if len(sorted) == 0 {
		report.Diagnostic = "no candidates were generated"
		return report
	}

	total := 0
	for _, c := range sorted {
		total += c.AuthenticityScore
		if g.Passes(c) {
			report.Passed++
		}
	}
	report.AverageScore = float64(total) / float64(len(sorted))
	report.BestScore = sorted[0].AuthenticityScore
	report.BestRationale = sorted[0].Rationale

	if report.Passed == 0 {
		report.Diagnostic = fmt.Sprintf("best was %d%%, need ≥%d%%", report.BestScore, g.threshold)
	} else {
		report.Diagnostic = fmt.Sprintf("%d of %d candidates reached ≥%d%%", report.Passed, len(sorted), g.threshold)
	}
	return report
}

// Select returns the top candidate if it passes, nil otherwise.
func (g *AuthenticityGate) Select(report GateReport) *models.GeneratedCandidate {
	if len(report.Candidates) == 0 || !g.Passes(report.Candidates[0]) {
		return nil
	}
	best := report.Candidates[0]
	return &best
}

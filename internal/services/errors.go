package services

import (
	"errors"
	"fmt"
)

// ErrAlreadyTracked is returned when a post id already has a performance record.
var ErrAlreadyTracked = errors.New("post is already tracked")

// StageFailure is implemented by every typed stage error so callers can
// report which stage failed and why without switching on concrete types.
type StageFailure interface {
	error
	StageName() string
	FailureReason() string
}

type IngestionError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *IngestionError) Error() string {
	return formatStageError(e.Stage, e.Reason, e.Err)
}

func (e *IngestionError) Unwrap() error         { return e.Err }
func (e *IngestionError) StageName() string     { return e.Stage }
func (e *IngestionError) FailureReason() string { return e.Reason }

// ProfileGenerationError carries an excerpt of the model output that could
// not be turned into a profile.
type ProfileGenerationError struct {
	Stage   string
	Reason  string
	Excerpt string
	Err     error
}

func (e *ProfileGenerationError) Error() string {
	return formatStageError(e.Stage, e.Reason, e.Err)
}

func (e *ProfileGenerationError) Unwrap() error         { return e.Err }
func (e *ProfileGenerationError) StageName() string     { return e.Stage }
func (e *ProfileGenerationError) FailureReason() string { return e.Reason }

type GenerationError struct {
	Stage   string
	Reason  string
	Excerpt string
	Err     error
}

func (e *GenerationError) Error() string {
	return formatStageError(e.Stage, e.Reason, e.Err)
}

func (e *GenerationError) Unwrap() error         { return e.Err }
func (e *GenerationError) StageName() string     { return e.Stage }
func (e *GenerationError) FailureReason() string { return e.Reason }

// MetricsFetchError is recoverable: batch refreshes log it and move on.
type MetricsFetchError struct {
	Stage  string
	PostID string
	Reason string
	Err    error
}

func (e *MetricsFetchError) Error() string {
	return formatStageError(e.Stage, fmt.Sprintf("%s (post %s)", e.Reason, e.PostID), e.Err)
}

func (e *MetricsFetchError) Unwrap() error         { return e.Err }
func (e *MetricsFetchError) StageName() string     { return e.Stage }
func (e *MetricsFetchError) FailureReason() string { return e.Reason }

func formatStageError(stage, reason string, err error) string {
	if err == nil {
		return fmt.Sprintf("stage %s failed: %s", stage, reason)
	}
	return fmt.Sprintf("stage %s failed: %s: %s", stage, reason, err)
}

const excerptLimit = 300

func excerpt(raw string) string {
	runes := []rune(raw)
	if len(runes) <= excerptLimit {
		return raw
	}
	return string(runes[:excerptLimit]) + "..."
}

const (
	StageIngest   = "ingest"
	StageAnalyze  = "analyze"
	StageGenerate = "generate"
	StageTrack    = "track"
	StageInsight  = "insight"
)

package interfaces

import (
	"context"
	"errors"
	"voiceloop/internal/models"
)

var (
	ErrRecordNotFound = errors.New("performance record not found")
	ErrRecordExists   = errors.New("performance record already exists")
	ErrProfileExists  = errors.New("profile version already archived")
)

// PerformanceRepository hides how performance records are stored so the
// tracker never does its own load-mutate-save cycle.
type PerformanceRepository interface {
	Get(ctx context.Context, postID string) (*models.PerformanceRecord, error)
	Create(ctx context.Context, record *models.PerformanceRecord) error
	Upsert(ctx context.Context, record *models.PerformanceRecord) error
	ListByCategory(ctx context.Context, category string) ([]*models.PerformanceRecord, error)
	List(ctx context.Context) ([]*models.PerformanceRecord, error)
	Close() error
}

// ProfileStore keeps the current voice profile. Current returns nil without
// an error when no profile has been generated yet.
type ProfileStore interface {
	Current(ctx context.Context) (*models.VoiceProfile, error)
	Save(ctx context.Context, profile *models.VoiceProfile) error
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"voiceloop/internal/models"
	"voiceloop/internal/providers"
	"voiceloop/internal/services"
	"voiceloop/internal/storage/interfaces"
	"voiceloop/internal/structures"

	"go.uber.org/atomic"
)

const metricsPushTimeout = 10 * time.Second

var (
	ErrRunInProgress = errors.New("another pipeline pass is already running")
	ErrNoProfile     = errors.New("no voice profile yet, run the pipeline first")
)

// StageError names the stage a failure happened in when the cause itself
// does not carry one, e.g. storage errors.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error         { return e.Err }
func (e *StageError) StageName() string     { return e.Stage }
func (e *StageError) FailureReason() string { return e.Err.Error() }

type RunOptions struct {
	Quick    bool
	MaxPosts int
}

type RunResult struct {
	Skipped       bool                     `json:"skipped"`
	SkipReason    string                   `json:"skip_reason,omitempty"`
	PostsIngested int                      `json:"posts_ingested"`
	Profile       *models.VoiceProfile     `json:"profile,omitempty"`
	Refresh       *services.RefreshSummary `json:"refresh,omitempty"`
	Duration      time.Duration            `json:"duration"`
}

type GenerateResult struct {
	ProfileVersion int                        `json:"profile_version"`
	Candidate      *models.GeneratedCandidate `json:"candidate"`
	Report         *services.GateReport       `json:"report"`
	Notes          []string                   `json:"notes"`
}

type RunnerInterface interface {
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
	Generate(ctx context.Context, brief models.ContentBrief, withInsights bool) (*GenerateResult, error)
}

// Runner executes one pass at a time. Stages run strictly in sequence and a
// failed stage ends the pass without persisting anything after it.
type Runner struct {
	config    *structures.Config
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
	ingestor  services.PostIngestorInterface
	analyzer  services.VoiceAnalyzerInterface
	generator services.CandidateGeneratorInterface
	tracker   services.PerformanceTrackerInterface
	insights  services.InsightAggregatorInterface
	profiles  interfaces.ProfileStore
	opsMu     sync.Mutex
	running   atomic.Bool
	now       func() time.Time
}

func NewRunner(
	config *structures.Config,
	logger providers.Logger,
	metrics providers.MetricsProviderInterface,
	ingestor services.PostIngestorInterface,
	analyzer services.VoiceAnalyzerInterface,
	generator services.CandidateGeneratorInterface,
	tracker services.PerformanceTrackerInterface,
	insights services.InsightAggregatorInterface,
	profiles interfaces.ProfileStore,
) RunnerInterface {
	return &Runner{
		config:    config,
		logger:    logger,
		metrics:   metrics,
		ingestor:  ingestor,
		analyzer:  analyzer,
		generator: generator,
		tracker:   tracker,
		insights:  insights,
		profiles:  profiles,
		now:       time.Now,
	}
}

func (r *Runner) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.metrics.ObserveStageDuration(name, time.Since(start))
	if err != nil {
		r.logger.Errorf(providers.TypeApp, "Stage %s failed after %s: %s", name, time.Since(start).Round(time.Millisecond), err)
		return err
	}
	r.logger.Debugf(providers.TypeApp, "Stage %s done in %s", name, time.Since(start).Round(time.Millisecond))
	return nil
}

func (r *Runner) pushMetrics() {
	ctx, cancel := context.WithTimeout(context.Background(), metricsPushTimeout)
	defer cancel()
	if err := r.metrics.Push(ctx); err != nil {
		r.logger.Warnf(providers.TypeApp, "Unable to push metrics: %s", err)
	}
}

// Run ingests the corpus, derives a new profile version and persists it. In
// quick mode the pass is skipped while the current profile is younger than
// the configured maximum age.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	r.opsMu.Lock()
	defer r.opsMu.Unlock()
	defer r.pushMetrics()

	start := time.Now()
	result := &RunResult{}

	current, err := r.profiles.Current(ctx)
	if err != nil {
		return nil, &StageError{Stage: "load-profile", Err: err}
	}

	if opts.Quick && current != nil {
		age := current.Age(r.now())
		if age < r.config.Pipeline.QuickMaxAge {
			result.Skipped = true
			result.SkipReason = fmt.Sprintf("profile v%d is %s old, younger than %s", current.Version, age.Round(time.Minute), r.config.Pipeline.QuickMaxAge)
			result.Profile = current
			r.logger.Infof(providers.TypeApp, "Quick mode: skipping regeneration, %s", result.SkipReason)
		}
	}

	if !result.Skipped {
		maxPosts := opts.MaxPosts
		if maxPosts <= 0 {
			maxPosts = r.config.Ingest.MaxPosts
		}

		var posts []models.SourcePost
		err = r.stage(services.StageIngest, func() (err error) {
			posts, err = r.ingestor.Ingest(ctx, maxPosts)
			return err
		})
		if err != nil {
			return nil, err
		}
		result.PostsIngested = len(posts)

		var profile *models.VoiceProfile
		err = r.stage(services.StageAnalyze, func() (err error) {
			profile, err = r.analyzer.Analyze(ctx, posts)
			return err
		})
		if err != nil {
			return nil, err
		}

		profile.Version = 1
		if current != nil {
			profile.Version = current.Version + 1
		}
		if err = r.profiles.Save(ctx, profile); err != nil {
			r.logger.Errorf(providers.TypeApp, "Unable to persist profile v%d: %s", profile.Version, err)
			return nil, &StageError{Stage: "persist-profile", Err: err}
		}
		r.metrics.SetProfileVersion(profile.Version)
		result.Profile = profile
	}

	if r.config.Tracking.RefreshOnRun {
		var summary services.RefreshSummary
		err = r.stage(services.StageTrack, func() (err error) {
			summary, err = r.tracker.UpdateRecent(ctx, r.config.Tracking.WindowHours)
			return err
		})
		if err != nil {
			return nil, &StageError{Stage: services.StageTrack, Err: err}
		}
		result.Refresh = &summary
	}

	result.Duration = time.Since(start)
	if !result.Skipped {
		r.logger.Infof(providers.TypeApp, "Pass complete in %s: %d posts, profile v%d", result.Duration.Round(time.Millisecond), result.PostsIngested, result.Profile.Version)
	}
	return result, nil
}

// Generate produces candidates for a brief against the current profile.
// With insights enabled the latest recommendations are added to the brief.
func (r *Runner) Generate(ctx context.Context, brief models.ContentBrief, withInsights bool) (*GenerateResult, error) {
	r.opsMu.Lock()
	defer r.opsMu.Unlock()
	defer r.pushMetrics()

	profile, err := r.profiles.Current(ctx)
	if err != nil {
		return nil, &StageError{Stage: "load-profile", Err: err}
	}
	if profile == nil {
		return nil, &StageError{Stage: services.StageGenerate, Err: ErrNoProfile}
	}

	if withInsights {
		err = r.stage(services.StageInsight, func() error {
			insights, err := r.insights.Analyze(ctx, r.config.Tracking.MinAgeHours)
			if err != nil {
				return err
			}
			insights.ApplyTo(&brief)
			return nil
		})
		if err != nil {
			return nil, &StageError{Stage: services.StageInsight, Err: err}
		}
	}

	result := &GenerateResult{ProfileVersion: profile.Version, Notes: brief.PerformanceNotes}
	err = r.stage(services.StageGenerate, func() (err error) {
		result.Candidate, result.Report, err = r.generator.GenerateBest(ctx, profile, brief)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"voiceloop/internal/models"
	"voiceloop/internal/providers"
	"voiceloop/internal/storage/interfaces"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (e LogEntry) Message() string {
	return fmt.Sprintf(e.Format, e.Args...)
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// HasMessage reports whether a formatted message at level contains substr.
func (m *MockLogger) HasMessage(level, substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Logs {
		if e.Level == level && strings.Contains(e.Message(), substr) {
			return true
		}
	}
	return false
}

// MockCache implements providers.CacheProviderInterface. TTLs are recorded
// but never expire.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
	TTLs map[string]time.Duration
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte), TTLs: make(map[string]time.Duration)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) SetWithTTL(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
	m.TTLs[key] = ttl
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
	delete(m.TTLs, key)
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// MockMetrics implements providers.MetricsProviderInterface and counts the
// calls the pipeline stages make.
type MockMetrics struct {
	mu              sync.Mutex
	Stages          map[string]int
	ExternalCalls   map[string]int
	GatePassed      int
	GateRefused     int
	CandidateScores []int
	FetchFailures   int
	RecordsTotal    map[string]int
	ProfileVersion  int
	Pushes          int
	PushErr         error
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Stages:        make(map[string]int),
		ExternalCalls: make(map[string]int),
		RecordsTotal:  make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits()                                    {}
func (m *MockMetrics) IncCacheMisses()                                  {}
func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration)       {}

func (m *MockMetrics) ObserveStageDuration(stage string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stages[stage]++
}

func (m *MockMetrics) IncExternalCalls(service string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExternalCalls[service+":"+outcome]++
}

func (m *MockMetrics) IncGateOutcome(passed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if passed {
		m.GatePassed++
	} else {
		m.GateRefused++
	}
}

func (m *MockMetrics) ObserveCandidateScore(score int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandidateScores = append(m.CandidateScores, score)
}

func (m *MockMetrics) IncMetricsFetchFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchFailures++
}

func (m *MockMetrics) SetRecordsTotal(category string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordsTotal[category] = count
}

func (m *MockMetrics) SetProfileVersion(version int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProfileVersion = version
}

func (m *MockMetrics) Push(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pushes++
	return m.PushErr
}

// StubCompleter answers prompts from a queue of canned responses, or from Fn
// when it is set. Prompts are recorded in order.
type StubCompleter struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Fn        func(prompt string) (string, error)
	Prompts   []string
}

func (s *StubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Fn != nil {
		return s.Fn(prompt)
	}
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) == 0 {
		return "", errors.New("stub completer: no response queued")
	}
	resp := s.Responses[0]
	s.Responses = s.Responses[1:]
	return resp, nil
}

func (s *StubCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}

// MockPlatform serves post pages keyed by cursor ("" is the first page) and
// per-post metrics.
type MockPlatform struct {
	mu         sync.Mutex
	Pages      map[string]*models.PostPage
	PageErrs   map[string]error
	Metrics    map[string]*models.PostMetrics
	MetricErrs map[string]error
	ListCalls  []ListCall
	FetchCalls []string
}

type ListCall struct {
	Cursor string
	Limit  int
	At     time.Time
}

func (m *MockPlatform) ListPosts(ctx context.Context, cursor string, limit int) (*models.PostPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls = append(m.ListCalls, ListCall{Cursor: cursor, Limit: limit, At: time.Now()})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.PageErrs[cursor]; ok {
		return nil, err
	}
	page, ok := m.Pages[cursor]
	if !ok {
		return &models.PostPage{}, nil
	}
	return page, nil
}

func (m *MockPlatform) FetchMetrics(ctx context.Context, postID string) (*models.PostMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls = append(m.FetchCalls, postID)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.MetricErrs[postID]; ok {
		return nil, err
	}
	metrics, ok := m.Metrics[postID]
	if !ok {
		return nil, fmt.Errorf("post %s not found", postID)
	}
	copied := *metrics
	return &copied, nil
}

// MemoryRepository implements interfaces.PerformanceRepository in memory.
type MemoryRepository struct {
	mu      sync.Mutex
	Records map[string]*models.PerformanceRecord
	Closed  bool
}

func NewMemoryRepository(records ...*models.PerformanceRecord) *MemoryRepository {
	r := &MemoryRepository{Records: make(map[string]*models.PerformanceRecord)}
	for _, rec := range records {
		r.Records[rec.PostID] = cloneRecord(rec)
	}
	return r
}

func cloneRecord(rec *models.PerformanceRecord) *models.PerformanceRecord {
	out := *rec
	if rec.Hashtags != nil {
		out.Hashtags = append([]string{}, rec.Hashtags...)
	}
	if rec.Insights != nil {
		out.Insights = append([]string{}, rec.Insights...)
	}
	return &out
}

func (r *MemoryRepository) Get(_ context.Context, postID string) (*models.PerformanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.Records[postID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrRecordNotFound, postID)
	}
	return cloneRecord(rec), nil
}

func (r *MemoryRepository) Create(_ context.Context, record *models.PerformanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Records[record.PostID]; ok {
		return fmt.Errorf("%w: %s", interfaces.ErrRecordExists, record.PostID)
	}
	r.Records[record.PostID] = cloneRecord(record)
	return nil
}

func (r *MemoryRepository) Upsert(_ context.Context, record *models.PerformanceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Records[record.PostID] = cloneRecord(record)
	return nil
}

func (r *MemoryRepository) ListByCategory(_ context.Context, category string) ([]*models.PerformanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.PerformanceRecord, 0)
	for _, rec := range r.Records {
		if rec.Category == category {
			out = append(out, cloneRecord(rec))
		}
	}
	sortRecords(out)
	return out, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*models.PerformanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.PerformanceRecord, 0, len(r.Records))
	for _, rec := range r.Records {
		out = append(out, cloneRecord(rec))
	}
	sortRecords(out)
	return out, nil
}

func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = true
	return nil
}

func sortRecords(records []*models.PerformanceRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].PostedAt.Equal(records[j].PostedAt) {
			return records[i].PostedAt.Before(records[j].PostedAt)
		}
		return records[i].PostID < records[j].PostID
	})
}

// MemoryProfileStore implements interfaces.ProfileStore in memory.
type MemoryProfileStore struct {
	mu      sync.Mutex
	Profile *models.VoiceProfile
	Saved   []*models.VoiceProfile
	SaveErr error
}

func (s *MemoryProfileStore) Current(_ context.Context) (*models.VoiceProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Profile == nil {
		return nil, nil
	}
	copied := *s.Profile
	return &copied, nil
}

func (s *MemoryProfileStore) Save(_ context.Context, profile *models.VoiceProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	copied := *profile
	s.Profile = &copied
	s.Saved = append(s.Saved, &copied)
	return nil
}

package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"voiceloop/internal/models"
	"voiceloop/internal/services"
	"voiceloop/internal/structures"
	"voiceloop/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRepository struct {
	*testutil.MemoryRepository
	err error
}

func (f *failingRepository) List(_ context.Context) ([]*models.PerformanceRecord, error) {
	return nil, f.err
}

type failingProfileStore struct {
	testutil.MemoryProfileStore
	err error
}

func (f *failingProfileStore) Current(_ context.Context) (*models.VoiceProfile, error) {
	return nil, f.err
}

type apiFixture struct {
	controller *ApiController
	profiles   *testutil.MemoryProfileStore
	repo       *testutil.MemoryRepository
	cache      *testutil.MockCache
	logger     *testutil.MockLogger
}

func record(postID, category string, age time.Duration, likes int) *models.PerformanceRecord {
	rec := models.NewPerformanceRecord(models.GeneratedCandidate{Text: "text " + postID, Category: category, AuthenticityScore: 96}, postID, time.Now().Add(-age))
	rec.Likes = likes
	rec.EngagementRate = models.EngagementRate(likes, 0, 0, 0)
	return rec
}

func newAPIFixture(records ...*models.PerformanceRecord) *apiFixture {
	f := &apiFixture{
		profiles: &testutil.MemoryProfileStore{},
		repo:     testutil.NewMemoryRepository(records...),
		cache:    testutil.NewMockCache(),
		logger:   &testutil.MockLogger{},
	}
	conf := &structures.Config{Tracking: structures.TrackingConfig{MinAgeHours: 24}}
	f.controller = NewApiController(conf, f.logger, f.profiles, f.repo, services.NewInsightAggregator(f.repo, f.logger), f.cache)
	return f
}

func get(handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestGetProfile_NotFound(t *testing.T) {
	f := newAPIFixture()

	rr := get(f.controller.GetProfile, "/api/profile")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, f.cache.Data)
}

func TestGetProfile_ServesAndCaches(t *testing.T) {
	f := newAPIFixture()
	f.profiles.Profile = &models.VoiceProfile{Version: 7, Tone: models.Tone{Primary: []string{"raw"}}}

	rr := get(f.controller.GetProfile, "/api/profile")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["version"])
	require.Contains(t, f.cache.Data, profileCacheKey)

	f.profiles.Profile = &models.VoiceProfile{Version: 8}
	rr = get(f.controller.GetProfile, "/api/profile")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["version"])
}

func TestGetProfile_StoreError(t *testing.T) {
	f := newAPIFixture()
	store := &failingProfileStore{err: errors.New("corrupt")}
	f.controller.profiles = store

	rr := get(f.controller.GetProfile, "/api/profile")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.True(t, f.logger.HasMessage("error", "corrupt"))
	assert.Empty(t, f.cache.Data)
}

func TestGetInsights_DefaultMinAge(t *testing.T) {
	f := newAPIFixture(
		record("old", "tip", 48*time.Hour, 100),
		record("new", "tip", time.Hour, 300),
	)

	rr := get(f.controller.GetInsights, "/api/insights")
	require.Equal(t, http.StatusOK, rr.Code)

	var insights models.Insights
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &insights))
	assert.Equal(t, 24, insights.MinAgeHours)
	assert.Equal(t, 1, insights.TotalAnalyzed)
}

func TestGetInsights_MinAgeQuery(t *testing.T) {
	f := newAPIFixture(
		record("old", "tip", 48*time.Hour, 100),
		record("new", "tip", time.Hour, 300),
	)

	rr := get(f.controller.GetInsights, "/api/insights?minAge=0")
	require.Equal(t, http.StatusOK, rr.Code)

	var insights models.Insights
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &insights))
	assert.Equal(t, 2, insights.TotalAnalyzed)
	assert.Empty(t, f.cache.Data)
}

func TestGetInsights_InvalidMinAge(t *testing.T) {
	f := newAPIFixture()

	for _, q := range []string{"abc", "-1"} {
		rr := get(f.controller.GetInsights, "/api/insights?minAge="+q)
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestGetRecords_FiltersByCategory(t *testing.T) {
	f := newAPIFixture(
		record("a", "tip", 3*time.Hour, 1),
		record("b", "story", 2*time.Hour, 2),
		record("c", "tip", time.Hour, 3),
	)

	rr := get(f.controller.GetRecords, "/api/records?category=tip")
	require.Equal(t, http.StatusOK, rr.Code)

	var records []models.PerformanceRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].PostID)
	assert.Equal(t, "c", records[1].PostID)

	rr = get(f.controller.GetRecords, "/api/records")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &records))
	assert.Len(t, records, 3)
}

func TestGetRecords_EmptyIsArray(t *testing.T) {
	f := newAPIFixture()

	rr := get(f.controller.GetRecords, "/api/records?category=none")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestGetRecords_RepositoryError(t *testing.T) {
	f := newAPIFixture()
	f.controller.repo = &failingRepository{MemoryRepository: f.repo, err: errors.New("db locked")}

	rr := get(f.controller.GetRecords, "/api/records")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.True(t, f.logger.HasMessage("error", "db locked"))
}

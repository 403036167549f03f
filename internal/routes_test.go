package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"voiceloop/internal/controllers"
	"voiceloop/internal/models"
	"voiceloop/internal/services"
	"voiceloop/internal/structures"
	"voiceloop/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeFixture struct {
	conf     *structures.Config
	profiles *testutil.MemoryProfileStore
	repo     *testutil.MemoryRepository
	logger   *testutil.MockLogger
}

func newRouteFixture() *routeFixture {
	return &routeFixture{
		conf:     &structures.Config{Tracking: structures.TrackingConfig{MinAgeHours: 24}},
		profiles: &testutil.MemoryProfileStore{},
		repo:     testutil.NewMemoryRepository(),
		logger:   &testutil.MockLogger{},
	}
}

func (f *routeFixture) apiController() *controllers.ApiController {
	insights := services.NewInsightAggregator(f.repo, f.logger)
	return controllers.NewApiController(f.conf, f.logger, f.profiles, f.repo, insights, testutil.NewMockCache())
}

func (f *routeFixture) container() *Container {
	return NewContainer(
		f.conf, f.logger, testutil.NewMockMetrics(), nil, nil,
		services.NewInsightAggregator(f.repo, f.logger), f.repo, f.profiles,
		InitRoutes(f.apiController()),
		controllers.NewHealthController(f.logger, f.profiles, f.repo),
	)
}

func TestInitRoutes_RegistersApiRoutes(t *testing.T) {
	router := InitRoutes(newRouteFixture().apiController())
	routes := router.GetRoutes()

	require.Len(t, routes, 3)

	urls := make([]string, len(routes))
	for i, r := range routes {
		urls[i] = r.Url
	}
	assert.ElementsMatch(t, []string{"/api/profile", "/api/insights", "/api/records"}, urls)
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	router := InitRoutes(newRouteFixture().apiController())

	mux := http.NewServeMux()
	for _, r := range router.GetRoutes() {
		mux.Handle(r.Url, r.Handler)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/records", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "GET, HEAD", rr.Header().Get("Allow"))

	req = httptest.NewRequest(http.MethodDelete, "/api/profile", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestContainerHandler(t *testing.T) {
	f := newRouteFixture()
	f.profiles.Profile = &models.VoiceProfile{Version: 2, GeneratedAt: time.Now()}
	handler := f.container().Handler()

	cases := []struct {
		target string
		status int
	}{
		{"/health", http.StatusOK},
		{"/api/profile", http.StatusOK},
		{"/api/records", http.StatusOK},
		{"/api/insights?minAge=1", http.StatusOK},
		{"/metrics", http.StatusNotFound},
		{"/api/unknown", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.target, nil))
			assert.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestContainerHandler_MetricsEndpoint(t *testing.T) {
	f := newRouteFixture()
	f.conf.Metrics.Enabled = true
	handler := f.container().Handler()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"voiceloop/internal/providers"
	"voiceloop/internal/services"
	"voiceloop/internal/storage/interfaces"
	"voiceloop/internal/structures"

	json "github.com/goccy/go-json"
)

const profileCacheKey = "api:profile"

var errNotFound = errors.New("not found")

type ApiController struct {
	logger             providers.Logger
	profiles           interfaces.ProfileStore
	repo               interfaces.PerformanceRepository
	insights           services.InsightAggregatorInterface
	cache              providers.CacheProviderInterface
	defaultMinAgeHours int
}

func NewApiController(
	conf *structures.Config,
	logger providers.Logger,
	profiles interfaces.ProfileStore,
	repo interfaces.PerformanceRepository,
	insights services.InsightAggregatorInterface,
	cache providers.CacheProviderInterface,
) *ApiController {
	return &ApiController{
		logger:             logger,
		profiles:           profiles,
		repo:               repo,
		insights:           insights,
		cache:              cache,
		defaultMinAgeHours: conf.Tracking.MinAgeHours,
	}
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (ac *ApiController) respond(w http.ResponseWriter, endpoint string, result any, err error) ([]byte, bool) {
	if errors.Is(err, errNotFound) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		ac.logger.Errorf(providers.TypeApi, "%s: %s", endpoint, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}

	gson, err := json.Marshal(result)
	if err != nil {
		ac.logger.Errorf(providers.TypeApi, "%s: encode response: %s", endpoint, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	writeJSON(w, http.StatusOK, gson)
	return gson, true
}

// GetProfile serves the current voice profile. Responses are cached until
// the cache TTL expires, so a new version shows up with that delay.
func (ac *ApiController) GetProfile(w http.ResponseWriter, r *http.Request) {
	if data, ok := ac.cache.Get(profileCacheKey); ok {
		writeJSON(w, http.StatusOK, data)
		return
	}

	profile, err := ac.profiles.Current(r.Context())
	if err == nil && profile == nil {
		err = errNotFound
	}
	if gson, ok := ac.respond(w, "profile", profile, err); ok {
		ac.cache.Set(profileCacheKey, gson)
	}
}

func (ac *ApiController) GetInsights(w http.ResponseWriter, r *http.Request) {
	minAge := ac.defaultMinAgeHours
	if raw := r.URL.Query().Get("minAge"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		minAge = parsed
	}

	insights, err := ac.insights.Analyze(r.Context(), minAge)
	ac.respond(w, "insights", insights, err)
}

func (ac *ApiController) GetRecords(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	var (
		result any
		err    error
	)
	if category == "" {
		result, err = ac.repo.List(r.Context())
	} else {
		result, err = ac.repo.ListByCategory(r.Context(), category)
	}
	ac.respond(w, "records", result, err)
}

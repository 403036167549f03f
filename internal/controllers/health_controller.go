package controllers

import (
	"fmt"
	"net/http"
	"time"
	"voiceloop/internal/providers"
	"voiceloop/internal/storage/interfaces"

	json "github.com/goccy/go-json"
)

type HealthController struct {
	logger    providers.Logger
	profiles  interfaces.ProfileStore
	repo      interfaces.PerformanceRepository
	startTime time.Time
}

type healthResponse struct {
	Status         string  `json:"status"`
	Uptime         string  `json:"uptime"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
	ProfileVersion int     `json:"profile_version"`
	ProfileAge     string  `json:"profile_age,omitempty"`
	Records        int     `json:"records"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	now := time.Now()
	uptime := now.Sub(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
	}
	status := http.StatusOK

	profile, err := hc.profiles.Current(r.Context())
	if err != nil {
		hc.logger.Warnf(providers.TypeApi, "Health: profile unreadable: %s", err)
		resp.Status = "degraded"
	} else if profile != nil {
		resp.ProfileVersion = profile.Version
		resp.ProfileAge = formatDuration(profile.Age(now))
	}

	records, err := hc.repo.List(r.Context())
	if err != nil {
		hc.logger.Warnf(providers.TypeApi, "Health: records unreadable: %s", err)
		resp.Status = "degraded"
	} else {
		resp.Records = len(records)
	}

	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(logger providers.Logger, profiles interfaces.ProfileStore, repo interfaces.PerformanceRepository) *HealthController {
	return &HealthController{
		logger:    logger,
		profiles:  profiles,
		repo:      repo,
		startTime: time.Now(),
	}
}

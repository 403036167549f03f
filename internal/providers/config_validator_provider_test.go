package providers

import (
	"testing"
	"time"
	"voiceloop/internal/structures"

	"github.com/stretchr/testify/assert"
)

func validConfig() *structures.Config {
	return &structures.Config{
		WebServer: structures.Server{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Persistence: structures.Persistence{
			Backend: "file",
			Dir:     "/tmp/voiceloop",
		},
		Logger: structures.LoggerConfig{
			Level: "info",
			Mode:  0644,
			Dir:   "/tmp/logs",
		},
		Platform: structures.PlatformConfig{
			Name:     "instagram",
			BaseURL:  "https://graph.instagram.com",
			UserID:   "17841400000000000",
			PageSize: 50,
			Timeout:  30 * time.Second,
		},
		Ingest: structures.IngestConfig{
			MaxPosts:     500,
			RequestDelay: time.Second,
		},
		LLM: structures.LLMConfig{
			Provider: "anthropic",
			Model:    "claude-sonnet-4-5",
			Timeout:  3 * time.Minute,
		},
		Analyzer:  structures.AnalyzerConfig{TopPosts: 20},
		Generator: structures.GeneratorConfig{Threshold: 95, Count: 10},
		Tracking:  structures.TrackingConfig{WindowHours: 48, MinAgeHours: 24},
		Pipeline:  structures.PipelineConfig{QuickMaxAge: 7 * 24 * time.Hour},
	}
}

func TestConfigValidator_ValidConfig(t *testing.T) {
	v := NewCnfValidator(validConfig())
	assert.NoError(t, v.Validate())
}

func TestConfigValidator_EmptyHost(t *testing.T) {
	c := validConfig()
	c.WebServer.Host = ""
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_InvalidLogLevel(t *testing.T) {
	c := validConfig()
	c.Logger.Level = "verbose"
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_UnknownBackend(t *testing.T) {
	c := validConfig()
	c.Persistence.Backend = "mongo"
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_UnknownLLMProvider(t *testing.T) {
	c := validConfig()
	c.LLM.Provider = "markov"
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_ThresholdAboveHundred(t *testing.T) {
	c := validConfig()
	c.Generator.Threshold = 101
	assert.Error(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_MissingUserID(t *testing.T) {
	c := validConfig()
	c.Platform.UserID = ""
	assert.Error(t, NewCnfValidator(c).Validate())
}

package structures

import (
	"net/http"
	"time"
)

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type Route struct {
	Url     string
	Handler http.Handler
}

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	Backend            string `yaml:"backend" validate:"required|in:file,sqlite"`
	Dir                string `yaml:"dir" validate:"required"`
	Compress           bool   `yaml:"compress"`
	KeepProfileHistory bool   `yaml:"keepProfileHistory"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required"`
}

type PlatformConfig struct {
	Name         string        `yaml:"name" validate:"required"`
	BaseURL      string        `yaml:"baseURL" validate:"required|fullUrl"`
	UserID       string        `yaml:"userID" validate:"required"`
	Token        string        `yaml:"token"`
	RefreshToken bool          `yaml:"refreshToken"`
	PageSize     int           `yaml:"pageSize" validate:"required|min:1|max:100"`
	Timeout      time.Duration `yaml:"timeout" validate:"required"`
	MaxRetries   int           `yaml:"maxRetries"`
}

type IngestConfig struct {
	MaxPosts     int           `yaml:"maxPosts" validate:"required|min:1"`
	RequestDelay time.Duration `yaml:"requestDelay"`
}

type LLMConfig struct {
	Provider   string        `yaml:"provider" validate:"required|in:anthropic,openai"`
	Model      string        `yaml:"model" validate:"required"`
	APIKey     string        `yaml:"apiKey"`
	APIURL     string        `yaml:"apiURL"`
	MaxTokens  int           `yaml:"maxTokens"`
	Timeout    time.Duration `yaml:"timeout" validate:"required"`
	MaxRetries int           `yaml:"maxRetries"`
}

type AnalyzerConfig struct {
	TopPosts   int `yaml:"topPosts" validate:"required|min:1"`
	MaxBigrams int `yaml:"maxBigrams"`
}

type GeneratorConfig struct {
	Threshold int `yaml:"threshold" validate:"int|min:0|max:100"`
	Count     int `yaml:"count" validate:"required|min:1|max:50"`
}

type TrackingConfig struct {
	WindowHours  int  `yaml:"windowHours" validate:"required|min:1"`
	MinAgeHours  int  `yaml:"minAgeHours"`
	RefreshOnRun bool `yaml:"refreshOnRun"`
}

type PipelineConfig struct {
	QuickMaxAge time.Duration `yaml:"quickMaxAge" validate:"required"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled"`
	PushgatewayURL string `yaml:"pushgatewayURL"`
	Job            string `yaml:"job"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	Platform    PlatformConfig  `yaml:"platform"`
	Ingest      IngestConfig    `yaml:"ingest"`
	LLM         LLMConfig       `yaml:"llm"`
	Analyzer    AnalyzerConfig  `yaml:"analyzer"`
	Generator   GeneratorConfig `yaml:"generator"`
	Tracking    TrackingConfig  `yaml:"tracking"`
	Pipeline    PipelineConfig  `yaml:"pipeline"`
	WebServer   Server          `yaml:"webServer"`
	Persistence Persistence     `yaml:"persistence"`
	Logger      LoggerConfig    `yaml:"logger"`
	Cache       CacheConfig     `yaml:"cache"`
	Metrics     MetricsConfig   `yaml:"metrics"`
}

package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"voiceloop/internal/structures"

	"github.com/spf13/viper"
)

const AppName = "voiceloop"

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	setDefaults(v)

	v.BindEnv("logger.level", "VOICELOOP_LOG_LEVEL")
	v.BindEnv("persistence.dir", "VOICELOOP_DATA_DIR")
	v.BindEnv("persistence.backend", "VOICELOOP_STORE_BACKEND")
	v.BindEnv("platform.token", "VOICELOOP_PLATFORM_TOKEN")
	v.BindEnv("platform.userID", "VOICELOOP_PLATFORM_USER_ID")
	v.BindEnv("llm.provider", "VOICELOOP_LLM_PROVIDER")
	v.BindEnv("llm.model", "VOICELOOP_LLM_MODEL")
	v.BindEnv("llm.apiKey", "VOICELOOP_LLM_API_KEY")
	v.BindEnv("generator.threshold", "VOICELOOP_THRESHOLD")
	v.BindEnv("metrics.pushgatewayURL", "VOICELOOP_PUSHGATEWAY_URL")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = AppName
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("logger.dir", ".")
	v.SetDefault("persistence.backend", "file")
	v.SetDefault("persistence.dir", "./data")
	v.SetDefault("persistence.compress", false)
	v.SetDefault("platform.name", "instagram")
	v.SetDefault("platform.baseURL", "https://graph.instagram.com")
	v.SetDefault("platform.pageSize", 50)
	v.SetDefault("platform.timeout", "30s")
	v.SetDefault("platform.maxRetries", 3)
	v.SetDefault("ingest.maxPosts", 500)
	v.SetDefault("ingest.requestDelay", "1s")
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.maxTokens", 8192)
	v.SetDefault("llm.timeout", "180s")
	v.SetDefault("llm.maxRetries", 2)
	v.SetDefault("analyzer.topPosts", 20)
	v.SetDefault("analyzer.maxBigrams", 30)
	v.SetDefault("generator.threshold", 95)
	v.SetDefault("generator.count", 10)
	v.SetDefault("tracking.windowHours", 48)
	v.SetDefault("tracking.minAgeHours", 24)
	v.SetDefault("pipeline.quickMaxAge", "168h")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 8)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("metrics.job", AppName)
	v.SetDefault("webServer.host", "127.0.0.1")
	v.SetDefault("webServer.port", 8090)
}

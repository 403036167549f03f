package providers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"voiceloop/internal/structures"

	"github.com/rs/zerolog"
)

const logFileName = "voiceloop.log"

type TypeEnum uint8

const (
	TypeApp = iota
	TypeIngest
	TypeAnalyze
	TypeGenerate
	TypeTrack
	TypeInsight
	TypeApi
)

var typeNames = map[TypeEnum]string{
	TypeApp:      "app",
	TypeIngest:   "ingest",
	TypeAnalyze:  "analyze",
	TypeGenerate: "generate",
	TypeTrack:    "track",
	TypeInsight:  "insight",
	TypeApi:      "api",
}

func (t TypeEnum) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

type Logger interface {
	Errorf(t TypeEnum, format string, args ...interface{})
	Warnf(t TypeEnum, format string, args ...interface{})
	Debugf(t TypeEnum, format string, args ...interface{})
	Infof(t TypeEnum, format string, args ...interface{})
	Fatalf(t TypeEnum, format string, args ...interface{})
	Close()
}

type LogProvider struct {
	logger zerolog.Logger
	file   *os.File
}

func NewLogProvider(conf *structures.Config) (Logger, error) {
	level, err := zerolog.ParseLevel(conf.Logger.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", conf.Logger.Level, err)
	}
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	file, err := os.OpenFile(filepath.Join(conf.Logger.Dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, os.FileMode(conf.Logger.Mode))
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	var console io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(zerolog.MultiLevelWriter(console, file)).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &LogProvider{logger: logger, file: file}, nil
}

func (l *LogProvider) Errorf(t TypeEnum, format string, args ...interface{}) {
	l.logger.Error().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Warnf(t TypeEnum, format string, args ...interface{}) {
	l.logger.Warn().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Debugf(t TypeEnum, format string, args ...interface{}) {
	l.logger.Debug().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Infof(t TypeEnum, format string, args ...interface{}) {
	l.logger.Info().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Fatalf(t TypeEnum, format string, args ...interface{}) {
	l.logger.Fatal().Str("type", t.String()).Msgf(format, args...)
}

func (l *LogProvider) Close() {
	if l.file != nil {
		_ = l.file.Sync()
		_ = l.file.Close()
	}
}

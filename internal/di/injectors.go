//go:build wireinject
// +build wireinject

package di

import (
	"voiceloop/internal"
	"voiceloop/internal/clients/llm"
	"voiceloop/internal/clients/platform"
	"voiceloop/internal/controllers"
	"voiceloop/internal/pipeline"
	"voiceloop/internal/providers"
	"voiceloop/internal/services"
	"voiceloop/internal/storage"
	"voiceloop/internal/structures"

	wire "github.com/google/wire"
)

func InitContainer(cfg *structures.CliFlags) (*internal.Container, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		provideLogger,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		provideCompressor,
		storage.NewFileManager,
		storage.NewProfileStore,
		storage.NewPerformanceRepository,

		platform.NewTokenSource,
		platform.NewClient,
		llm.NewCompleter,

		services.NewPostIngestor,
		services.NewVoiceAnalyzer,
		services.NewAuthenticityGate,
		services.NewCandidateGenerator,
		services.NewPerformanceTracker,
		services.NewInsightAggregator,
		pipeline.NewRunner,

		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewContainer,
	)

	return nil, nil, nil
}

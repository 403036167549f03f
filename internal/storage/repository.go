package storage

import (
	"fmt"
	"voiceloop/internal/providers"
	"voiceloop/internal/storage/interfaces"
	"voiceloop/internal/structures"
)

// NewPerformanceRepository opens the configured backend. The returned cleanup
// closes it.
func NewPerformanceRepository(conf *structures.Config, fileManager *FileManager, logger providers.Logger) (interfaces.PerformanceRepository, func(), error) {
	var repo interfaces.PerformanceRepository

	switch conf.Persistence.Backend {
	case "sqlite":
		sqliteRepo, err := OpenSQLiteRepository(conf.Persistence.Dir)
		if err != nil {
			return nil, nil, err
		}
		repo = sqliteRepo
	case "file", "":
		repo = NewFileRepository(conf.Persistence.Dir, fileManager, logger)
	default:
		return nil, nil, fmt.Errorf("unknown persistence backend %q", conf.Persistence.Backend)
	}

	logger.Infof(providers.TypeApp, "Performance records stored with %s backend in %s", conf.Persistence.Backend, conf.Persistence.Dir)

	cleanup := func() {
		if err := repo.Close(); err != nil {
			logger.Errorf(providers.TypeApp, "Error closing performance repository: %s", err)
		}
	}
	return repo, cleanup, nil
}

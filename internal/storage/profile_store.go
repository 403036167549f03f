package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"voiceloop/internal/models"
	"voiceloop/internal/providers"
	"voiceloop/internal/storage/interfaces"
	"voiceloop/internal/structures"
)

const (
	profileFileName = "voice_profile.json"
	profileArchive  = "profiles"
	archivedPrefix  = "voice_profile.v"
	archivedSuffix  = ".json"
)

// FileProfileStore keeps the current profile as one document. With history
// enabled every saved version is also archived once and never rewritten, and
// the newest archive stands in for a current document that is missing or
// older than it.
type FileProfileStore struct {
	mu          sync.Mutex
	dir         string
	keepHistory bool
	fileManager *FileManager
	logger      providers.Logger
}

func NewProfileStore(conf *structures.Config, fileManager *FileManager, logger providers.Logger) interfaces.ProfileStore {
	return &FileProfileStore{
		dir:         conf.Persistence.Dir,
		keepHistory: conf.Persistence.KeepProfileHistory,
		fileManager: fileManager,
		logger:      logger,
	}
}

func (s *FileProfileStore) currentPath() string {
	return filepath.Join(s.dir, profileFileName)
}

func (s *FileProfileStore) archivePath(version int) string {
	return filepath.Join(s.dir, profileArchive, fmt.Sprintf("%s%04d%s", archivedPrefix, version, archivedSuffix))
}

// latestArchived returns the highest archived version, or 0 when nothing has
// been archived yet.
func (s *FileProfileStore) latestArchived() (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, profileArchive))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	latest := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, archivedPrefix) || !strings.HasSuffix(name, archivedSuffix) {
			continue
		}
		version, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, archivedPrefix), archivedSuffix))
		if err != nil {
			continue
		}
		if version > latest {
			latest = version
		}
	}
	return latest, nil
}

func (s *FileProfileStore) Current(_ context.Context) (*models.VoiceProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var profile models.VoiceProfile
	found, err := s.fileManager.LoadFromFile(s.currentPath(), &profile)
	if err != nil {
		return nil, fmt.Errorf("load voice profile: %w", err)
	}
	current := &profile
	if !found {
		current = nil
	}

	if !s.keepHistory {
		return current, nil
	}

	latest, err := s.latestArchived()
	if err != nil {
		return nil, fmt.Errorf("list archived voice profiles: %w", err)
	}
	if latest == 0 || (current != nil && current.Version >= latest) {
		return current, nil
	}

	var archived models.VoiceProfile
	found, err = s.fileManager.LoadFromFile(s.archivePath(latest), &archived)
	if err != nil {
		return nil, fmt.Errorf("load archived voice profile v%d: %w", latest, err)
	}
	if !found {
		return current, nil
	}
	s.logger.Warnf(providers.TypeAnalyze, "Current voice profile is missing or behind archive, using archived v%d", latest)
	return &archived, nil
}

func (s *FileProfileStore) Save(_ context.Context, profile *models.VoiceProfile) error {
	if profile == nil {
		return errors.New("save voice profile: profile is nil")
	}
	if profile.Version <= 0 {
		return fmt.Errorf("save voice profile: invalid version %d", profile.Version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keepHistory {
		err := s.fileManager.CreateFile(s.archivePath(profile.Version), profile)
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("save voice profile v%d: %w", profile.Version, interfaces.ErrProfileExists)
		}
		if err != nil {
			return fmt.Errorf("archive voice profile v%d: %w", profile.Version, err)
		}
	}

	if err := s.fileManager.SaveToFile(s.currentPath(), profile); err != nil {
		if s.keepHistory {
			// the archive must not outlive a failed save
			if rmErr := os.Remove(s.archivePath(profile.Version)); rmErr != nil {
				s.logger.Warnf(providers.TypeAnalyze, "Unable to roll back archive of voice profile v%d: %s", profile.Version, rmErr)
			}
		}
		return fmt.Errorf("save voice profile v%d: %w", profile.Version, err)
	}
	s.logger.Infof(providers.TypeAnalyze, "Voice profile v%d persisted to %s", profile.Version, s.currentPath())
	return nil
}

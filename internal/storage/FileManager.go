package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	"voiceloop/internal/providers"
	"voiceloop/internal/storage/interfaces"

	json "github.com/goccy/go-json"
)

// FileManager reads and writes whole JSON documents. Writes never touch the
// target in place: data goes to a temp file which is synced and renamed.
type FileManager struct {
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

func NewFileManager(compressor interfaces.CompressorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *FileManager {
	return &FileManager{
		compressor: compressor,
		logger:     logger,
		metrics:    metrics,
	}
}

func (f *FileManager) encode(doc any) ([]byte, error) {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return f.compressor.Compress(jsonData)
}

// SaveToFile replaces fileName with doc.
func (f *FileManager) SaveToFile(fileName string, doc any) error {
	start := time.Now()
	defer func() { f.metrics.ObservePersistenceDuration(time.Since(start)) }()

	data, err := f.encode(doc)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(fileName), 0o755); err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

// CreateFile writes doc to fileName only if it does not exist yet. It
// returns fs.ErrExist otherwise.
func (f *FileManager) CreateFile(fileName string, doc any) error {
	data, err := f.encode(doc)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(fileName), 0o755); err != nil {
		return err
	}

	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		return err
	}
	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(fileName)
		return err
	}
	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(fileName)
		return err
	}
	return file.Close()
}

// LoadFromFile decodes fileName into doc. A missing file is not an error;
// found reports whether anything was read.
func (f *FileManager) LoadFromFile(fileName string, doc any) (found bool, err error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return false, fmt.Errorf("decompress %s: %w", filepath.Base(fileName), err)
	}

	if err = json.Unmarshal(decompressedData, doc); err != nil {
		f.logger.Warnf(providers.TypeApp, "Corrupt document %s: %s", fileName, err)
		return false, fmt.Errorf("decode %s: %w", filepath.Base(fileName), err)
	}
	return true, nil
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

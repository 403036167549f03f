package storage

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"voiceloop/internal/providers"
	"voiceloop/internal/structures"
	"voiceloop/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleDoc struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func newTestFileManager(compressor *testutil.MockCompressor) *FileManager {
	metrics := providers.NewMetricsProvider(&structures.Config{})
	return NewFileManager(compressor, &testutil.MockLogger{}, metrics)
}

func TestFileManager_SaveToFile_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	fm := newTestFileManager(&testutil.MockCompressor{})

	require.NoError(t, fm.SaveToFile(path, sampleDoc{Name: "a"}))

	_, err := os.Stat(path)
	assert.NoError(t, err)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileManager_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	fm := newTestFileManager(&testutil.MockCompressor{})

	in := sampleDoc{Name: "voice", Items: []string{"one", "two"}}
	require.NoError(t, fm.SaveToFile(path, in))

	var out sampleDoc
	found, err := fm.LoadFromFile(path, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestFileManager_SaveReplacesPreviousDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	fm := newTestFileManager(&testutil.MockCompressor{})

	require.NoError(t, fm.SaveToFile(path, sampleDoc{Name: "first"}))
	require.NoError(t, fm.SaveToFile(path, sampleDoc{Name: "second"}))

	var out sampleDoc
	_, err := fm.LoadFromFile(path, &out)
	require.NoError(t, err)
	assert.Equal(t, "second", out.Name)
}

func TestFileManager_LoadFromFile_FileNotExist(t *testing.T) {
	fm := newTestFileManager(&testutil.MockCompressor{})

	var out sampleDoc
	found, err := fm.LoadFromFile("/nonexistent/path/file.json", &out)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestFileManager_LoadFromFile_CorruptData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	logger := &testutil.MockLogger{}
	fm := NewFileManager(&testutil.MockCompressor{}, logger, providers.NewMetricsProvider(&structures.Config{}))

	var out sampleDoc
	found, err := fm.LoadFromFile(path, &out)
	assert.Error(t, err)
	assert.False(t, found)
	assert.True(t, logger.HasMessage("warn", "Corrupt document"))
}

func TestFileManager_SaveToFile_CompressError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	fm := newTestFileManager(&testutil.MockCompressor{
		CompressFn: func([]byte) ([]byte, error) { return nil, errors.New("compress failed") },
	})

	err := fm.SaveToFile(path, sampleDoc{Name: "x"})
	assert.EqualError(t, err, "compress failed")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileManager_LoadFromFile_DecompressError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	fm := newTestFileManager(&testutil.MockCompressor{
		DecompressFn: func([]byte) ([]byte, error) { return nil, errors.New("bad frame") },
	})

	var out sampleDoc
	_, err := fm.LoadFromFile(path, &out)
	assert.ErrorContains(t, err, "bad frame")
}

func TestFileManager_CreateFile_WriteOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive", "v1.json")
	fm := newTestFileManager(&testutil.MockCompressor{})

	require.NoError(t, fm.CreateFile(path, sampleDoc{Name: "original"}))

	err := fm.CreateFile(path, sampleDoc{Name: "overwrite"})
	assert.True(t, errors.Is(err, fs.ErrExist))

	var out sampleDoc
	_, err = fm.LoadFromFile(path, &out)
	require.NoError(t, err)
	assert.Equal(t, "original", out.Name)
}

func TestFileManager_WithZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	comp, err := NewZstdCompressor(compressorConfig(true))
	require.NoError(t, err)

	fm := NewFileManager(comp, &testutil.MockLogger{}, providers.NewMetricsProvider(&structures.Config{}))
	defer fm.Close()

	in := sampleDoc{Name: "zstd", Items: []string{"a", "b", "c"}}
	require.NoError(t, fm.SaveToFile(path, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, zstdMagic))

	var out sampleDoc
	found, err := fm.LoadFromFile(path, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"voiceloop/internal/models"
	"voiceloop/internal/providers"
	"voiceloop/internal/storage/interfaces"
)

const (
	performanceFileName   = "performance_records.json"
	performanceDocVersion = 1
)

type performanceDocument struct {
	Version int                                  `json:"version"`
	Records map[string]*models.PerformanceRecord `json:"records"`
}

// FileRepository stores every performance record in a single document. Each
// call loads the document, and mutating calls write it back whole, all under
// one lock so concurrent callers in this process cannot lose updates.
type FileRepository struct {
	mu          sync.Mutex
	path        string
	fileManager *FileManager
	logger      providers.Logger
}

func NewFileRepository(dir string, fileManager *FileManager, logger providers.Logger) *FileRepository {
	return &FileRepository{
		path:        filepath.Join(dir, performanceFileName),
		fileManager: fileManager,
		logger:      logger,
	}
}

func (r *FileRepository) load() (*performanceDocument, error) {
	doc := &performanceDocument{}
	if _, err := r.fileManager.LoadFromFile(r.path, doc); err != nil {
		return nil, fmt.Errorf("load performance records: %w", err)
	}
	if doc.Records == nil {
		doc.Records = make(map[string]*models.PerformanceRecord)
	}
	return doc, nil
}

func (r *FileRepository) save(doc *performanceDocument) error {
	doc.Version = performanceDocVersion
	if err := r.fileManager.SaveToFile(r.path, doc); err != nil {
		return fmt.Errorf("save performance records: %w", err)
	}
	return nil
}

func (r *FileRepository) Get(_ context.Context, postID string) (*models.PerformanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	rec, ok := doc.Records[postID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrRecordNotFound, postID)
	}
	return rec, nil
}

func (r *FileRepository) Create(_ context.Context, record *models.PerformanceRecord) error {
	if record == nil || record.PostID == "" {
		return errors.New("create performance record: post id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := doc.Records[record.PostID]; ok {
		return fmt.Errorf("%w: %s", interfaces.ErrRecordExists, record.PostID)
	}
	doc.Records[record.PostID] = record
	return r.save(doc)
}

func (r *FileRepository) Upsert(_ context.Context, record *models.PerformanceRecord) error {
	if record == nil || record.PostID == "" {
		return errors.New("upsert performance record: post id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	doc.Records[record.PostID] = record
	return r.save(doc)
}

func (r *FileRepository) ListByCategory(_ context.Context, category string) ([]*models.PerformanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]*models.PerformanceRecord, 0)
	for _, rec := range doc.Records {
		if rec.Category == category {
			out = append(out, rec)
		}
	}
	sortByPostedAt(out)
	return out, nil
}

func (r *FileRepository) List(_ context.Context) ([]*models.PerformanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]*models.PerformanceRecord, 0, len(doc.Records))
	for _, rec := range doc.Records {
		out = append(out, rec)
	}
	sortByPostedAt(out)
	return out, nil
}

func (r *FileRepository) Close() error {
	return nil
}

func sortByPostedAt(records []*models.PerformanceRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].PostedAt.Equal(records[j].PostedAt) {
			return records[i].PostID < records[j].PostID
		}
		return records[i].PostedAt.Before(records[j].PostedAt)
	})
}

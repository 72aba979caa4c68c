package badger

import (
	"fmt"
	"time"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

func (s *DocumentStorage) SaveDocument(doc *models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if doc.LibraryName == "" {
		return fmt.Errorf("document library name is required")
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) GetDocument(id string) (*models.Document, error) {
	var doc models.Document
	if err := s.db.Store().Get(id, &doc); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("document not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStorage) UpdateDocument(doc *models.Document) error {
	return s.SaveDocument(doc)
}

func (s *DocumentStorage) DeleteDocument(id string) error {
	if err := s.db.Store().Delete(id, &models.Document{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *DocumentStorage) ListDocuments(libraryName string) ([]*models.Document, error) {
	var docs []models.Document
	err := s.db.Store().Find(&docs, badgerhold.Where("LibraryName").Eq(libraryName).Index("LibraryName"))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	result := make([]*models.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

func (s *DocumentStorage) ListDocumentsByStatus(status string, limit int) ([]*models.Document, error) {
	query := badgerhold.Where("Status").Eq(status)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var docs []models.Document
	if err := s.db.Store().Find(&docs, query); err != nil {
		return nil, fmt.Errorf("failed to list documents by status: %w", err)
	}

	result := make([]*models.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

// CountDocuments counts documents in a library, or across all libraries
// when libraryName is empty.
func (s *DocumentStorage) CountDocuments(libraryName string) (int, error) {
	var query *badgerhold.Query
	if libraryName != "" {
		query = badgerhold.Where("LibraryName").Eq(libraryName).Index("LibraryName")
	}
	count, err := s.db.Store().Count(&models.Document{}, query)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}

func (s *DocumentStorage) GetStats(libraryName string) (*models.LibraryStats, error) {
	docs, err := s.ListDocuments(libraryName)
	if err != nil {
		return nil, err
	}

	stats := &models.LibraryStats{
		LibraryName:    libraryName,
		TotalDocuments: len(docs),
		ByStatus:       make(map[string]int),
		BySourceType:   make(map[string]int),
	}
	for _, doc := range docs {
		stats.ByStatus[doc.Status]++
		stats.BySourceType[doc.SourceType]++
		stats.TotalPages += doc.PageCount
		stats.TotalChunks += doc.ChunkCount
	}
	return stats, nil
}

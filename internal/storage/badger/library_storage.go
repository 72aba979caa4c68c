package badger

import (
	"fmt"
	"time"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// LibraryStorage implements the LibraryStorage interface for Badger
type LibraryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewLibraryStorage creates a new LibraryStorage instance
func NewLibraryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.LibraryStorage {
	return &LibraryStorage{
		db:     db,
		logger: logger,
	}
}

func (s *LibraryStorage) SaveLibrary(library *models.Library) error {
	if library.ID == "" {
		return fmt.Errorf("library ID is required")
	}
	if library.Name == "" {
		return fmt.Errorf("library name is required")
	}

	now := time.Now()
	if library.CreatedAt.IsZero() {
		library.CreatedAt = now
	}
	library.UpdatedAt = now

	if err := s.db.Store().Upsert(library.ID, library); err != nil {
		return fmt.Errorf("failed to save library: %w", err)
	}
	return nil
}

func (s *LibraryStorage) GetLibrary(id string) (*models.Library, error) {
	var library models.Library
	if err := s.db.Store().Get(id, &library); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("library not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get library: %w", err)
	}
	return &library, nil
}

func (s *LibraryStorage) GetLibraryByName(name string) (*models.Library, error) {
	var libraries []models.Library
	err := s.db.Store().Find(&libraries, badgerhold.Where("Name").Eq(name).Index("Name"))
	if err != nil {
		return nil, fmt.Errorf("failed to find library: %w", err)
	}
	if len(libraries) == 0 {
		return nil, fmt.Errorf("library not found: %s", name)
	}
	return &libraries[0], nil
}

func (s *LibraryStorage) ListLibraries() ([]*models.Library, error) {
	var libraries []models.Library
	if err := s.db.Store().Find(&libraries, nil); err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}

	result := make([]*models.Library, len(libraries))
	for i := range libraries {
		result[i] = &libraries[i]
	}
	return result, nil
}

func (s *LibraryStorage) DeleteLibrary(id string) error {
	if err := s.db.Store().Delete(id, &models.Library{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete library: %w", err)
	}
	return nil
}

func (s *LibraryStorage) CountLibraries() (int, error) {
	count, err := s.db.Store().Count(&models.Library{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count libraries: %w", err)
	}
	return int(count), nil
}

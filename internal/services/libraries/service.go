package libraries

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/common"
	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
)

// Service manages libraries. Deleting a library cascades: its documents,
// its conversations and its whole vector store directory go with it.
type Service struct {
	storage   interfaces.StorageManager
	documents interfaces.DocumentService
	indexes   interfaces.VectorIndexProvider
	logger    arbor.ILogger
}

// NewService creates the library service
func NewService(storage interfaces.StorageManager, documents interfaces.DocumentService, indexes interfaces.VectorIndexProvider, logger arbor.ILogger) *Service {
	return &Service{
		storage:   storage,
		documents: documents,
		indexes:   indexes,
		logger:    logger,
	}
}

// Create registers a new library. Names are unique.
func (s *Service) Create(ctx context.Context, name, description string) (*models.Library, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("library name is required")
	}
	if existing, err := s.storage.LibraryStorage().GetLibraryByName(name); err == nil && existing != nil {
		return nil, fmt.Errorf("library already exists: %s", name)
	}

	now := time.Now()
	lib := &models.Library{
		ID:          common.NewLibraryID(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.storage.LibraryStorage().SaveLibrary(lib); err != nil {
		return nil, fmt.Errorf("failed to create library: %w", err)
	}

	s.logger.Info().Str("library", name).Msg("Library created")
	return lib, nil
}

// List returns all libraries
func (s *Service) List(ctx context.Context) ([]*models.Library, error) {
	return s.storage.LibraryStorage().ListLibraries()
}

// Get returns a library by name
func (s *Service) Get(ctx context.Context, name string) (*models.Library, error) {
	return s.storage.LibraryStorage().GetLibraryByName(name)
}

// Stats aggregates document counts for a library
func (s *Service) Stats(ctx context.Context, name string) (*models.LibraryStats, error) {
	if _, err := s.storage.LibraryStorage().GetLibraryByName(name); err != nil {
		return nil, fmt.Errorf("library not found: %s", name)
	}
	return s.storage.DocumentStorage().GetStats(name)
}

// Delete removes the library, every document in it, its conversations and
// its vector store.
func (s *Service) Delete(ctx context.Context, name string) error {
	lib, err := s.storage.LibraryStorage().GetLibraryByName(name)
	if err != nil {
		return fmt.Errorf("library not found: %s", name)
	}

	docs, err := s.storage.DocumentStorage().ListDocuments(name)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	// Documents go through the document service so the cascade waits on
	// any in-flight ingestion of each document before removing it.
	for _, doc := range docs {
		if err := s.documents.Delete(ctx, doc.ID); err != nil {
			s.logger.Warn().
				Err(err).
				Str("doc_id", doc.ID).
				Msg("Failed to delete document during library cascade")
		}
	}

	convs, err := s.storage.ConversationStorage().ListConversations(name)
	if err == nil {
		for _, conv := range convs {
			if err := s.storage.ConversationStorage().DeleteConversation(conv.ID); err != nil {
				s.logger.Warn().
					Err(err).
					Str("conversation_id", conv.ID).
					Msg("Failed to delete conversation during library cascade")
			}
		}
	}

	// The vector store directory is removed wholesale, no per-document pass
	if err := s.indexes.DropIndex(name); err != nil {
		return fmt.Errorf("failed to drop vector index: %w", err)
	}

	if err := s.storage.LibraryStorage().DeleteLibrary(lib.ID); err != nil {
		return fmt.Errorf("failed to delete library: %w", err)
	}

	s.logger.Info().
		Str("library", name).
		Int("documents", len(docs)).
		Msg("Library deleted")
	return nil
}

package interfaces

import (
	"github.com/quillboard/folio/internal/models"
)

// LibraryStorage - interface for library metadata persistence
type LibraryStorage interface {
	SaveLibrary(library *models.Library) error
	GetLibrary(id string) (*models.Library, error)
	GetLibraryByName(name string) (*models.Library, error)
	ListLibraries() ([]*models.Library, error)
	DeleteLibrary(id string) error
	CountLibraries() (int, error)
}

// DocumentStorage - interface for document metadata persistence
type DocumentStorage interface {
	SaveDocument(doc *models.Document) error
	GetDocument(id string) (*models.Document, error)
	UpdateDocument(doc *models.Document) error
	DeleteDocument(id string) error

	ListDocuments(libraryName string) ([]*models.Document, error)
	ListDocumentsByStatus(status string, limit int) ([]*models.Document, error)

	CountDocuments(libraryName string) (int, error)
	GetStats(libraryName string) (*models.LibraryStats, error)
}

// ConversationStorage - interface for chat history persistence
type ConversationStorage interface {
	SaveConversation(conv *models.Conversation) error
	GetConversation(id string) (*models.Conversation, error)
	ListConversations(libraryName string) ([]*models.Conversation, error)
	DeleteConversation(id string) error
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	LibraryStorage() LibraryStorage
	DocumentStorage() DocumentStorage
	ConversationStorage() ConversationStorage
	Close() error
}

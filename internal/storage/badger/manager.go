package badger

import (
	"path/filepath"

	"github.com/quillboard/folio/internal/common"
	"github.com/quillboard/folio/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db           *BadgerDB
	library      interfaces.LibraryStorage
	document     interfaces.DocumentStorage
	conversation interfaces.ConversationStorage
	logger       arbor.ILogger
}

// NewManager creates a new Badger storage manager rooted under the
// configured data directory.
func NewManager(logger arbor.ILogger, config *common.StorageConfig) (interfaces.StorageManager, error) {
	dbPath := filepath.Join(config.DataDir, "metadata")
	db, err := NewBadgerDB(logger, dbPath, config.ResetOnStartup)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:           db,
		library:      NewLibraryStorage(db, logger),
		document:     NewDocumentStorage(db, logger),
		conversation: NewConversationStorage(db, logger),
		logger:       logger,
	}

	logger.Info().Str("path", dbPath).Msg("Badger storage manager initialized")

	return manager, nil
}

// LibraryStorage returns the Library storage interface
func (m *Manager) LibraryStorage() interfaces.LibraryStorage {
	return m.library
}

// DocumentStorage returns the Document storage interface
func (m *Manager) DocumentStorage() interfaces.DocumentStorage {
	return m.document
}

// ConversationStorage returns the Conversation storage interface
func (m *Manager) ConversationStorage() interfaces.ConversationStorage {
	return m.conversation
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

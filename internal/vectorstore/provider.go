package vectorstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// indexMeta pins an index to the embedding model that produced its
// vectors. Mixing models in one index would make distances meaningless,
// so a model change requires reprocessing into a fresh index.
type indexMeta struct {
	Key   string `badgerhold:"key"`
	Model string
}

const indexMetaKey = "embedding_model"

// Provider manages one Badger-backed vector index per library. Indexes
// open lazily on first use and stay open until Close or DropIndex.
type Provider struct {
	baseDir string
	model   string
	logger  arbor.ILogger

	mu      sync.Mutex
	indexes map[string]*Index
}

// NewProvider creates a provider that stores indexes under
// <dataDir>/vectors/<sanitized library name>. Every index it opens is
// bound to the given embedding model name.
func NewProvider(logger arbor.ILogger, dataDir string, model string) *Provider {
	return &Provider{
		baseDir: filepath.Join(dataDir, "vectors"),
		model:   model,
		logger:  logger,
		indexes: make(map[string]*Index),
	}
}

// Index returns the vector index for a library, opening or creating it as
// needed. Concurrent calls for the same library share one index.
func (p *Provider) Index(libraryName string) (interfaces.VectorIndex, error) {
	key := sanitizeName(libraryName)
	if key == "" {
		return nil, fmt.Errorf("invalid library name: %q", libraryName)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.indexes[key]; ok {
		return idx, nil
	}

	path := filepath.Join(p.baseDir, key)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vector index directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index for library %s: %w", libraryName, err)
	}

	if err := p.checkModel(store, libraryName); err != nil {
		store.Close()
		return nil, err
	}

	p.logger.Debug().Str("library", libraryName).Str("path", path).Msg("Opened vector index")

	idx := &Index{store: store, logger: p.logger}
	p.indexes[key] = idx
	return idx, nil
}

// checkModel records the embedding model on first open and rejects the
// index when it was built with a different one.
func (p *Provider) checkModel(store *badgerhold.Store, libraryName string) error {
	if p.model == "" {
		return nil
	}

	var meta indexMeta
	err := store.Get(indexMetaKey, &meta)
	if err == badgerhold.ErrNotFound {
		meta = indexMeta{Key: indexMetaKey, Model: p.model}
		if err := store.Upsert(indexMetaKey, &meta); err != nil {
			return fmt.Errorf("failed to record embedding model for library %s: %w", libraryName, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index metadata for library %s: %w", libraryName, err)
	}
	if meta.Model != p.model {
		return fmt.Errorf("vector index for library %s was built with embedding model %s, configured model is %s: reprocess the library to switch models",
			libraryName, meta.Model, p.model)
	}
	return nil
}

// DropIndex closes and deletes a library's vector index from disk.
func (p *Provider) DropIndex(libraryName string) error {
	key := sanitizeName(libraryName)
	if key == "" {
		return fmt.Errorf("invalid library name: %q", libraryName)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.indexes[key]; ok {
		if err := idx.store.Close(); err != nil {
			p.logger.Warn().Err(err).Str("library", libraryName).Msg("Failed to close vector index")
		}
		delete(p.indexes, key)
	}

	path := filepath.Join(p.baseDir, key)
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete vector index for library %s: %w", libraryName, err)
	}

	p.logger.Info().Str("library", libraryName).Msg("Dropped vector index")
	return nil
}

// Close closes every open index.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for key, idx := range p.indexes {
		if err := idx.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close vector index %s: %w", key, err)
		}
		delete(p.indexes, key)
	}
	return firstErr
}

// sanitizeName maps a library name onto a filesystem-safe directory name.
// Characters outside [A-Za-z0-9_-] become underscores, and a short hash of
// the raw name is appended so names that sanitize alike ("my lib" and
// "my_lib") still get distinct directories.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	safe := strings.Trim(b.String(), "_")
	if safe == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(name))
	return safe + "_" + hex.EncodeToString(sum[:4])
}

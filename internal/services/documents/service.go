package documents

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/common"
	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
	"github.com/quillboard/folio/internal/services/chunker"
)

// staleProcessingAge is how long a document may sit in the processing state
// before the catch-up pass considers its ingestion run dead and retries it.
const staleProcessingAge = 15 * time.Minute

// Service implements DocumentService. Ingestion runs in the background so
// Add* calls return as soon as the document record is persisted; a
// per-document lock serializes ingestion, reprocessing and deletion for the
// same document.
type Service struct {
	config    *common.ChunkingConfig
	storage   interfaces.StorageManager
	indexes   interfaces.VectorIndexProvider
	embedder  interfaces.EmbeddingService
	splitter  *chunker.Splitter
	pdf       interfaces.PDFExtractor
	web       interfaces.WebExtractor
	logger    arbor.ILogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	wg sync.WaitGroup
}

// NewService creates a new document service
func NewService(
	config *common.ChunkingConfig,
	storage interfaces.StorageManager,
	indexes interfaces.VectorIndexProvider,
	embedder interfaces.EmbeddingService,
	pdf interfaces.PDFExtractor,
	web interfaces.WebExtractor,
	logger arbor.ILogger,
) (*Service, error) {
	splitter, err := chunker.NewSplitter(config.ChunkSize, config.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("invalid chunking configuration: %w", err)
	}

	return &Service{
		config:   config,
		storage:  storage,
		indexes:  indexes,
		embedder: embedder,
		splitter: splitter,
		pdf:      pdf,
		web:      web,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// AddPDF registers a PDF document and starts ingestion in the background.
// The returned document is in the processing state.
func (s *Service) AddPDF(ctx context.Context, req *interfaces.AddPDFRequest) (*models.Document, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("document title is required")
	}
	if strings.TrimSpace(req.FilePath) == "" {
		return nil, fmt.Errorf("file path is required")
	}
	if err := s.ensureLibrary(req.LibraryName); err != nil {
		return nil, err
	}

	now := time.Now()
	doc := &models.Document{
		ID:          common.NewDocumentID(),
		LibraryName: req.LibraryName,
		Title:       title,
		SourceType:  models.SourceTypePDF,
		SourcePath:  req.FilePath,
		Status:      models.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if info, err := os.Stat(req.FilePath); err == nil {
		doc.FileSize = info.Size()
	}
	if err := s.storage.DocumentStorage().SaveDocument(doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	s.logger.Info().
		Str("doc_id", doc.ID).
		Str("library", doc.LibraryName).
		Str("title", doc.Title).
		Msg("PDF document registered, ingestion queued")

	s.spawnIngest(doc.ID)
	return doc, nil
}

// AddWeb registers a web page document and starts ingestion in the background.
func (s *Service) AddWeb(ctx context.Context, req *interfaces.AddWebRequest) (*models.Document, error) {
	if req == nil {
		return nil, fmt.Errorf("request is required")
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("url must start with http:// or https://")
	}
	if err := s.ensureLibrary(req.LibraryName); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		// The extractor resolves the page title during ingestion.
		title = url
	}

	now := time.Now()
	doc := &models.Document{
		ID:          common.NewDocumentID(),
		LibraryName: req.LibraryName,
		Title:       title,
		SourceType:  models.SourceTypeWeb,
		SourcePath:  url,
		Status:      models.StatusProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.storage.DocumentStorage().SaveDocument(doc); err != nil {
		return nil, fmt.Errorf("failed to save document: %w", err)
	}

	s.logger.Info().
		Str("doc_id", doc.ID).
		Str("library", doc.LibraryName).
		Str("url", url).
		Msg("Web document registered, ingestion queued")

	s.spawnIngest(doc.ID)
	return doc, nil
}

// Get retrieves a document by ID
func (s *Service) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.storage.DocumentStorage().GetDocument(id)
}

// List returns the documents of a library
func (s *Service) List(ctx context.Context, libraryName string) ([]*models.Document, error) {
	return s.storage.DocumentStorage().ListDocuments(libraryName)
}

// Delete removes a document's vectors and its metadata record. If the
// document is mid-ingestion the delete waits for the run to finish so no
// orphaned vectors are written afterwards.
func (s *Service) Delete(ctx context.Context, id string) error {
	doc, err := s.storage.DocumentStorage().GetDocument(id)
	if err != nil {
		return fmt.Errorf("document not found: %w", err)
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	index, err := s.indexes.Index(doc.LibraryName)
	if err != nil {
		return fmt.Errorf("failed to open vector index: %w", err)
	}
	removed, err := index.DeleteByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}

	if err := s.storage.DocumentStorage().DeleteDocument(id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.logger.Info().
		Str("doc_id", id).
		Str("library", doc.LibraryName).
		Int("vectors_removed", removed).
		Msg("Document deleted")
	return nil
}

// Reprocess re-runs ingestion for an existing document from its original
// source. Old vectors are replaced atomically within the per-document lock.
func (s *Service) Reprocess(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.storage.DocumentStorage().GetDocument(id)
	if err != nil {
		return nil, fmt.Errorf("document not found: %w", err)
	}

	doc.Status = models.StatusProcessing
	doc.ErrorDetail = ""
	doc.UpdatedAt = time.Now()
	if err := s.storage.DocumentStorage().UpdateDocument(doc); err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	s.logger.Info().
		Str("doc_id", id).
		Str("library", doc.LibraryName).
		Msg("Document reprocess queued")

	s.spawnIngest(id)
	return doc, nil
}

// ProcessPending recovers documents stuck in the processing state from an
// earlier run, typically after a crash. Failed documents stay in the error
// state until reprocessed explicitly. Runs serially and returns the number
// of documents whose ingestion completed without error.
func (s *Service) ProcessPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 20
	}

	candidates, err := s.pendingDocuments(limit)
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	s.logger.Info().
		Int("candidates", len(candidates)).
		Msg("Processing pending documents")

	processed := 0
	for _, doc := range candidates {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if err := s.ingest(ctx, doc.ID); err != nil {
			s.logger.Warn().
				Err(err).
				Str("doc_id", doc.ID).
				Msg("Pending document failed to process")
			continue
		}
		processed++
	}
	return processed, nil
}

// Close waits for in-flight background ingestions to finish.
func (s *Service) Close() error {
	s.wg.Wait()
	return nil
}

func (s *Service) pendingDocuments(limit int) ([]*models.Document, error) {
	stuck, err := s.storage.DocumentStorage().ListDocumentsByStatus(models.StatusProcessing, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list processing documents: %w", err)
	}

	// Only documents whose ingestion run is presumed dead. Fresh
	// processing documents have a live goroutine working on them.
	var candidates []*models.Document
	cutoff := time.Now().Add(-staleProcessingAge)
	for _, doc := range stuck {
		if doc.UpdatedAt.Before(cutoff) {
			candidates = append(candidates, doc)
		}
	}
	return candidates, nil
}

// ensureLibrary creates the library record on first use.
func (s *Service) ensureLibrary(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("library name is required")
	}
	existing, err := s.storage.LibraryStorage().GetLibraryByName(name)
	if err == nil && existing != nil {
		return nil
	}

	now := time.Now()
	lib := &models.Library{
		ID:        common.NewLibraryID(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.storage.LibraryStorage().SaveLibrary(lib); err != nil {
		return fmt.Errorf("failed to create library: %w", err)
	}

	s.logger.Info().Str("library", name).Msg("Library created on first use")
	return nil
}

func (s *Service) lockFor(documentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[documentID] = lock
	}
	return lock
}

func (s *Service) spawnIngest(documentID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.ingest(context.Background(), documentID); err != nil {
			s.logger.Warn().
				Err(err).
				Str("doc_id", documentID).
				Msg("Background ingestion failed")
		}
	}()
}

// ingest runs the full pipeline for one document: extract, chunk, embed,
// replace vectors, then mark the document processed. Any failure marks the
// document as errored with a human-readable detail instead of bubbling a
// partial state into the index.
func (s *Service) ingest(ctx context.Context, documentID string) error {
	lock := s.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.storage.DocumentStorage().GetDocument(documentID)
	if err != nil {
		return fmt.Errorf("document not found: %w", err)
	}

	started := time.Now()
	pages, title, err := s.extract(ctx, doc)
	if err != nil {
		return s.markFailed(doc, fmt.Errorf("extraction failed: %w", err))
	}
	if title != "" && (doc.Title == "" || doc.Title == doc.SourcePath) {
		doc.Title = title
	}

	idPrefix := ""
	if doc.SourceType == models.SourceTypeWeb {
		idPrefix = "web_"
	}
	chunks := s.splitter.ChunkPages(pages, idPrefix)
	if len(chunks) == 0 {
		return s.markFailed(doc, fmt.Errorf("no text content extracted"))
	}

	records, err := s.embedder.EmbedChunks(ctx, doc.ID, chunks)
	if err != nil {
		return s.markFailed(doc, fmt.Errorf("embedding failed: %w", err))
	}

	index, err := s.indexes.Index(doc.LibraryName)
	if err != nil {
		return s.markFailed(doc, fmt.Errorf("failed to open vector index: %w", err))
	}
	if _, err := index.DeleteByDocument(ctx, doc.ID); err != nil {
		return s.markFailed(doc, fmt.Errorf("failed to clear old vectors: %w", err))
	}
	if err := index.Upsert(ctx, records); err != nil {
		return s.markFailed(doc, fmt.Errorf("failed to store vectors: %w", err))
	}

	now := time.Now()
	doc.Status = models.StatusProcessed
	doc.ErrorDetail = ""
	doc.PageCount = len(pages)
	doc.ChunkCount = len(chunks)
	doc.ProcessedAt = &now
	doc.UpdatedAt = now
	if err := s.storage.DocumentStorage().UpdateDocument(doc); err != nil {
		return fmt.Errorf("failed to mark document processed: %w", err)
	}

	s.logger.Info().
		Str("doc_id", doc.ID).
		Str("library", doc.LibraryName).
		Int("pages", doc.PageCount).
		Int("chunks", doc.ChunkCount).
		Str("duration", time.Since(started).Round(time.Millisecond).String()).
		Msg("Document processed")
	return nil
}

func (s *Service) extract(ctx context.Context, doc *models.Document) ([]models.Page, string, error) {
	switch doc.SourceType {
	case models.SourceTypePDF:
		pages, err := s.pdf.ExtractPages(ctx, doc.SourcePath)
		return pages, "", err
	case models.SourceTypeWeb:
		result, err := s.web.Extract(ctx, doc.SourcePath)
		if err != nil {
			return nil, "", err
		}
		return result.Pages, result.Title, nil
	default:
		return nil, "", fmt.Errorf("unknown source type: %s", doc.SourceType)
	}
}

func (s *Service) markFailed(doc *models.Document, cause error) error {
	doc.Status = models.StatusError
	doc.ErrorDetail = cause.Error()
	doc.UpdatedAt = time.Now()
	if err := s.storage.DocumentStorage().UpdateDocument(doc); err != nil {
		s.logger.Error().
			Err(err).
			Str("doc_id", doc.ID).
			Msg("Failed to record document error state")
	}

	s.logger.Warn().
		Err(cause).
		Str("doc_id", doc.ID).
		Str("library", doc.LibraryName).
		Msg("Document ingestion failed")
	return cause
}

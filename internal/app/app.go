package app

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/common"
	"github.com/quillboard/folio/internal/handlers"
	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/services/chat"
	"github.com/quillboard/folio/internal/services/documents"
	"github.com/quillboard/folio/internal/services/embeddings"
	"github.com/quillboard/folio/internal/services/libraries"
	"github.com/quillboard/folio/internal/services/llm"
	"github.com/quillboard/folio/internal/services/pdf"
	"github.com/quillboard/folio/internal/services/processing"
	"github.com/quillboard/folio/internal/services/query"
	"github.com/quillboard/folio/internal/services/rag"
	"github.com/quillboard/folio/internal/services/web"
	"github.com/quillboard/folio/internal/storage/badger"
	"github.com/quillboard/folio/internal/vectorstore"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	VectorIndexes  interfaces.VectorIndexProvider

	LLMService       interfaces.LLMService
	EmbeddingService interfaces.EmbeddingService
	ChatService      interfaces.ChatService
	DocumentService  interfaces.DocumentService
	LibraryService   *libraries.Service
	Scheduler        *processing.Scheduler

	// HTTP handlers
	ChatHandler         *handlers.ChatHandler
	LibraryHandler      *handlers.LibraryHandler
	DocumentHandler     *handlers.DocumentHandler
	ConversationHandler *handlers.ConversationHandler
	StatusHandler       *handlers.StatusHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storageManager, err := badger.NewManager(logger, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	llmService, err := llm.NewLLMService(&cfg.LLM, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize LLM service: %w", err)
	}
	app.LLMService = llmService

	embedder := embeddings.NewService(llmService, logger)
	app.EmbeddingService = embedder

	// Indexes are pinned to the embedding model; a model change is
	// rejected at open time until the library is reprocessed.
	indexes := vectorstore.NewProvider(logger, cfg.Storage.DataDir, embedder.ModelName())
	app.VectorIndexes = indexes

	processor := query.NewProcessor(&cfg.Retrieval, logger)
	generator := rag.NewGenerator(llmService, logger)

	app.ChatService = chat.NewService(
		&cfg.Retrieval,
		llmService,
		embedder,
		processor,
		generator,
		indexes,
		storageManager.ConversationStorage(),
		logger,
	)

	documentService, err := documents.NewService(
		&cfg.Chunking,
		storageManager,
		indexes,
		embedder,
		pdf.NewExtractor(logger),
		web.NewExtractor(logger),
		logger,
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize document service: %w", err)
	}
	app.DocumentService = documentService

	app.LibraryService = libraries.NewService(storageManager, documentService, indexes, logger)
	app.Scheduler = processing.NewScheduler(documentService, &cfg.Processing, logger)

	app.ChatHandler = handlers.NewChatHandler(app.ChatService, logger)
	app.LibraryHandler = handlers.NewLibraryHandler(app.LibraryService, documentService, logger)
	app.DocumentHandler = handlers.NewDocumentHandler(documentService, cfg.Storage.UploadsDir, logger)
	app.ConversationHandler = handlers.NewConversationHandler(storageManager.ConversationStorage(), pdf.NewExporter(logger), logger)
	app.StatusHandler = handlers.NewStatusHandler(storageManager, llmService, app.Scheduler, logger)

	logger.Info().
		Str("model", llmService.ModelName()).
		Str("data_dir", cfg.Storage.DataDir).
		Msg("Application initialized")

	return app, nil
}

// Start brings up background processing
func (a *App) Start() error {
	if a.Config.Processing.Enabled {
		if err := a.Scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}
	return nil
}

// Close shuts down components in reverse dependency order. In-flight
// document ingestion is allowed to finish.
func (a *App) Close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if a.Scheduler != nil {
		record(a.Scheduler.Stop())
	}
	if svc, ok := a.DocumentService.(*documents.Service); ok && svc != nil {
		record(svc.Close())
	}
	if a.VectorIndexes != nil {
		record(a.VectorIndexes.Close())
	}
	if a.LLMService != nil {
		record(a.LLMService.Close())
	}
	if a.StorageManager != nil {
		record(a.StorageManager.Close())
	}
	return firstErr
}

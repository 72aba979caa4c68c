package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quillboard/folio/internal/common"
	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
	"github.com/quillboard/folio/internal/services/query"
	"github.com/quillboard/folio/internal/services/rag"
	"github.com/ternarybob/arbor"
)

// Service answers questions grounded in a library's documents. It wires
// the retrieval pipeline (query preprocessing, vector search with
// over-fetch, lexical re-ranking) to the answer generator and records the
// exchange in a conversation.
type Service struct {
	config        *common.RetrievalConfig
	llm           interfaces.LLMService
	embedder      interfaces.EmbeddingService
	processor     *query.Processor
	generator     *rag.Generator
	indexes       interfaces.VectorIndexProvider
	conversations interfaces.ConversationStorage
	logger        arbor.ILogger
}

// NewService creates the chat service.
func NewService(
	config *common.RetrievalConfig,
	llm interfaces.LLMService,
	embedder interfaces.EmbeddingService,
	processor *query.Processor,
	generator *rag.Generator,
	indexes interfaces.VectorIndexProvider,
	conversations interfaces.ConversationStorage,
	logger arbor.ILogger,
) *Service {
	return &Service{
		config:        config,
		llm:           llm,
		embedder:      embedder,
		processor:     processor,
		generator:     generator,
		indexes:       indexes,
		conversations: conversations,
		logger:        logger,
	}
}

// Ask retrieves context and generates a complete grounded answer, then
// records the exchange.
func (s *Service) Ask(ctx context.Context, req *interfaces.ChatRequest) (*interfaces.ChatResponse, error) {
	hits, history, conv, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.generator.Generate(ctx, req.Message, hits, history)
	if err != nil {
		return nil, err
	}

	conversationID := s.record(conv, req, result)

	return &interfaces.ChatResponse{
		Answer:         result.Answer,
		Sources:        result.Sources,
		ConversationID: conversationID,
		Model:          s.llm.ModelName(),
	}, nil
}

// AskStream retrieves context and streams the answer through emit,
// recording the completed exchange afterwards. Event ordering follows the
// StreamEvent contract: one sources event, answer deltas, then done.
func (s *Service) AskStream(ctx context.Context, req *interfaces.ChatRequest, emit func(interfaces.StreamEvent) error) error {
	hits, history, conv, err := s.prepare(ctx, req)
	if err != nil {
		return err
	}

	result, err := s.generator.GenerateStream(ctx, req.Message, hits, history, emit)
	if err != nil {
		// Abandoned stream: nothing is persisted
		return err
	}

	s.record(conv, req, result)
	return nil
}

// HealthCheck verifies the chat pipeline's upstream dependency.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.llm.HealthCheck(ctx)
}

// prepare runs the retrieval half of the pipeline and resolves the
// conversation context. Zero hits are a normal outcome; querying a
// library with no index yet simply finds nothing.
func (s *Service) prepare(ctx context.Context, req *interfaces.ChatRequest) ([]interfaces.SearchResult, []interfaces.Message, *models.Conversation, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, nil, nil, fmt.Errorf("message cannot be empty")
	}
	if req.LibraryName == "" {
		return nil, nil, nil, fmt.Errorf("library name is required")
	}

	conv, err := s.resolveConversation(req)
	if err != nil {
		return nil, nil, nil, err
	}
	history := s.buildHistory(req, conv)

	topK := req.TopK
	if topK <= 0 {
		topK = s.config.TopK
	}

	processed := s.processor.Preprocess(req.Message)

	embedding, err := s.embedder.GenerateQueryEmbedding(ctx, processed)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to embed query: %w", err)
	}

	index, err := s.indexes.Index(req.LibraryName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open vector index for library %s: %w", req.LibraryName, err)
	}

	// Over-fetch so lexical boosting has candidates to reorder
	candidates, err := index.Query(ctx, embedding, topK*s.config.OverfetchFactor)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("vector search failed: %w", err)
	}

	hits := s.processor.Rerank(candidates, processed, topK)

	s.logger.Debug().
		Str("library", req.LibraryName).
		Int("candidates", len(candidates)).
		Int("hits", len(hits)).
		Msg("Retrieval completed")

	return hits, history, conv, nil
}

// resolveConversation loads the requested conversation or creates a new
// one when no ID was supplied.
func (s *Service) resolveConversation(req *interfaces.ChatRequest) (*models.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := s.conversations.GetConversation(req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("conversation not found: %s", req.ConversationID)
		}
		return conv, nil
	}

	title := req.Message
	if len(title) > 20 {
		title = title[:20] + "..."
	}
	return &models.Conversation{
		ID:          common.NewConversationID(),
		LibraryName: req.LibraryName,
		Title:       "Conversation " + title,
	}, nil
}

// buildHistory prefers explicitly supplied history (stateless clients)
// over the stored conversation turns.
func (s *Service) buildHistory(req *interfaces.ChatRequest, conv *models.Conversation) []interfaces.Message {
	if len(req.History) > 0 {
		return req.History
	}
	if conv == nil {
		return nil
	}
	history := make([]interfaces.Message, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		history = append(history, interfaces.Message{Role: msg.Role, Content: msg.Content})
	}
	return history
}

// record appends the user and assistant turns to the conversation and
// persists it. Persistence failure is logged, not surfaced; the caller
// already has the answer.
func (s *Service) record(conv *models.Conversation, req *interfaces.ChatRequest, result *rag.Result) string {
	if conv == nil {
		return ""
	}

	now := time.Now()
	conv.AppendMessage(models.ChatMessage{Role: models.RoleUser, Content: req.Message, CreatedAt: now})
	conv.AppendMessage(models.ChatMessage{Role: models.RoleAssistant, Content: result.Answer, Sources: result.Sources, CreatedAt: now})

	if err := s.conversations.SaveConversation(conv); err != nil {
		s.logger.Warn().
			Err(err).
			Str("conversation_id", conv.ID).
			Msg("Failed to persist conversation turn")
	}
	return conv.ID
}

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillboard/folio/internal/common"
	"github.com/quillboard/folio/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// NewLLMService constructs the LLM service for the configured provider.
//
// The gemini provider serves both embeddings and chat from one service.
// The claude provider serves chat from Claude but still embeds through
// Gemini, since Anthropic exposes no embeddings endpoint and a library's
// index and queries must share one embedding function. Both returned
// services implement interfaces.StreamingLLM.
func NewLLMService(config *common.LLMConfig, logger arbor.ILogger) (interfaces.LLMService, error) {
	switch strings.ToLower(config.Provider) {
	case "gemini", "":
		return NewGeminiService(config, logger)

	case "claude":
		embedder, err := NewGeminiService(config, logger)
		if err != nil {
			return nil, fmt.Errorf("claude provider still requires a Gemini embedder: %w", err)
		}
		chatter, err := NewClaudeService(config, logger)
		if err != nil {
			return nil, err
		}
		logger.Info().
			Str("chat_model", chatter.ModelName()).
			Str("embed_model", config.EmbedModelName).
			Msg("Hybrid LLM service initialized (Claude chat, Gemini embeddings)")
		return &hybridService{embedder: embedder, chatter: chatter}, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (expected 'gemini' or 'claude')", config.Provider)
	}
}

// hybridService pairs Claude chat with Gemini embeddings.
type hybridService struct {
	embedder *GeminiService
	chatter  *ClaudeService
}

func (s *hybridService) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedder.Embed(ctx, text)
}

func (s *hybridService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return s.chatter.Chat(ctx, messages)
}

func (s *hybridService) ChatStream(ctx context.Context, messages []interfaces.Message, fn func(delta string) error) error {
	return s.chatter.ChatStream(ctx, messages, fn)
}

func (s *hybridService) ModelName() string {
	return s.chatter.ModelName()
}

func (s *hybridService) Dimension() int {
	return s.embedder.Dimension()
}

func (s *hybridService) HealthCheck(ctx context.Context) error {
	if err := s.embedder.performEmbeddingHealthCheck(ctx); err != nil {
		return fmt.Errorf("embedding model health check failed: %w", err)
	}
	return s.chatter.HealthCheck(ctx)
}

func (s *hybridService) Close() error {
	err := s.chatter.Close()
	if closeErr := s.embedder.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

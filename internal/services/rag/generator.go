package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
	"github.com/ternarybob/arbor"
)

// Fixed user-facing answers for terminal conditions that are not errors
// from the caller's point of view.
const (
	// NoEvidenceAnswer is returned when retrieval finds nothing; no model
	// call is made.
	NoEvidenceAnswer = "I couldn't find any relevant information in the library to answer your question."

	// ApologyAnswer is returned when the model call fails, so the
	// conversation still records an assistant turn.
	ApologyAnswer = "I'm sorry, I ran into a problem while generating an answer. Please try asking again."
)

// Result is a completed grounded generation.
type Result struct {
	Answer  string
	Sources []models.Source
}

// Generator produces grounded answers from ranked retrieval hits. The
// streaming capability is negotiated once at construction: if the LLM
// service implements interfaces.StreamingLLM, GenerateStream delivers
// incremental deltas, otherwise it degrades to single-shot delivery.
type Generator struct {
	llm       interfaces.LLMService
	streaming interfaces.StreamingLLM
	logger    arbor.ILogger
}

// NewGenerator creates an answer generator over the given LLM service.
func NewGenerator(llm interfaces.LLMService, logger arbor.ILogger) *Generator {
	streaming, _ := llm.(interfaces.StreamingLLM)
	if streaming == nil {
		logger.Info().Msg("LLM service does not support streaming; answers will be delivered single-shot")
	}
	return &Generator{
		llm:       llm,
		streaming: streaming,
		logger:    logger,
	}
}

// Generate produces a complete answer for the question grounded in the
// given hits. Zero hits short-circuit to the fixed no-evidence answer
// without calling the model. A model failure is logged and surfaced as a
// fixed apology answer rather than an error, so callers always receive a
// recordable assistant turn.
func (g *Generator) Generate(ctx context.Context, question string, hits []interfaces.SearchResult, history []interfaces.Message) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	if len(hits) == 0 {
		return &Result{Answer: NoEvidenceAnswer, Sources: []models.Source{}}, nil
	}

	evidence, sources := AssembleContext(hits)
	messages := BuildMessages(question, evidence, history)

	answer, err := g.llm.Chat(ctx, messages)
	if err != nil {
		g.logger.Error().
			Err(err).
			Int("hits", len(hits)).
			Msg("Grounded generation failed; returning apology answer")
		return &Result{Answer: ApologyAnswer, Sources: sources}, nil
	}

	return &Result{Answer: answer, Sources: sources}, nil
}

// GenerateStream produces an answer incrementally through emit.
//
// Event order: exactly one sources event first (empty on no evidence),
// zero or more answer deltas, then a done event. When the incremental
// channel is unavailable or fails, the generator falls back to a
// single-shot call and delivers the full answer as one answer event
// rather than failing the interaction. A non-nil error from emit aborts
// immediately; the model stream is abandoned and nothing further is
// emitted.
//
// The returned Result carries the full answer text for persistence.
func (g *Generator) GenerateStream(ctx context.Context, question string, hits []interfaces.SearchResult, history []interfaces.Message, emit func(interfaces.StreamEvent) error) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question cannot be empty")
	}

	evidence, sources := AssembleContext(hits)
	if sources == nil {
		sources = []models.Source{}
	}

	// Sources go out first, before any model call
	if err := emit(interfaces.StreamEvent{Type: interfaces.StreamEventSources, Sources: sources}); err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		if err := emit(interfaces.StreamEvent{Type: interfaces.StreamEventAnswer, Delta: NoEvidenceAnswer}); err != nil {
			return nil, err
		}
		if err := emit(interfaces.StreamEvent{Type: interfaces.StreamEventDone}); err != nil {
			return nil, err
		}
		return &Result{Answer: NoEvidenceAnswer, Sources: sources}, nil
	}

	messages := BuildMessages(question, evidence, history)

	var answer strings.Builder
	streamed := false
	if g.streaming != nil {
		var emitErr error
		err := g.streaming.ChatStream(ctx, messages, func(delta string) error {
			if err := emit(interfaces.StreamEvent{Type: interfaces.StreamEventAnswer, Delta: delta}); err != nil {
				emitErr = err
				return err
			}
			answer.WriteString(delta)
			return nil
		})
		switch {
		case emitErr != nil:
			// Consumer is gone; abandon the stream entirely
			return nil, emitErr
		case err == nil:
			streamed = true
		case ctx.Err() != nil:
			// Caller cancelled; do not fall back
			return nil, err
		default:
			g.logger.Warn().
				Err(err).
				Msg("Incremental generation failed; falling back to single-shot")
			answer.Reset()
		}
	}

	if !streamed {
		full, err := g.llm.Chat(ctx, messages)
		if err != nil {
			g.logger.Error().
				Err(err).
				Int("hits", len(hits)).
				Msg("Single-shot fallback failed; returning apology answer")
			full = ApologyAnswer
		}
		if err := emit(interfaces.StreamEvent{Type: interfaces.StreamEventAnswer, Delta: full}); err != nil {
			return nil, err
		}
		answer.WriteString(full)
	}

	if err := emit(interfaces.StreamEvent{Type: interfaces.StreamEventDone}); err != nil {
		return nil, err
	}

	return &Result{Answer: answer.String(), Sources: sources}, nil
}

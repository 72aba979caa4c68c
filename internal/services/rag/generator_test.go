package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// chatOnlyLLM is a single-shot stub without streaming support.
type chatOnlyLLM struct {
	answer string
	err    error
	calls  int
}

func (s *chatOnlyLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (s *chatOnlyLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func (s *chatOnlyLLM) ModelName() string                     { return "stub-model" }
func (s *chatOnlyLLM) Dimension() int                        { return 2 }
func (s *chatOnlyLLM) HealthCheck(ctx context.Context) error { return nil }
func (s *chatOnlyLLM) Close() error                          { return nil }

// streamingLLM additionally delivers deltas, optionally failing the stream.
type streamingLLM struct {
	chatOnlyLLM
	deltas    []string
	streamErr error
}

func (s *streamingLLM) ChatStream(ctx context.Context, messages []interfaces.Message, fn func(delta string) error) error {
	for _, delta := range s.deltas {
		if err := fn(delta); err != nil {
			return err
		}
	}
	return s.streamErr
}

func someHits() []interfaces.SearchResult {
	return []interfaces.SearchResult{
		hit("doc_a", 1, "relevant passage one", 0.1),
		hit("doc_a", 2, "relevant passage two", 0.2),
		hit("doc_b", 1, "relevant passage three", 0.3),
	}
}

func collectEvents(t *testing.T) (func(interfaces.StreamEvent) error, *[]interfaces.StreamEvent) {
	t.Helper()
	var events []interfaces.StreamEvent
	return func(ev interfaces.StreamEvent) error {
		events = append(events, ev)
		return nil
	}, &events
}

func TestGenerateNoEvidenceShortCircuit(t *testing.T) {
	llm := &chatOnlyLLM{answer: "should not be called"}
	g := NewGenerator(llm, arbor.NewLogger())

	result, err := g.Generate(context.Background(), "any question", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, NoEvidenceAnswer, result.Answer)
	assert.Empty(t, result.Sources)
	assert.Equal(t, 0, llm.calls, "no model call on empty evidence")
}

func TestGenerateReturnsAnswerAndSources(t *testing.T) {
	llm := &chatOnlyLLM{answer: "grounded answer"}
	g := NewGenerator(llm, arbor.NewLogger())

	result, err := g.Generate(context.Background(), "question", someHits(), nil)
	require.NoError(t, err)

	assert.Equal(t, "grounded answer", result.Answer)
	assert.Len(t, result.Sources, 3)
}

func TestGenerateModelFailureYieldsApology(t *testing.T) {
	llm := &chatOnlyLLM{err: errors.New("upstream exploded")}
	g := NewGenerator(llm, arbor.NewLogger())

	result, err := g.Generate(context.Background(), "question", someHits(), nil)
	require.NoError(t, err)

	assert.Equal(t, ApologyAnswer, result.Answer)
	assert.Len(t, result.Sources, 3, "sources still attached for the recorded turn")
}

func TestGenerateRejectsEmptyQuestion(t *testing.T) {
	g := NewGenerator(&chatOnlyLLM{}, arbor.NewLogger())
	_, err := g.Generate(context.Background(), "   ", someHits(), nil)
	assert.Error(t, err)
}

func TestGenerateStreamEventOrdering(t *testing.T) {
	llm := &streamingLLM{deltas: []string{"part one ", "part two"}}
	g := NewGenerator(llm, arbor.NewLogger())

	emit, events := collectEvents(t)
	result, err := g.GenerateStream(context.Background(), "question", someHits(), nil, emit)
	require.NoError(t, err)

	evs := *events
	require.GreaterOrEqual(t, len(evs), 4)

	// Exactly one sources event, and it comes first
	assert.Equal(t, interfaces.StreamEventSources, evs[0].Type)
	assert.Len(t, evs[0].Sources, 3)
	sourcesCount := 0
	for _, ev := range evs {
		if ev.Type == interfaces.StreamEventSources {
			sourcesCount++
		}
	}
	assert.Equal(t, 1, sourcesCount)

	// Terminal sentinel
	assert.Equal(t, interfaces.StreamEventDone, evs[len(evs)-1].Type)

	// Concatenated deltas reconstruct the full answer
	var rebuilt strings.Builder
	for _, ev := range evs {
		if ev.Type == interfaces.StreamEventAnswer {
			rebuilt.WriteString(ev.Delta)
		}
	}
	assert.Equal(t, "part one part two", rebuilt.String())
	assert.Equal(t, "part one part two", result.Answer)
}

func TestGenerateStreamFallsBackToSingleShot(t *testing.T) {
	llm := &streamingLLM{
		chatOnlyLLM: chatOnlyLLM{answer: "full answer"},
		streamErr:   errors.New("stream broke"),
	}
	g := NewGenerator(llm, arbor.NewLogger())

	emit, events := collectEvents(t)
	result, err := g.GenerateStream(context.Background(), "question", someHits(), nil, emit)
	require.NoError(t, err)

	assert.Equal(t, "full answer", result.Answer)
	assert.Equal(t, 1, llm.calls, "single-shot fallback invoked once")

	// Full answer delivered as one answer event
	var answers []string
	for _, ev := range *events {
		if ev.Type == interfaces.StreamEventAnswer {
			answers = append(answers, ev.Delta)
		}
	}
	require.Len(t, answers, 1)
	assert.Equal(t, "full answer", answers[0])
}

func TestGenerateStreamNonStreamingServiceDeliversOneChunk(t *testing.T) {
	llm := &chatOnlyLLM{answer: "whole answer"}
	g := NewGenerator(llm, arbor.NewLogger())

	emit, events := collectEvents(t)
	result, err := g.GenerateStream(context.Background(), "question", someHits(), nil, emit)
	require.NoError(t, err)

	assert.Equal(t, "whole answer", result.Answer)

	evs := *events
	require.Len(t, evs, 3)
	assert.Equal(t, interfaces.StreamEventSources, evs[0].Type)
	assert.Equal(t, interfaces.StreamEventAnswer, evs[1].Type)
	assert.Equal(t, interfaces.StreamEventDone, evs[2].Type)
}

func TestGenerateStreamNoEvidence(t *testing.T) {
	llm := &streamingLLM{deltas: []string{"never"}}
	g := NewGenerator(llm, arbor.NewLogger())

	emit, events := collectEvents(t)
	result, err := g.GenerateStream(context.Background(), "question", nil, nil, emit)
	require.NoError(t, err)

	assert.Equal(t, NoEvidenceAnswer, result.Answer)
	assert.Empty(t, result.Sources)

	evs := *events
	require.Len(t, evs, 3)
	assert.Equal(t, interfaces.StreamEventSources, evs[0].Type)
	assert.Empty(t, evs[0].Sources)
	assert.Equal(t, NoEvidenceAnswer, evs[1].Delta)
	assert.Equal(t, interfaces.StreamEventDone, evs[2].Type)
}

func TestGenerateStreamAbortsWhenConsumerGone(t *testing.T) {
	llm := &streamingLLM{
		chatOnlyLLM: chatOnlyLLM{answer: "fallback"},
		deltas:      []string{"a", "b", "c"},
	}
	g := NewGenerator(llm, arbor.NewLogger())

	consumerErr := errors.New("client disconnected")
	count := 0
	emit := func(ev interfaces.StreamEvent) error {
		count++
		if count > 2 {
			return consumerErr
		}
		return nil
	}

	_, err := g.GenerateStream(context.Background(), "question", someHits(), nil, emit)
	assert.ErrorIs(t, err, consumerErr)
	assert.Equal(t, 0, llm.calls, "no fallback when the consumer is gone")
}

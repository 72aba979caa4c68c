package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the interface for language model operations including
// embeddings generation and chat completions. Implementations wrap a
// provider SDK (Gemini, Claude) behind a common surface.
type LLMService interface {
	// Embed generates an embedding vector for the given text. The vector
	// dimension is fixed per service instance and reported by Dimension.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Chat generates a completion response based on the conversation history.
	// The messages slice should contain the full conversation context including
	// system prompts, user messages, and previous assistant responses.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ModelName returns the chat model identifier in use.
	ModelName() string

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// HealthCheck verifies the LLM service is operational and can handle requests.
	HealthCheck(ctx context.Context) error

	// Close releases resources and performs cleanup operations.
	Close() error
}

// StreamingLLM is implemented by LLM services that can deliver chat
// completions incrementally. Callers must type-assert: a service that does
// not implement it only supports single-shot completion, and streaming
// consumers fall back accordingly.
type StreamingLLM interface {
	// ChatStream generates a completion and invokes fn once per text delta,
	// in order. A non-nil error from fn aborts the stream and is returned.
	// An error after deltas have been delivered means the response is
	// incomplete.
	ChatStream(ctx context.Context, messages []Message, fn func(delta string) error) error
}

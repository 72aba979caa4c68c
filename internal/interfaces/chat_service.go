package interfaces

import (
	"context"
	"encoding/json"

	"github.com/quillboard/folio/internal/models"
)

// Stream event types, in the order they may appear on a stream
const (
	// StreamEventSources carries the retrieved sources; always the first event
	StreamEventSources = "sources"
	// StreamEventAnswer carries one answer text delta
	StreamEventAnswer = "answer"
	// StreamEventError carries a terminal error description
	StreamEventError = "error"
	// StreamEventDone signals the end of the stream
	StreamEventDone = "done"
)

// ChatRequest represents a grounded question against one library
type ChatRequest struct {
	// Library to search
	LibraryName string `json:"library_name" validate:"required"`

	// User's question
	Message string `json:"message" validate:"required"`

	// Conversation to append the exchange to (optional; one is created
	// when empty)
	ConversationID string `json:"conversation_id,omitempty"`

	// Conversation history (optional, supplied by stateless clients)
	History []Message `json:"history,omitempty"`

	// Number of passages to retrieve (optional, defaults apply)
	TopK int `json:"top_k,omitempty" validate:"omitempty,min=1,max=50"`
}

// ChatResponse represents a complete grounded answer
type ChatResponse struct {
	// Generated answer text
	Answer string `json:"answer"`

	// Passages the answer is grounded on, best first
	Sources []models.Source `json:"sources"`

	// Conversation the exchange was recorded in
	ConversationID string `json:"conversation_id,omitempty"`

	// Model used
	Model string `json:"model"`
}

// StreamEvent is one unit of a streamed chat response. A well-formed
// stream is exactly one sources event, zero or more answer events, then a
// done event; an error event terminates the stream early.
type StreamEvent struct {
	Type    string
	Sources []models.Source
	Delta   string
	Error   string
}

// MarshalJSON renders the event in the client wire shape: the payload of
// sources and answer events rides under "content", keyed by type.
func (e StreamEvent) MarshalJSON() ([]byte, error) {
	out := struct {
		Type    string      `json:"type"`
		Content interface{} `json:"content,omitempty"`
		Error   string      `json:"error,omitempty"`
	}{Type: e.Type, Error: e.Error}

	switch e.Type {
	case StreamEventSources:
		sources := e.Sources
		if sources == nil {
			sources = []models.Source{}
		}
		out.Content = sources
	case StreamEventAnswer:
		out.Content = e.Delta
	}
	return json.Marshal(out)
}

// ChatService answers questions grounded in a library's documents
type ChatService interface {
	// Ask retrieves context and generates a complete answer
	Ask(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// AskStream retrieves context and streams the answer through emit.
	// Event ordering follows the StreamEvent contract. A non-nil error
	// from emit aborts the stream.
	AskStream(ctx context.Context, req *ChatRequest, emit func(StreamEvent) error) error

	// HealthCheck verifies the chat pipeline is operational
	HealthCheck(ctx context.Context) error
}

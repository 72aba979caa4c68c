package models

import (
	"time"
)

// Chat message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single turn in a conversation.
type ChatMessage struct {
	Role      string    `json:"role"` // user or assistant
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources,omitempty"` // Populated on assistant turns
	CreatedAt time.Time `json:"created_at"`
}

// Source identifies one retrieved passage that grounds an answer.
type Source struct {
	DocumentID string  `json:"document_id"`
	PageNum    int     `json:"page_num"`
	Distance   float64 `json:"distance"`
	Preview    string  `json:"text_preview"` // First 200 characters of the chunk
}

// Conversation is a persisted chat history scoped to one library.
type Conversation struct {
	ID          string        `json:"id" badgerhold:"key"` // conv_{uuid}
	LibraryName string        `json:"library_name" badgerholdIndex:"LibraryName"`
	Title       string        `json:"title"`
	Messages    []ChatMessage `json:"messages"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// AppendMessage adds a turn and bumps UpdatedAt.
func (c *Conversation) AppendMessage(msg ChatMessage) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

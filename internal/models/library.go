package models

import (
	"time"
)

// Library groups documents that share a vector index. Queries always run
// against a single library.
type Library struct {
	ID          string    `json:"id" badgerhold:"key"` // lib_{uuid}
	Name        string    `json:"name" badgerholdIndex:"Name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LibraryStats summarizes the contents of a library.
type LibraryStats struct {
	LibraryName    string         `json:"library_name"`
	TotalDocuments int            `json:"total_documents"`
	ByStatus       map[string]int `json:"by_status"`
	BySourceType   map[string]int `json:"by_source_type"`
	TotalPages     int            `json:"total_pages"`
	TotalChunks    int            `json:"total_chunks"`
}

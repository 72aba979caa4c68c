package models

import (
	"time"
)

// Document processing states
const (
	// StatusProcessing indicates ingestion is in flight
	StatusProcessing = "processing"
	// StatusProcessed indicates the document is fully indexed and queryable
	StatusProcessed = "processed"
	// StatusError indicates ingestion failed; ErrorDetail carries the cause
	StatusError = "error"
)

// Document source types
const (
	SourceTypePDF = "pdf"
	SourceTypeWeb = "web"
)

// Document represents an ingested source within a library. Status moves
// processing -> processed on success or processing -> error on failure;
// a reprocess resets it to processing.
type Document struct {
	ID          string `json:"id" badgerhold:"key"` // doc_{uuid}
	LibraryName string `json:"library_name" badgerholdIndex:"LibraryName"`
	Title       string `json:"title"`
	SourceType  string `json:"source_type"` // pdf or web
	SourcePath  string `json:"source_path"` // File path for pdf, URL for web
	Status      string `json:"status"`
	ErrorDetail string `json:"error_detail,omitempty"`

	PageCount  int   `json:"page_count"`
	ChunkCount int   `json:"chunk_count"`
	FileSize   int64 `json:"file_size,omitempty"` // Bytes on disk; zero for web documents

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// IsTerminal reports whether the document has finished processing, in
// either direction.
func (d *Document) IsTerminal() bool {
	return d.Status == StatusProcessed || d.Status == StatusError
}

// PageDetails carries structural facts about a page's extracted text.
type PageDetails struct {
	WordCount int  `json:"word_count"`
	CharCount int  `json:"char_count"`
	HasTables bool `json:"has_tables"`
	HasImages bool `json:"has_images"`
}

// Page is one unit of extracted text. For PDFs it is a physical page; for
// web documents there is a single page numbered 1. Pages exist only during
// extraction and chunking and are not persisted.
type Page struct {
	PageNum int         `json:"page_num"`
	Text    string      `json:"text"`
	Details PageDetails `json:"details"`
}

// Chunk is a contiguous slice of a page's text, sized for embedding.
// IDs follow "{page_num}_{index}" for PDF pages and "web_{page_num}_{index}"
// for web content, with the index counted per page. Details are inherited
// unchanged from the owning page.
type Chunk struct {
	ID      string      `json:"id"`
	Text    string      `json:"text"`
	PageNum int         `json:"page_num"`
	Details PageDetails `json:"details"`
}

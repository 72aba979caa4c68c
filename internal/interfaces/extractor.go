package interfaces

import (
	"context"

	"github.com/quillboard/folio/internal/models"
)

// PDFExtractor extracts per-page text from a PDF file on disk. This
// abstracts the extraction backend so it can be swapped without touching
// the ingestion pipeline.
type PDFExtractor interface {
	// ExtractPages returns the text of each page, 1-indexed, in order.
	// Pages that contain no extractable text are returned with empty text.
	ExtractPages(ctx context.Context, path string) ([]models.Page, error)

	// PageCount returns the number of pages without extracting text.
	PageCount(ctx context.Context, path string) (int, error)
}

// WebExtraction is the result of fetching and converting a web page.
type WebExtraction struct {
	Title string
	Pages []models.Page
}

// WebExtractor fetches a URL and converts its main content to markdown
// text. Web documents always produce a single page numbered 1.
type WebExtractor interface {
	Extract(ctx context.Context, url string) (*WebExtraction, error)
}

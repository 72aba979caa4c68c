package interfaces

import (
	"context"

	"github.com/quillboard/folio/internal/models"
)

// AddPDFRequest registers an uploaded PDF for ingestion
type AddPDFRequest struct {
	LibraryName string `validate:"required"`
	Title       string `validate:"required"`
	FilePath    string `validate:"required"`
}

// AddWebRequest registers a web page for ingestion
type AddWebRequest struct {
	LibraryName string `validate:"required"`
	URL         string `validate:"required,url"`
	Title       string
}

// DocumentService manages the document lifecycle. Add and Reprocess return
// as soon as the document record exists with status processing; extraction,
// chunking and embedding continue in the background.
type DocumentService interface {
	// AddPDF registers a PDF document and starts background ingestion
	AddPDF(ctx context.Context, req *AddPDFRequest) (*models.Document, error)

	// AddWeb registers a web document and starts background ingestion
	AddWeb(ctx context.Context, req *AddWebRequest) (*models.Document, error)

	// Get returns a document by ID
	Get(ctx context.Context, documentID string) (*models.Document, error)

	// List returns the documents in a library
	List(ctx context.Context, libraryName string) ([]*models.Document, error)

	// Delete removes a document's metadata and every vector it owns
	Delete(ctx context.Context, documentID string) error

	// Reprocess re-runs ingestion for a document: existing vectors are
	// removed and the source is extracted, chunked and embedded again
	Reprocess(ctx context.Context, documentID string) (*models.Document, error)

	// ProcessPending recovers documents left in the processing state by a
	// crashed ingestion run, up to limit. Failed documents are not retried
	// here; they wait for an explicit Reprocess. Used by the scheduled
	// catch-up run.
	ProcessPending(ctx context.Context, limit int) (int, error)
}

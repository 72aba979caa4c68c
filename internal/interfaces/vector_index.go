package interfaces

import (
	"context"
)

// VectorRecord is one embedded chunk stored in a library's vector index.
// The record ID is "{document_id}_{chunk_id}", which makes upserts during
// reprocessing idempotent.
type VectorRecord struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	ChunkID    string            `json:"chunk_id"`
	PageNum    int               `json:"page_num"`
	Text       string            `json:"text"`
	Embedding  []float32         `json:"embedding"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SearchResult pairs a stored record with its distance from a query
// embedding. Distance is 1 - cosine similarity: lower is closer.
type SearchResult struct {
	Record   VectorRecord `json:"record"`
	Distance float64      `json:"distance"`
}

// VectorIndex is a per-library embedding store supporting nearest-neighbour
// search and deletion by owning document.
type VectorIndex interface {
	// Upsert inserts or replaces records by ID.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Query returns up to k records nearest to the embedding, ordered by
	// ascending distance.
	Query(ctx context.Context, embedding []float32, k int) ([]SearchResult, error)

	// DeleteByDocument removes every record owned by the document and
	// returns the number removed.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

// VectorIndexProvider manages the set of per-library indexes. Index opens
// lazily and creates on first use; concurrent calls for the same library
// return the same index.
type VectorIndexProvider interface {
	Index(libraryName string) (VectorIndex, error)
	DropIndex(libraryName string) error
	Close() error
}

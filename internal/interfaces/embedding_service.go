package interfaces

import (
	"context"

	"github.com/quillboard/folio/internal/models"
)

// EmbeddingService generates vector embeddings
type EmbeddingService interface {
	// Generate embedding for raw text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// Generate query embedding (the query text is preprocessed before
	// embedding, so this may differ from a plain text embedding)
	GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error)

	// EmbedChunks converts document chunks into vector records ready for
	// upsert, embedding each chunk's text
	EmbedChunks(ctx context.Context, documentID string, chunks []models.Chunk) ([]VectorRecord, error)

	// Get model information
	ModelName() string
	Dimension() int
}

package embeddings

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
	"github.com/ternarybob/arbor"
)

var (
	quotedPattern      = regexp.MustCompile(`"([^"]+)"`)
	capitalizedPattern = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)
	technicalPattern   = regexp.MustCompile(`\b[a-zA-Z]+[_\-][a-zA-Z0-9_\-]+\b`)
)

// maxStoredKeywords bounds the keywords persisted per chunk
const maxStoredKeywords = 10

// Service generates embeddings through the configured LLM service and
// prepares indexed records from document chunks, attaching provenance
// metadata and extracted keywords.
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewService creates an embedding service backed by the given LLM service.
func NewService(llm interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{
		llm:    llm,
		logger: logger,
	}
}

// GenerateEmbedding embeds raw text.
func (s *Service) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return s.llm.Embed(ctx, text)
}

// GenerateQueryEmbedding embeds a (preprocessed) query. Indexing and
// querying share one embedding model, so query vectors are comparable to
// stored chunk vectors.
func (s *Service) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	return s.llm.Embed(ctx, query)
}

// EmbedChunks converts chunks into vector records, embedding each chunk's
// text. Record IDs are "{document_id}_{chunk_id}", deterministic so that
// re-adding a document overwrites rather than duplicates.
func (s *Service) EmbedChunks(ctx context.Context, documentID string, chunks []models.Chunk) ([]interfaces.VectorRecord, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document ID is required")
	}

	records := make([]interfaces.VectorRecord, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := s.llm.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunk %s of document %s: %w", chunk.ID, documentID, err)
		}

		records = append(records, interfaces.VectorRecord{
			ID:         fmt.Sprintf("%s_%s", documentID, chunk.ID),
			DocumentID: documentID,
			ChunkID:    chunk.ID,
			PageNum:    chunk.PageNum,
			Text:       chunk.Text,
			Embedding:  embedding,
			Metadata:   chunkMetadata(documentID, chunk),
		})
	}

	s.logger.Debug().
		Str("document_id", documentID).
		Int("chunks", len(records)).
		Msg("Embedded document chunks")

	return records, nil
}

// ModelName returns the underlying chat model identifier.
func (s *Service) ModelName() string {
	return s.llm.ModelName()
}

// Dimension returns the embedding vector dimension.
func (s *Service) Dimension() int {
	return s.llm.Dimension()
}

// chunkMetadata builds the metadata persisted with an indexed record.
func chunkMetadata(documentID string, chunk models.Chunk) map[string]string {
	metadata := map[string]string{
		"document_id": documentID,
		"chunk_id":    chunk.ID,
		"page_num":    strconv.Itoa(chunk.PageNum),
		"chunk_size":  strconv.Itoa(len(chunk.Text)),
	}
	if chunk.Details.HasTables {
		metadata["has_tables"] = "true"
	}
	if chunk.Details.HasImages {
		metadata["has_images"] = "true"
	}
	if keywords := ExtractKeywords(chunk.Text); len(keywords) > 0 {
		if len(keywords) > maxStoredKeywords {
			keywords = keywords[:maxStoredKeywords]
		}
		metadata["keywords"] = strings.Join(keywords, ", ")
	}
	return metadata
}

// ExtractKeywords pulls likely-important terms out of text: quoted
// phrases, capitalized words of three or more letters, and technical
// tokens containing underscores or hyphens. Duplicates are removed with
// first-seen order preserved.
func ExtractKeywords(text string) []string {
	var keywords []string

	for _, match := range quotedPattern.FindAllStringSubmatch(text, -1) {
		keywords = append(keywords, match[1])
	}
	keywords = append(keywords, capitalizedPattern.FindAllString(text, -1)...)
	keywords = append(keywords, technicalPattern.FindAllString(text, -1)...)

	seen := make(map[string]struct{}, len(keywords))
	unique := keywords[:0]
	for _, kw := range keywords {
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		unique = append(unique, kw)
	}
	return unique
}

package embeddings

import (
	"context"
	"strings"
	"testing"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// stubLLM returns a fixed-dimension vector derived from text length.
type stubLLM struct {
	calls int
}

func (s *stubLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	return []float32{float32(len(text)), 1, 0}, nil
}

func (s *stubLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return "stub answer", nil
}

func (s *stubLLM) ModelName() string                       { return "stub-model" }
func (s *stubLLM) Dimension() int                          { return 3 }
func (s *stubLLM) HealthCheck(ctx context.Context) error   { return nil }
func (s *stubLLM) Close() error                            { return nil }

func TestEmbedChunksRecordShape(t *testing.T) {
	llm := &stubLLM{}
	svc := NewService(llm, arbor.NewLogger())

	chunks := []models.Chunk{
		{ID: "1_0", Text: "first chunk text", PageNum: 1},
		{ID: "1_1", Text: "second chunk text", PageNum: 1, Details: models.PageDetails{HasTables: true}},
	}

	records, err := svc.EmbedChunks(context.Background(), "doc_abc", chunks)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "doc_abc_1_0", records[0].ID)
	assert.Equal(t, "doc_abc", records[0].DocumentID)
	assert.Equal(t, "1_0", records[0].ChunkID)
	assert.Equal(t, 1, records[0].PageNum)
	assert.Len(t, records[0].Embedding, 3)
	assert.Equal(t, "doc_abc", records[0].Metadata["document_id"])
	assert.Equal(t, "1", records[0].Metadata["page_num"])
	assert.Equal(t, "16", records[0].Metadata["chunk_size"])

	assert.Equal(t, "true", records[1].Metadata["has_tables"])
	assert.NotContains(t, records[0].Metadata, "has_tables")

	assert.Equal(t, 2, llm.calls)
}

func TestEmbedChunksRequiresDocumentID(t *testing.T) {
	svc := NewService(&stubLLM{}, arbor.NewLogger())
	_, err := svc.EmbedChunks(context.Background(), "", []models.Chunk{{ID: "1_0", Text: "x"}})
	assert.Error(t, err)
}

func TestGenerateQueryEmbeddingRejectsEmpty(t *testing.T) {
	svc := NewService(&stubLLM{}, arbor.NewLogger())
	_, err := svc.GenerateQueryEmbedding(context.Background(), "   ")
	assert.Error(t, err)
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "quoted phrase",
			text:     `the term "dark energy" appears often`,
			expected: []string{"dark energy"},
		},
		{
			name:     "capitalized words",
			text:     "Newton studied at Cambridge",
			expected: []string{"Newton", "Cambridge"},
		},
		{
			name:     "technical tokens",
			text:     "set the chunk_size and top-k values",
			expected: []string{"chunk_size", "top-k"},
		},
		{
			name:     "short capitalized ignored",
			text:     "Mr Ed is here",
			expected: nil,
		},
		{
			name:     "duplicates removed",
			text:     "Paris and Paris again",
			expected: []string{"Paris"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractKeywords(tt.text))
		})
	}
}

func TestChunkMetadataKeywordCap(t *testing.T) {
	text := "Alpha Bravo Charlie Delta Echoes Foxtrot Golfer Hotels Indias Juliet Kilos Limas"
	chunk := models.Chunk{ID: "1_0", Text: text, PageNum: 1}

	metadata := chunkMetadata("doc_x", chunk)
	keywords := metadata["keywords"]
	require.NotEmpty(t, keywords)
	// Comma-joined list holds at most ten entries
	assert.LessOrEqual(t, len(strings.Split(keywords, ", ")), 10)
}

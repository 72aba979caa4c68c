package vectorstore

import (
	"context"
	"strings"
	"testing"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p := NewProvider(arbor.NewLogger(), t.TempDir(), "gemini-embedding-001")
	t.Cleanup(func() {
		_ = p.Close()
	})
	return p
}

func TestProviderRejectsModelMismatch(t *testing.T) {
	dir := t.TempDir()

	p := NewProvider(arbor.NewLogger(), dir, "gemini-embedding-001")
	_, err := p.Index("fiction")
	require.NoError(t, err)
	require.NoError(t, p.Close())

	other := NewProvider(arbor.NewLogger(), dir, "some-other-model")
	t.Cleanup(func() { _ = other.Close() })
	_, err = other.Index("fiction")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini-embedding-001")

	same := NewProvider(arbor.NewLogger(), dir, "gemini-embedding-001")
	t.Cleanup(func() { _ = same.Close() })
	_, err = same.Index("fiction")
	assert.NoError(t, err)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		prefix string
	}{
		{"plain", "fiction", "fiction_"},
		{"mixed case preserved", "MyLibrary", "MyLibrary_"},
		{"spaces replaced", "my library", "my_library_"},
		{"punctuation replaced", "sci-fi: classics!", "sci-fi__classics_"},
		{"unicode replaced", "bücher", "b_cher_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeName(tt.input)
			assert.True(t, strings.HasPrefix(got, tt.prefix), "got %q", got)
			assert.Equal(t, got, sanitizeName(tt.input), "sanitized name should be stable")
		})
	}

	assert.Empty(t, sanitizeName("///"))

	// Names that collapse to the same safe prefix still map to distinct
	// directories through the raw-name hash suffix.
	assert.NotEqual(t, sanitizeName("my lib"), sanitizeName("my_lib"))
}

func TestProviderIndexReuse(t *testing.T) {
	p := newTestProvider(t)

	first, err := p.Index("fiction")
	require.NoError(t, err)

	second, err := p.Index("fiction")
	require.NoError(t, err)

	assert.Same(t, first, second, "same library should return the same index")

	other, err := p.Index("history")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestProviderKeepsSimilarNamesDisjoint(t *testing.T) {
	p := newTestProvider(t)

	spaced, err := p.Index("my lib")
	require.NoError(t, err)
	underscored, err := p.Index("my_lib")
	require.NoError(t, err)
	require.NotSame(t, spaced, underscored)

	ctx := context.Background()
	require.NoError(t, spaced.Upsert(ctx, []interfaces.VectorRecord{
		{ID: "doc_a_1_0", DocumentID: "doc_a", Embedding: []float32{1, 0}},
	}))

	count, err := underscored.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "libraries with similar names should not share a store")
}

func TestProviderIndexInvalidName(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.Index("///")
	assert.Error(t, err)
}

func TestIndexQueryOrdering(t *testing.T) {
	p := newTestProvider(t)
	idx, err := p.Index("fiction")
	require.NoError(t, err)

	ctx := context.Background()
	records := []interfaces.VectorRecord{
		{ID: "doc_a_1_0", DocumentID: "doc_a", ChunkID: "1_0", PageNum: 1, Text: "alpha", Embedding: []float32{1, 0, 0}},
		{ID: "doc_a_2_0", DocumentID: "doc_a", ChunkID: "2_0", PageNum: 2, Text: "beta", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "doc_b_1_0", DocumentID: "doc_b", ChunkID: "1_0", PageNum: 1, Text: "gamma", Embedding: []float32{0, 1, 0}},
	}
	require.NoError(t, idx.Upsert(ctx, records))

	results, err := idx.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "doc_a_1_0", results[0].Record.ID)
	assert.Equal(t, "doc_a_2_0", results[1].Record.ID)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-9)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestIndexQueryKLargerThanStore(t *testing.T) {
	p := newTestProvider(t)
	idx, err := p.Index("fiction")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, []interfaces.VectorRecord{
		{ID: "doc_a_1_0", DocumentID: "doc_a", Embedding: []float32{1, 0}},
	}))

	results, err := idx.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestIndexUpsertReplacesByID(t *testing.T) {
	p := newTestProvider(t)
	idx, err := p.Index("fiction")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, []interfaces.VectorRecord{
		{ID: "doc_a_1_0", DocumentID: "doc_a", Text: "old", Embedding: []float32{1, 0}},
	}))
	require.NoError(t, idx.Upsert(ctx, []interfaces.VectorRecord{
		{ID: "doc_a_1_0", DocumentID: "doc_a", Text: "new", Embedding: []float32{1, 0}},
	}))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := idx.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Record.Text)
}

func TestIndexDeleteByDocument(t *testing.T) {
	p := newTestProvider(t)
	idx, err := p.Index("fiction")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, []interfaces.VectorRecord{
		{ID: "doc_a_1_0", DocumentID: "doc_a", Embedding: []float32{1, 0}},
		{ID: "doc_a_1_1", DocumentID: "doc_a", Embedding: []float32{0.8, 0.2}},
		{ID: "doc_b_1_0", DocumentID: "doc_b", Embedding: []float32{0, 1}},
	}))

	removed, err := idx.DeleteByDocument(ctx, "doc_a")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Deleting again is a no-op
	removed, err = idx.DeleteByDocument(ctx, "doc_a")
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
		{"scaled is identical", []float32{1, 1}, []float32{5, 5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, cosineDistance(tt.a, tt.b), 1e-9)
		})
	}
}

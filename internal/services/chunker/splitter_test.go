package chunker

import (
	"strings"
	"testing"

	"github.com/quillboard/folio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplitterValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{"valid", 750, 150, false},
		{"zero overlap", 100, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 100, -1, true},
		{"overlap equals size", 100, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.size, tt.overlap)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitTextShortTextSingleChunk(t *testing.T) {
	s, err := NewSplitter(100, 20)
	require.NoError(t, err)

	chunks := s.SplitText("a short paragraph")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0])
}

func TestSplitTextRespectsChunkSize(t *testing.T) {
	s, err := NewSplitter(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)
	chunks := s.SplitText(text)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 50, "chunk %d exceeds size: %q", i, chunk)
		assert.NotEmpty(t, chunk)
	}
}

func TestSplitTextPrefersParagraphBreaks(t *testing.T) {
	s, err := NewSplitter(40, 0)
	require.NoError(t, err)

	text := "first paragraph here.\n\nsecond paragraph here."
	chunks := s.SplitText(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "first paragraph here.", chunks[0])
	assert.Equal(t, "second paragraph here.", chunks[1])
}

func TestSplitTextOverlapCarried(t *testing.T) {
	s, err := NewSplitter(30, 10)
	require.NoError(t, err)

	text := "one two three four five six seven eight nine ten"
	chunks := s.SplitText(text)
	require.Greater(t, len(chunks), 1)

	// Each chunk after the first starts with text already seen at the end
	// of the previous chunk
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i])[0]
		assert.Contains(t, chunks[i-1], firstWord,
			"chunk %d should share leading words with chunk %d", i, i-1)
	}
}

func TestSplitTextUnsplittableTokenOverflows(t *testing.T) {
	s, err := NewSplitter(10, 0)
	require.NoError(t, err)

	// A 25-character run with no separators cannot be split coarsely, so
	// it is divided at character level
	chunks := s.SplitText(strings.Repeat("x", 25))
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 10)
	}
	assert.Equal(t, strings.Repeat("x", 25), strings.Join(chunks, ""))
}

func TestSplitTextContentPreserved(t *testing.T) {
	s, err := NewSplitter(60, 15)
	require.NoError(t, err)

	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu nu xi omicron pi rho sigma tau"
	chunks := s.SplitText(text)

	// Every word of the input survives in some chunk, in order
	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(text) {
		assert.Contains(t, joined, word)
	}
}

func TestSplitTextDeterministic(t *testing.T) {
	s, err := NewSplitter(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("some repeated sentence with words. ", 15)
	first := s.SplitText(text)
	second := s.SplitText(text)
	assert.Equal(t, first, second)
}

func TestChunkPagesIDsAndProvenance(t *testing.T) {
	s, err := NewSplitter(30, 5)
	require.NoError(t, err)

	pages := []models.Page{
		{PageNum: 1, Text: "page one text that is long enough to split into pieces", Details: models.PageDetails{WordCount: 10, CharCount: 54}},
		{PageNum: 2, Text: "short", Details: models.PageDetails{HasTables: true}},
	}

	chunks := s.ChunkPages(pages, "")
	require.NotEmpty(t, chunks)

	// IDs restart at 0 for each page
	assert.Equal(t, "1_0", chunks[0].ID)
	var pageTwo []models.Chunk
	for _, c := range chunks {
		if c.PageNum == 2 {
			pageTwo = append(pageTwo, c)
		}
	}
	require.Len(t, pageTwo, 1)
	assert.Equal(t, "2_0", pageTwo[0].ID)
	assert.True(t, pageTwo[0].Details.HasTables, "chunk inherits page details")
}

func TestChunkPagesWebPrefix(t *testing.T) {
	s, err := NewSplitter(100, 20)
	require.NoError(t, err)

	chunks := s.ChunkPages([]models.Page{{PageNum: 1, Text: "web page content"}}, "web_")
	require.Len(t, chunks, 1)
	assert.Equal(t, "web_1_0", chunks[0].ID)
}

func TestChunkPagesSkipsEmptyPages(t *testing.T) {
	s, err := NewSplitter(100, 20)
	require.NoError(t, err)

	pages := []models.Page{
		{PageNum: 1, Text: ""},
		{PageNum: 2, Text: "   \n\t  "},
		{PageNum: 3, Text: "real content"},
	}
	chunks := s.ChunkPages(pages, "")
	require.Len(t, chunks, 1)
	assert.Equal(t, 3, chunks[0].PageNum)
	assert.Equal(t, "3_0", chunks[0].ID)
}

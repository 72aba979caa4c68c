package query

import (
	"testing"

	"github.com/quillboard/folio/internal/common"
	"github.com/quillboard/folio/internal/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

func newTestProcessor() *Processor {
	config := common.NewDefaultConfig()
	return NewProcessor(&config.Retrieval, arbor.NewLogger())
}

func TestPreprocess(t *testing.T) {
	p := newTestProcessor()

	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "plain lowercase query unchanged",
			query:    "what is the plot about",
			expected: "what is the plot about",
		},
		{
			name:     "whitespace trimmed",
			query:    "  simple question  ",
			expected: "simple question",
		},
		{
			name:     "quoted phrase unquoted and appended",
			query:    `tell me about "dark matter"`,
			expected: `tell me about dark matter dark matter`,
		},
		{
			name:     "capitalized term appended",
			query:    "who is Gatsby",
			expected: "who is Gatsby Gatsby",
		},
		{
			name:     "short capitalized words ignored",
			query:    "what does Mr An say",
			expected: "what does Mr An say",
		},
		{
			name:     "quoted and capitalized combined",
			query:    `did Einstein write "general relativity"`,
			expected: `did Einstein write general relativity general relativity Einstein`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Preprocess(tt.query))
		})
	}
}

func hit(id, text string, distance float64) interfaces.SearchResult {
	return interfaces.SearchResult{
		Record:   interfaces.VectorRecord{ID: id, Text: text},
		Distance: distance,
	}
}

func TestRerankBoostsLexicalOverlap(t *testing.T) {
	p := newTestProcessor()

	// The second candidate is semantically farther but mentions the query
	// term three times, earning a 0.3 boost that overtakes the first
	candidates := []interfaces.SearchResult{
		hit("a", "nothing relevant here at all", 0.40),
		hit("b", "gravity pulls, gravity bends, gravity wins", 0.55),
	}

	results := p.Rerank(candidates, "explain gravity", 2)
	assert.Equal(t, "b", results[0].Record.ID)
	assert.Equal(t, "a", results[1].Record.ID)

	// Original distances are preserved
	assert.Equal(t, 0.55, results[0].Distance)
}

func TestRerankBoostCapsPerTerm(t *testing.T) {
	p := newTestProcessor()

	// Five occurrences count the same as three
	candidates := []interfaces.SearchResult{
		hit("three", "echo echo echo", 0.50),
		hit("five", "echo echo echo echo echo", 0.50),
	}

	results := p.Rerank(candidates, "echo", 2)
	// Equal adjusted distances: stable sort keeps input order
	assert.Equal(t, "three", results[0].Record.ID)
	assert.Equal(t, "five", results[1].Record.ID)
}

func TestRerankDistanceFloor(t *testing.T) {
	p := newTestProcessor()

	// A massive boost cannot push a candidate below the floor or beneath
	// an already-close candidate sitting at it
	candidates := []interfaces.SearchResult{
		hit("close", "unrelated text", 0.01),
		hit("boosted", "term term term term", 0.15),
	}

	results := p.Rerank(candidates, "term", 2)
	assert.Equal(t, "close", results[0].Record.ID)
}

func TestRerankShortWordsIgnored(t *testing.T) {
	p := newTestProcessor()

	candidates := []interfaces.SearchResult{
		hit("a", "it is an ox", 0.30),
		hit("b", "something else entirely", 0.20),
	}

	// Every query word is under three letters, so no boosting happens
	results := p.Rerank(candidates, "is it an ox", 2)
	assert.Equal(t, "b", results[0].Record.ID)
}

func TestRerankTruncatesToK(t *testing.T) {
	p := newTestProcessor()

	candidates := []interfaces.SearchResult{
		hit("a", "x", 0.1),
		hit("b", "y", 0.2),
		hit("c", "z", 0.3),
	}

	results := p.Rerank(candidates, "anything", 2)
	assert.Len(t, results, 2)
}

func TestRerankEmptyCandidates(t *testing.T) {
	p := newTestProcessor()
	assert.Empty(t, p.Rerank(nil, "query", 5))
}

func TestRerankMoreMatchedTermsRanksHigher(t *testing.T) {
	p := newTestProcessor()

	// At equal original distance, matching strictly more terms never ranks
	// lower
	candidates := []interfaces.SearchResult{
		hit("one-term", "the orbit is stable", 0.50),
		hit("two-terms", "the orbit around the planet", 0.50),
	}

	results := p.Rerank(candidates, "orbit planet", 2)
	assert.Equal(t, "two-terms", results[0].Record.ID)
}

package chunker

import (
	"fmt"
	"strings"

	"github.com/quillboard/folio/internal/models"
)

// defaultSeparators orders split boundaries coarsest first: paragraph
// breaks, then line breaks, then spaces, then individual characters.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter divides page text into overlapping chunks using a layered
// separator strategy. It accepts the coarsest split whose pieces fit the
// chunk size and recurses into finer separators only for oversized pieces,
// so paragraph and sentence structure survives where possible.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewSplitter creates a splitter. chunkSize bounds chunk length in
// characters; chunkOverlap is carried from the end of each chunk into the
// next within the same page.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", chunkOverlap)
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}, nil
}

// ChunkPages splits each page's text and assigns deterministic chunk IDs
// "{idPrefix}{page_num}_{index}", with the index counted per page. Pages
// with empty or whitespace-only text produce no chunks. Re-running on the
// same input yields an identical chunk sequence.
func (s *Splitter) ChunkPages(pages []models.Page, idPrefix string) []models.Chunk {
	var chunks []models.Chunk
	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		pieces := s.SplitText(page.Text)
		for i, text := range pieces {
			chunks = append(chunks, models.Chunk{
				ID:      fmt.Sprintf("%s%d_%d", idPrefix, page.PageNum, i),
				Text:    text,
				PageNum: page.PageNum,
				Details: page.Details,
			})
		}
	}
	return chunks
}

// SplitText splits a single text into chunks. Every chunk is at most
// chunkSize characters unless a single unsplittable run forces an
// overflow.
func (s *Splitter) SplitText(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = ""
			remaining = nil
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	pieces := splitKeepSeparator(text, separator)

	var final []string
	var fitting []string
	for _, piece := range pieces {
		if len(piece) <= s.chunkSize {
			fitting = append(fitting, piece)
			continue
		}
		// Oversized piece: flush what fits, then split finer
		if len(fitting) > 0 {
			final = append(final, s.merge(fitting)...)
			fitting = nil
		}
		if len(remaining) == 0 {
			// No finer separator left; the piece is indivisible
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, remaining)...)
		}
	}
	if len(fitting) > 0 {
		final = append(final, s.merge(fitting)...)
	}
	return final
}

// merge accumulates fitting pieces into chunks up to chunkSize, carrying
// chunkOverlap characters worth of trailing pieces into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	for _, piece := range pieces {
		if total+len(piece) > s.chunkSize && len(window) > 0 {
			if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// Shrink the window to the overlap budget
			for total > s.chunkOverlap || (total+len(piece) > s.chunkSize && total > 0) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += len(piece)
	}
	if len(window) > 0 {
		if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// splitKeepSeparator splits text on separator with each separator kept at
// the start of the following piece, so joining the pieces reproduces the
// input. An empty separator splits into individual characters.
func splitKeepSeparator(text, separator string) []string {
	if separator == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}

	parts := strings.Split(text, separator)
	pieces := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = separator + part
		}
		if part != "" {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

package rag

import (
	"fmt"
	"strings"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
)

// sourcePreviewLength bounds the text preview attached to each source
const sourcePreviewLength = 200

// evidenceHeader opens the assembled evidence block. The generator's
// citation instructions depend on these markers being present verbatim,
// so their format is load-bearing.
const evidenceHeader = "# DOCUMENT EXCERPTS:"

// AssembleContext renders ranked hits into a single evidence block and a
// parallel source list.
//
// Hits are grouped by (document_id, page_num) with chunk texts
// newline-joined inside each group in retrieval order, and each group
// rendered under an explicit document/page heading. The source list keeps
// one entry per original hit, pre-grouping, with a bounded text preview
// for citation display.
func AssembleContext(hits []interfaces.SearchResult) (string, []models.Source) {
	if len(hits) == 0 {
		return "", nil
	}

	type groupKey struct {
		documentID string
		pageNum    int
	}

	var order []groupKey
	groups := make(map[groupKey][]string)
	sources := make([]models.Source, 0, len(hits))

	for _, hit := range hits {
		key := groupKey{documentID: hit.Record.DocumentID, pageNum: hit.Record.PageNum}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], hit.Record.Text)

		sources = append(sources, models.Source{
			DocumentID: hit.Record.DocumentID,
			PageNum:    hit.Record.PageNum,
			Distance:   hit.Distance,
			Preview:    preview(hit.Record.Text),
		})
	}

	var block strings.Builder
	block.WriteString(evidenceHeader)
	for _, key := range order {
		combined := strings.Join(groups[key], "\n")
		block.WriteString(fmt.Sprintf("\n\n## DOCUMENT ID: %s, PAGE: %d\n\n%s\n", key.documentID, key.pageNum, combined))
	}

	return block.String(), sources
}

// preview truncates text to the preview budget, ellipsis-suffixed when cut.
func preview(text string) string {
	if len(text) <= sourcePreviewLength {
		return text
	}
	return text[:sourcePreviewLength] + "..."
}

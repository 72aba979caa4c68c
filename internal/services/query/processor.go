package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/quillboard/folio/internal/common"
	"github.com/quillboard/folio/internal/interfaces"
	"github.com/ternarybob/arbor"
)

var (
	quotedPhrasePattern = regexp.MustCompile(`"([^"]+)"`)
	capitalizedPattern  = regexp.MustCompile(`\b[A-Z][a-z]{2,}\b`)
	queryWordPattern    = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)
)

// Processor rewrites raw queries into a form favorable to similarity
// search and re-ranks raw vector hits by lexical overlap.
type Processor struct {
	termBoost     float64
	boostCap      int
	distanceFloor float64
	logger        arbor.ILogger
}

// NewProcessor creates a query processor with the configured re-ranking
// constants.
func NewProcessor(config *common.RetrievalConfig, logger arbor.ILogger) *Processor {
	return &Processor{
		termBoost:     config.TermBoost,
		boostCap:      config.BoostCap,
		distanceFloor: config.DistanceFloor,
		logger:        logger,
	}
}

// Preprocess cleans a raw query and emphasizes its key terms. Quoted
// phrases and capitalized words are extracted; the quote characters are
// removed from the query text since they confuse the embedding model, and
// the extracted terms are appended once at the end to bias the embedding
// toward them.
func (p *Processor) Preprocess(query string) string {
	query = strings.TrimSpace(query)

	var keyTerms []string

	for _, match := range quotedPhrasePattern.FindAllStringSubmatch(query, -1) {
		term := match[1]
		keyTerms = append(keyTerms, term)
		query = strings.ReplaceAll(query, `"`+term+`"`, term)
	}

	keyTerms = append(keyTerms, capitalizedPattern.FindAllString(query, -1)...)

	if len(keyTerms) > 0 {
		query = query + " " + strings.Join(keyTerms, " ")
	}

	return query
}

// Rerank orders candidates by lexical-overlap-adjusted distance and
// truncates to k. For each lowercase query word of three or more letters,
// a candidate's distance is reduced by termBoost per occurrence in its
// text, counting at most boostCap occurrences per term; the adjusted
// distance never drops below distanceFloor, so lexical overlap biases but
// never fully overrides semantic similarity. The returned results keep
// their original distances.
func (p *Processor) Rerank(candidates []interfaces.SearchResult, processedQuery string, k int) []interfaces.SearchResult {
	if len(candidates) == 0 {
		return nil
	}

	terms := make(map[string]struct{})
	for _, word := range queryWordPattern.FindAllString(strings.ToLower(processedQuery), -1) {
		terms[word] = struct{}{}
	}

	type ranked struct {
		result   interfaces.SearchResult
		adjusted float64
	}

	rankedResults := make([]ranked, 0, len(candidates))
	for _, candidate := range candidates {
		textLower := strings.ToLower(candidate.Record.Text)

		boost := 0.0
		for term := range terms {
			if count := strings.Count(textLower, term); count > 0 {
				if count > p.boostCap {
					count = p.boostCap
				}
				boost += p.termBoost * float64(count)
			}
		}

		adjusted := candidate.Distance - boost
		if adjusted < p.distanceFloor {
			adjusted = p.distanceFloor
		}

		rankedResults = append(rankedResults, ranked{result: candidate, adjusted: adjusted})
	}

	sort.SliceStable(rankedResults, func(i, j int) bool {
		return rankedResults[i].adjusted < rankedResults[j].adjusted
	})

	if k > len(rankedResults) {
		k = len(rankedResults)
	}
	results := make([]interfaces.SearchResult, 0, k)
	for _, r := range rankedResults[:k] {
		results = append(results, r.result)
	}
	return results
}

// -----------------------------------------------------------------------
// PDF Extractor Service - Extract per-page text from PDF documents
// Uses pdfcpu for Go-native PDF processing
// -----------------------------------------------------------------------

package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
)

// Extractor implements the PDFExtractor interface using pdfcpu
type Extractor struct {
	logger  arbor.ILogger
	tempDir string
	seq     atomic.Int64
}

// Compile-time interface assertion
var _ interfaces.PDFExtractor = (*Extractor)(nil)

// NewExtractor creates a new PDF extractor service
func NewExtractor(logger arbor.ILogger) *Extractor {
	tempDir := filepath.Join(os.TempDir(), "folio-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Extractor{
		logger:  logger,
		tempDir: tempDir,
	}
}

// ExtractPages extracts text content by page from the PDF at path.
// Pages with no extractable text are returned with empty text so page
// numbering stays aligned with the source document.
func (e *Extractor) ExtractPages(ctx context.Context, path string) ([]models.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	if pdfCtx.Encrypt != nil {
		return nil, fmt.Errorf("encrypted PDF is not supported")
	}
	pageCount := pdfCtx.PageCount

	// pdfcpu extracts raw content streams per page; decode the text
	// operators from each stream afterwards.
	outDir := filepath.Join(e.tempDir, fmt.Sprintf("pages_%d_%d", os.Getpid(), e.seq.Add(1)))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to extract PDF content: %w", err)
	}

	pageTexts := make(map[int]string)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		var pageNum int
		name := file.Name()
		if _, err := fmt.Sscanf(name, "Content_page_%d", &pageNum); err != nil {
			if _, err := fmt.Sscanf(name, "page_%d", &pageNum); err != nil {
				continue
			}
		}
		content, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			continue
		}
		pageTexts[pageNum] = contentStreamText(content)
	}

	pages := make([]models.Page, 0, pageCount)
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text := strings.TrimSpace(pageTexts[pageNum])
		pages = append(pages, models.Page{
			PageNum: pageNum,
			Text:    text,
			Details: pageDetails(text),
		})
	}

	e.logger.Debug().
		Str("path", filepath.Base(path)).
		Int("pages", pageCount).
		Msg("PDF pages extracted")

	return pages, nil
}

// PageCount returns the number of pages without extracting text.
func (e *Extractor) PageCount(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	pdfCtx, err := api.ReadContextFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return pdfCtx.PageCount, nil
}

func pageDetails(text string) models.PageDetails {
	return models.PageDetails{
		WordCount: len(strings.Fields(text)),
		CharCount: len(text),
		HasTables: looksTabular(text),
	}
}

// looksTabular flags pages where several lines carry column-like runs of
// whitespace, which is how extracted table rows come out.
func looksTabular(text string) bool {
	columnLines := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "\t") || strings.Count(line, "   ") >= 2 {
			columnLines++
			if columnLines >= 3 {
				return true
			}
		}
	}
	return false
}

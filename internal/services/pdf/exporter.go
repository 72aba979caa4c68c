package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/quillboard/folio/internal/models"
)

// Exporter renders conversation transcripts to PDF. Assistant answers are
// markdown, so the transcript is assembled as a markdown document and
// rendered through goldmark into fpdf.
type Exporter struct {
	logger arbor.ILogger
}

// NewExporter creates a transcript exporter
func NewExporter(logger arbor.ILogger) *Exporter {
	return &Exporter{logger: logger}
}

// ExportConversation renders a conversation to a PDF byte slice.
func (e *Exporter) ExportConversation(conv *models.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation is required")
	}
	return e.renderMarkdown(transcriptMarkdown(conv))
}

// transcriptMarkdown lays the conversation out as a markdown document.
func transcriptMarkdown(conv *models.Conversation) string {
	var b strings.Builder
	title := conv.Title
	if title == "" {
		title = "Conversation"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Library: %s\n\n", conv.LibraryName)

	for _, msg := range conv.Messages {
		switch msg.Role {
		case models.RoleUser:
			b.WriteString("## Question\n\n")
		case models.RoleAssistant:
			b.WriteString("## Answer\n\n")
		default:
			continue
		}
		b.WriteString(strings.TrimSpace(msg.Content))
		b.WriteString("\n\n")

		if len(msg.Sources) > 0 {
			b.WriteString("Sources:\n\n")
			for _, src := range msg.Sources {
				fmt.Fprintf(&b, "- %s, page %d\n", src.DocumentID, src.PageNum)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (e *Exporter) renderMarkdown(markdown string) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(10, 10, 10)
	doc.SetAutoPageBreak(true, 10)
	doc.AddPage()
	doc.SetFont("Arial", "", 9)

	md := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	)
	source := []byte(markdown)
	root := md.Parser().Parse(text.NewReader(source))

	r := &transcriptRenderer{pdf: doc, source: source, size: 9}
	if err := ast.Walk(root, r.walk); err != nil {
		e.logger.Error().Err(err).Msg("Failed to render transcript")
		return nil, fmt.Errorf("failed to render transcript: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	e.logger.Debug().Int("pdf_size", buf.Len()).Msg("Transcript PDF generated")
	return buf.Bytes(), nil
}

type transcriptRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	size      float64
	bold      bool
	italic    bool
	listLevel int
}

func (r *transcriptRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont("Arial", style, r.size)
}

func (r *transcriptRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			r.pdf.Ln(6)
			size := 14.0 - float64(node.Level)
			if size < 10 {
				size = 10
			}
			r.pdf.SetFont("Arial", "B", size)
		} else {
			r.pdf.Ln(6)
			r.updateFont()
		}
	case *ast.Paragraph:
		if !entering {
			r.pdf.Ln(7)
		}
	case *ast.Text:
		if entering {
			r.pdf.Write(5, string(node.Text(r.source)))
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case *ast.CodeSpan:
		if entering {
			r.pdf.SetFont("Courier", "", r.size)
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if textNode, ok := c.(*ast.Text); ok {
					r.pdf.Write(5, string(textNode.Segment.Value(r.source)))
				}
			}
		} else {
			r.updateFont()
		}
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock:
		if entering {
			r.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.CodeBlock:
		if entering {
			r.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(2)
			}
		}
	case *ast.ListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(15 + float64(r.listLevel)*5)
			r.pdf.Write(5, "- ")
		}
	case *ast.ThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case *extast.Table:
		if entering {
			r.table(node)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (r *transcriptRenderer) codeBlock(lines *text.Segments) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Courier", "", r.size)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		r.pdf.MultiCell(0, 5, string(line.Value(r.source)), "", "L", true)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.updateFont()
	r.pdf.Ln(2)
}

// table renders a markdown table with equal column widths and one line per
// cell. Answer tables are small; anything wider gets truncated with an
// ellipsis rather than wrapped.
func (r *transcriptRenderer) table(node *extast.Table) {
	var rows [][]string
	var collect func(parent ast.Node)
	collect = func(parent ast.Node) {
		for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
			switch row := child.(type) {
			case *extast.TableRow:
				rows = append(rows, r.tableRow(row))
			case *extast.TableHeader:
				collect(row)
			}
		}
	}
	collect(node)
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	r.pdf.Ln(2)
	colWidth := 180.0 / float64(len(rows[0]))
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont("Arial", "B", 8)
		} else {
			r.pdf.SetFont("Arial", "", 8)
		}
		r.pdf.SetX(10)
		for _, cell := range row {
			for r.pdf.GetStringWidth(cell) > colWidth-2 && len(cell) > 3 {
				cell = cell[:len(cell)-4] + "..."
			}
			r.pdf.CellFormat(colWidth, 5, cell, "1", 0, "L", false, 0, "")
		}
		r.pdf.Ln(5)
	}
	r.pdf.Ln(2)
	r.updateFont()
}

func (r *transcriptRenderer) tableRow(row *extast.TableRow) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			cells = append(cells, string(cell.Text(r.source)))
		}
	}
	return cells
}

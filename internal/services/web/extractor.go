// -----------------------------------------------------------------------
// Web Extractor - Fetch a page and convert its main content to markdown
// -----------------------------------------------------------------------

package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
)

const (
	defaultTimeout = 30 * time.Second
	maxBodySize    = 10 << 20 // 10 MB
	userAgent      = "folio/1.0 (+https://github.com/quillboard/folio)"
)

// Noise that never contributes to readable content
const noiseSelector = "script, style, noscript, nav, header, footer, aside, [class*=sidebar], [class*=promo]"

// Candidate containers for the main content, tried in order
const contentSelector = "main, article, .content, .main-content, #content, #main"

// Extractor fetches a URL and converts its main content to markdown. A web
// document always becomes a single page numbered 1.
type Extractor struct {
	client *http.Client
	logger arbor.ILogger
}

// Compile-time interface assertion
var _ interfaces.WebExtractor = (*Extractor)(nil)

// NewExtractor creates a web extractor with a default HTTP client
func NewExtractor(logger arbor.ILogger) *Extractor {
	return &Extractor{
		client: &http.Client{Timeout: defaultTimeout},
		logger: logger,
	}
}

// Extract fetches the URL and returns the page title plus the converted
// markdown as a single page.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (*interfaces.WebExtraction, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("invalid url: %s", rawURL)
	}

	body, err := e.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := extractTitle(doc)
	markdown, err := e.convert(doc, parsed)
	if err != nil {
		return nil, err
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, fmt.Errorf("no readable content at %s", rawURL)
	}

	page := models.Page{
		PageNum: 1,
		Text:    markdown,
		Details: models.PageDetails{
			WordCount: len(strings.Fields(markdown)),
			CharCount: len(markdown),
			HasTables: strings.Contains(markdown, "| ---"),
			HasImages: strings.Contains(markdown, "!["),
		},
	}

	e.logger.Debug().
		Str("url", rawURL).
		Str("title", title).
		Int("chars", page.Details.CharCount).
		Msg("Web page extracted")

	return &interfaces.WebExtraction{Title: title, Pages: []models.Page{page}}, nil
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") && !strings.Contains(contentType, "xml") {
		return "", fmt.Errorf("fetch %s: unsupported content type %s", rawURL, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// convert strips boilerplate, locates the main content container and runs
// the html-to-markdown converter over it.
func (e *Extractor) convert(doc *goquery.Document, base *url.URL) (string, error) {
	doc.Find(noiseSelector).Remove()

	content := doc.Find(contentSelector).First()
	if content.Length() == 0 {
		content = doc.Find("body")
	}
	if content.Length() == 0 {
		content = doc.Selection
	}

	converter := md.NewConverter(base.Host, true, nil)
	markdown := converter.Convert(content)
	return markdown, nil
}

func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		if title := strings.TrimSpace(ogTitle); title != "" {
			return title
		}
	}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return ""
}

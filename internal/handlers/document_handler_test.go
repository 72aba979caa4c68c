package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
)

type stubDocuments struct {
	docs        map[string]*models.Document
	lastPDF     *interfaces.AddPDFRequest
	lastWeb     *interfaces.AddWebRequest
	deleted     []string
	reprocessed []string
}

func newStubDocuments() *stubDocuments {
	return &stubDocuments{docs: make(map[string]*models.Document)}
}

func (s *stubDocuments) AddPDF(ctx context.Context, req *interfaces.AddPDFRequest) (*models.Document, error) {
	s.lastPDF = req
	doc := &models.Document{ID: "doc_pdf", LibraryName: req.LibraryName, Title: req.Title, Status: models.StatusProcessing}
	s.docs[doc.ID] = doc
	return doc, nil
}

func (s *stubDocuments) AddWeb(ctx context.Context, req *interfaces.AddWebRequest) (*models.Document, error) {
	s.lastWeb = req
	doc := &models.Document{ID: "doc_web", LibraryName: req.LibraryName, Title: req.Title, Status: models.StatusProcessing}
	s.docs[doc.ID] = doc
	return doc, nil
}

func (s *stubDocuments) Get(ctx context.Context, documentID string) (*models.Document, error) {
	doc, ok := s.docs[documentID]
	if !ok {
		return nil, errors.New("document not found")
	}
	return doc, nil
}

func (s *stubDocuments) List(ctx context.Context, libraryName string) ([]*models.Document, error) {
	var out []*models.Document
	for _, doc := range s.docs {
		if doc.LibraryName == libraryName {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *stubDocuments) Delete(ctx context.Context, documentID string) error {
	if _, ok := s.docs[documentID]; !ok {
		return errors.New("document not found")
	}
	delete(s.docs, documentID)
	s.deleted = append(s.deleted, documentID)
	return nil
}

func (s *stubDocuments) Reprocess(ctx context.Context, documentID string) (*models.Document, error) {
	doc, ok := s.docs[documentID]
	if !ok {
		return nil, errors.New("document not found")
	}
	s.reprocessed = append(s.reprocessed, documentID)
	doc.Status = models.StatusProcessing
	return doc, nil
}

func (s *stubDocuments) ProcessPending(ctx context.Context, limit int) (int, error) {
	return 0, nil
}

func newDocumentHandler(t *testing.T, docs *stubDocuments) *DocumentHandler {
	t.Helper()
	return NewDocumentHandler(docs, t.TempDir(), arbor.NewLogger())
}

func multipartPDF(t *testing.T, library, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("library", library))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	fw.Write([]byte("%PDF-1.4 fake content"))
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadPDFHandlerStoresFileAndStartsIngestion(t *testing.T) {
	docs := newStubDocuments()
	handler := newDocumentHandler(t, docs)

	body, contentType := multipartPDF(t, "biology", "cell biology.pdf")
	r := httptest.NewRequest(http.MethodPost, "/api/documents/pdf", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.UploadPDFHandler(w, r)

	require.Equal(t, http.StatusAccepted, w.Code)
	var doc models.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, models.StatusProcessing, doc.Status)

	require.NotNil(t, docs.lastPDF)
	assert.Equal(t, "biology", docs.lastPDF.LibraryName)
	assert.Equal(t, "cell biology", docs.lastPDF.Title)

	// sanitized copy on disk, readable by the ingestion goroutine
	data, err := os.ReadFile(docs.lastPDF.FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "%PDF")
	assert.NotContains(t, docs.lastPDF.FilePath, " ")
}

func TestUploadPDFHandlerRejectsNonPDF(t *testing.T) {
	handler := newDocumentHandler(t, newStubDocuments())

	body, contentType := multipartPDF(t, "biology", "notes.txt")
	r := httptest.NewRequest(http.MethodPost, "/api/documents/pdf", body)
	r.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	handler.UploadPDFHandler(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddWebHandler(t *testing.T) {
	docs := newStubDocuments()
	handler := newDocumentHandler(t, docs)

	body := strings.NewReader(`{"library":"biology","url":"https://example.com/article"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/documents/web", body)
	w := httptest.NewRecorder()
	handler.AddWebHandler(w, r)

	require.Equal(t, http.StatusAccepted, w.Code)
	require.NotNil(t, docs.lastWeb)
	assert.Equal(t, "https://example.com/article", docs.lastWeb.URL)

	// invalid URL is rejected before reaching the service
	r = httptest.NewRequest(http.MethodPost, "/api/documents/web", strings.NewReader(`{"library":"biology","url":"not a url"}`))
	w = httptest.NewRecorder()
	handler.AddWebHandler(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentListHandlerRequiresLibrary(t *testing.T) {
	handler := newDocumentHandler(t, newStubDocuments())

	r := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	w := httptest.NewRecorder()
	handler.ListHandler(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentItemHandler(t *testing.T) {
	docs := newStubDocuments()
	docs.docs["doc_1"] = &models.Document{ID: "doc_1", LibraryName: "biology", Status: models.StatusError}
	handler := newDocumentHandler(t, docs)

	r := httptest.NewRequest(http.MethodGet, "/api/documents/doc_1", nil)
	w := httptest.NewRecorder()
	handler.ItemHandler(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	r = httptest.NewRequest(http.MethodPost, "/api/documents/doc_1/reprocess", nil)
	w = httptest.NewRecorder()
	handler.ItemHandler(w, r)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, []string{"doc_1"}, docs.reprocessed)

	r = httptest.NewRequest(http.MethodDelete, "/api/documents/doc_1", nil)
	w = httptest.NewRecorder()
	handler.ItemHandler(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"doc_1"}, docs.deleted)

	r = httptest.NewRequest(http.MethodGet, "/api/documents/doc_1", nil)
	w = httptest.NewRecorder()
	handler.ItemHandler(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/interfaces"
)

// maxUploadSize bounds PDF uploads at 100 MB
const maxUploadSize = 100 << 20

// AddWebDocumentRequest is the body of POST /api/documents/web
type AddWebDocumentRequest struct {
	LibraryName string `json:"library" validate:"required"`
	URL         string `json:"url" validate:"required,url"`
	Title       string `json:"title"`
}

// DocumentHandler handles document lifecycle requests
type DocumentHandler struct {
	documents  interfaces.DocumentService
	uploadsDir string
	logger     arbor.ILogger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents interfaces.DocumentService, uploadsDir string, logger arbor.ILogger) *DocumentHandler {
	return &DocumentHandler{
		documents:  documents,
		uploadsDir: uploadsDir,
		logger:     logger,
	}
}

// UploadPDFHandler handles POST /api/documents/pdf (multipart upload).
// The file lands in the uploads directory and ingestion starts in the
// background; the response carries the document in processing state.
func (h *DocumentHandler) UploadPDFHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	library := r.FormValue("library")
	if library == "" {
		WriteError(w, http.StatusBadRequest, "library field is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		WriteError(w, http.StatusBadRequest, "Only PDF files are accepted")
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	}

	path, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to store uploaded PDF")
		WriteError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}

	doc, err := h.documents.AddPDF(r.Context(), &interfaces.AddPDFRequest{
		LibraryName: library,
		Title:       title,
		FilePath:    path,
	})
	if err != nil {
		os.Remove(path)
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info().
		Str("doc_id", doc.ID).
		Str("library", library).
		Str("filename", header.Filename).
		Msg("PDF uploaded")

	WriteJSON(w, http.StatusAccepted, doc)
}

// AddWebHandler handles POST /api/documents/web
func (h *DocumentHandler) AddWebHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req AddWebDocumentRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	doc, err := h.documents.AddWeb(r.Context(), &interfaces.AddWebRequest{
		LibraryName: req.LibraryName,
		URL:         req.URL,
		Title:       req.Title,
	})
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusAccepted, doc)
}

// ListHandler handles GET /api/documents?library={name}
func (h *DocumentHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	library := r.URL.Query().Get("library")
	if library == "" {
		WriteError(w, http.StatusBadRequest, "library query parameter is required")
		return
	}

	docs, err := h.documents.List(r.Context(), library)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list documents: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"documents": docs, "count": len(docs)})
}

// ItemHandler handles /api/documents/{id} and /api/documents/{id}/reprocess
func (h *DocumentHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	id, rest := PathSegment(r, "/api/documents/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	if rest == "reprocess" {
		if !RequireMethod(w, r, http.MethodPost) {
			return
		}
		doc, err := h.documents.Reprocess(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteJSON(w, http.StatusAccepted, doc)
		return
	}
	if rest != "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := h.documents.Get(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusNotFound, "Document not found: "+id)
			return
		}
		WriteJSON(w, http.StatusOK, doc)

	case http.MethodDelete:
		if err := h.documents.Delete(r.Context(), id); err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteSuccess(w, "Document deleted")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// saveUpload writes the uploaded file under the uploads directory with a
// sanitized, collision-free name.
func (h *DocumentHandler) saveUpload(file io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s", uuid.New().String()[:8], sanitizeFilename(filename))
	path := filepath.Join(h.uploadsDir, name)

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return path, nil
}

// sanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with underscores.
func sanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

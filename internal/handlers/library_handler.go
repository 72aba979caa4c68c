package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/services/libraries"
)

// CreateLibraryRequest is the body of POST /api/libraries
type CreateLibraryRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// LibraryHandler handles library management requests
type LibraryHandler struct {
	libraries *libraries.Service
	documents interfaces.DocumentService
	logger    arbor.ILogger
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(libraries *libraries.Service, documents interfaces.DocumentService, logger arbor.ILogger) *LibraryHandler {
	return &LibraryHandler{
		libraries: libraries,
		documents: documents,
		logger:    logger,
	}
}

// CollectionHandler handles GET (list) and POST (create) on /api/libraries
func (h *LibraryHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		libs, err := h.libraries.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to list libraries: "+err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"libraries": libs, "count": len(libs)})

	case http.MethodPost:
		var req CreateLibraryRequest
		if !DecodeAndValidate(w, r, &req) {
			return
		}
		lib, err := h.libraries.Create(r.Context(), req.Name, req.Description)
		if err != nil {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, lib)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ItemHandler handles /api/libraries/{name} and /api/libraries/{name}/stats
func (h *LibraryHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	name, rest := PathSegment(r, "/api/libraries/")
	if name == "" {
		WriteError(w, http.StatusBadRequest, "Library name is required")
		return
	}

	if rest == "stats" {
		if !RequireMethod(w, r, http.MethodGet) {
			return
		}
		stats, err := h.libraries.Stats(r.Context(), name)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, stats)
		return
	}
	if rest == "reprocess" {
		h.reprocessAll(w, r, name)
		return
	}
	if rest != "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		lib, err := h.libraries.Get(r.Context(), name)
		if err != nil {
			WriteError(w, http.StatusNotFound, "Library not found: "+name)
			return
		}
		WriteJSON(w, http.StatusOK, lib)

	case http.MethodDelete:
		if err := h.libraries.Delete(r.Context(), name); err != nil {
			WriteError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Info().Str("library", name).Msg("Library deleted via API")
		WriteSuccess(w, "Library deleted")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// reprocessAll queues a fresh ingestion run for every document in the
// library. Documents that fail to queue are skipped and counted.
func (h *LibraryHandler) reprocessAll(w http.ResponseWriter, r *http.Request, name string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if _, err := h.libraries.Get(r.Context(), name); err != nil {
		WriteError(w, http.StatusNotFound, "Library not found: "+name)
		return
	}

	docs, err := h.documents.List(r.Context(), name)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list documents: "+err.Error())
		return
	}

	queued := 0
	for _, doc := range docs {
		if _, err := h.documents.Reprocess(r.Context(), doc.ID); err != nil {
			h.logger.Warn().Err(err).Str("doc_id", doc.ID).Msg("Failed to queue document for reprocessing")
			continue
		}
		queued++
	}

	h.logger.Info().Str("library", name).Int("queued", queued).Msg("Library reprocess queued")
	WriteJSON(w, http.StatusAccepted, map[string]interface{}{"queued": queued, "total": len(docs)})
}

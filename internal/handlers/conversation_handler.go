package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/common"
	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/models"
	"github.com/quillboard/folio/internal/services/pdf"
)

// CreateConversationRequest is the body of POST /api/conversations
type CreateConversationRequest struct {
	LibraryName string `json:"library" validate:"required"`
	Title       string `json:"title" validate:"max=200"`
}

// ConversationHandler handles conversation history requests
type ConversationHandler struct {
	conversations interfaces.ConversationStorage
	exporter      *pdf.Exporter
	logger        arbor.ILogger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations interfaces.ConversationStorage, exporter *pdf.Exporter, logger arbor.ILogger) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		exporter:      exporter,
		logger:        logger,
	}
}

// CollectionHandler handles GET (list by library) and POST (create) on
// /api/conversations
func (h *ConversationHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		library := r.URL.Query().Get("library")
		if library == "" {
			WriteError(w, http.StatusBadRequest, "library query parameter is required")
			return
		}

		convs, err := h.conversations.ListConversations(library)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to list conversations: "+err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"conversations": convs, "count": len(convs)})

	case http.MethodPost:
		var req CreateConversationRequest
		if !DecodeAndValidate(w, r, &req) {
			return
		}

		now := time.Now()
		conv := &models.Conversation{
			ID:          common.NewConversationID(),
			LibraryName: req.LibraryName,
			Title:       req.Title,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := h.conversations.SaveConversation(conv); err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to create conversation: "+err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, conv)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ItemHandler handles /api/conversations/{id} and /api/conversations/{id}/export
func (h *ConversationHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	id, rest := PathSegment(r, "/api/conversations/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Conversation ID is required")
		return
	}

	if rest == "export" {
		h.export(w, r, id)
		return
	}
	if rest != "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		conv, err := h.conversations.GetConversation(id)
		if err != nil {
			WriteError(w, http.StatusNotFound, "Conversation not found: "+id)
			return
		}
		WriteJSON(w, http.StatusOK, conv)

	case http.MethodDelete:
		if _, err := h.conversations.GetConversation(id); err != nil {
			WriteError(w, http.StatusNotFound, "Conversation not found: "+id)
			return
		}
		if err := h.conversations.DeleteConversation(id); err != nil {
			WriteError(w, http.StatusInternalServerError, "Failed to delete conversation: "+err.Error())
			return
		}
		WriteSuccess(w, "Conversation deleted")

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// export renders the conversation transcript as a PDF download.
func (h *ConversationHandler) export(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	conv, err := h.conversations.GetConversation(id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "Conversation not found: "+id)
		return
	}

	data, err := h.exporter.ExportConversation(conv)
	if err != nil {
		h.logger.Error().Err(err).Str("conversation_id", id).Msg("Failed to export conversation")
		WriteError(w, http.StatusInternalServerError, "Failed to export conversation")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "conversation_"+id+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

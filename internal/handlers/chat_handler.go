package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// ChatHandler handles chat-related HTTP requests
type ChatHandler struct {
	chatService interfaces.ChatService
	logger      arbor.ILogger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService interfaces.ChatService, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// AskHandler handles POST /api/chat requests (single-shot answer)
func (h *ChatHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req interfaces.ChatRequest
	if !DecodeAndValidate(w, r, &req) {
		return
	}

	h.logger.Info().
		Str("library", req.LibraryName).
		Int("message_length", len(req.Message)).
		Msg("Processing chat request")

	response, err := h.chatService.Ask(r.Context(), &req)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to generate chat response")
		WriteError(w, http.StatusInternalServerError, "Failed to generate response: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, response)
}

// StreamHandler handles GET /api/chat/stream requests over SSE. The
// request travels in query parameters because EventSource cannot send a
// body. POST with a JSON body works too.
func (h *ChatHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.streamRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	err := h.chatService.AskStream(r.Context(), req, func(event interfaces.StreamEvent) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are gone; deliver the failure as a stream event
		h.logger.Error().Err(err).Msg("Chat stream failed")
		payload, _ := json.Marshal(interfaces.StreamEvent{Type: interfaces.StreamEventError, Error: err.Error()})
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", interfaces.StreamEventError, payload)
		flusher.Flush()
	}
}

// WebSocketHandler handles /ws/chat. Each incoming JSON chat request is
// answered with the ordered event sequence as JSON messages.
func (h *ChatHandler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		var req interfaces.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug().Err(err).Msg("WebSocket read ended")
			}
			return
		}
		if err := validate.Struct(&req); err != nil {
			conn.WriteJSON(interfaces.StreamEvent{Type: interfaces.StreamEventError, Error: err.Error()})
			continue
		}

		err := h.chatService.AskStream(r.Context(), &req, func(event interfaces.StreamEvent) error {
			return conn.WriteJSON(event)
		})
		if err != nil {
			if writeErr := conn.WriteJSON(interfaces.StreamEvent{Type: interfaces.StreamEventError, Error: err.Error()}); writeErr != nil {
				return
			}
		}
	}
}

// HealthHandler handles GET /api/chat/health requests
func (h *ChatHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if err := h.chatService.HealthCheck(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("Chat service health check failed")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"healthy": false,
			"error":   err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{"healthy": true})
}

func (h *ChatHandler) streamRequest(w http.ResponseWriter, r *http.Request) (*interfaces.ChatRequest, bool) {
	var req interfaces.ChatRequest
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		req.LibraryName = query.Get("library")
		req.Message = query.Get("message")
		req.ConversationID = query.Get("conversation_id")
		if topK := query.Get("top_k"); topK != "" {
			k, err := strconv.Atoi(topK)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "top_k must be an integer")
				return nil, false
			}
			req.TopK = k
		}
		if err := validate.Struct(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
			return nil, false
		}
	case http.MethodPost:
		if !DecodeAndValidate(w, r, &req) {
			return nil, false
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	return &req, true
}

package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws/chat", s.app.ChatHandler.WebSocketHandler)

	// API routes - Chat
	mux.HandleFunc("/api/chat", s.app.ChatHandler.AskHandler)
	mux.HandleFunc("/api/chat/stream", s.app.ChatHandler.StreamHandler)
	mux.HandleFunc("/api/chat/health", s.app.ChatHandler.HealthHandler)

	// API routes - Libraries
	mux.HandleFunc("/api/libraries", s.app.LibraryHandler.CollectionHandler)
	mux.HandleFunc("/api/libraries/", s.app.LibraryHandler.ItemHandler) // GET/DELETE /{name}, GET /{name}/stats, POST /{name}/reprocess

	// API routes - Documents
	mux.HandleFunc("/api/documents/pdf", s.app.DocumentHandler.UploadPDFHandler)
	mux.HandleFunc("/api/documents/web", s.app.DocumentHandler.AddWebHandler)
	mux.HandleFunc("/api/documents", s.app.DocumentHandler.ListHandler)
	mux.HandleFunc("/api/documents/", s.app.DocumentHandler.ItemHandler) // GET/DELETE /{id}, POST /{id}/reprocess

	// API routes - Conversations
	mux.HandleFunc("/api/conversations", s.app.ConversationHandler.CollectionHandler)
	mux.HandleFunc("/api/conversations/", s.app.ConversationHandler.ItemHandler) // GET/DELETE /{id}, GET /{id}/export

	// API routes - Processing
	mux.HandleFunc("/api/processing/trigger", s.app.StatusHandler.TriggerProcessingHandler)

	// API routes - System
	mux.HandleFunc("/api/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.StatusHandler.VersionHandler)
	mux.HandleFunc("/api/status", s.app.StatusHandler.StatusHandler)

	// Unknown API paths get a JSON 404 instead of the mux default
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status":"error","error":"Not found"}`))
			return
		}
		http.NotFound(w, r)
	})

	return mux
}

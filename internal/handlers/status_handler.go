package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/common"
	"github.com/quillboard/folio/internal/interfaces"
	"github.com/quillboard/folio/internal/services/processing"
)

// StatusHandler serves health, version and operational status endpoints
type StatusHandler struct {
	storage   interfaces.StorageManager
	llm       interfaces.LLMService
	scheduler *processing.Scheduler
	startTime time.Time
	logger    arbor.ILogger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(storage interfaces.StorageManager, llm interfaces.LLMService, scheduler *processing.Scheduler, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		storage:   storage,
		llm:       llm,
		scheduler: scheduler,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthHandler handles GET /api/health. Storage and the LLM backend are
// probed; any failure yields 503 so load balancers can act on it.
func (h *StatusHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	checks := map[string]string{
		"storage": "ok",
		"llm":     "ok",
	}
	healthy := true

	if _, err := h.storage.LibraryStorage().CountLibraries(); err != nil {
		checks["storage"] = err.Error()
		healthy = false
	}
	if err := h.llm.HealthCheck(r.Context()); err != nil {
		checks["llm"] = err.Error()
		healthy = false
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, map[string]interface{}{
		"healthy": healthy,
		"checks":  checks,
	})
}

// VersionHandler handles GET /api/version
func (h *StatusHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
	})
}

// StatusHandler handles GET /api/status with counts and scheduler state
func (h *StatusHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	libraryCount, err := h.storage.LibraryStorage().CountLibraries()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to read status: "+err.Error())
		return
	}
	documentCount, err := h.storage.DocumentStorage().CountDocuments("")
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to read status: "+err.Error())
		return
	}

	lastRun, lastError, running := h.scheduler.Status()
	scheduler := map[string]interface{}{
		"enabled":    h.scheduler.IsRunning(),
		"processing": running,
	}
	if lastRun != nil {
		scheduler["last_run"] = lastRun.UTC().Format(time.RFC3339)
	}
	if lastError != "" {
		scheduler["last_error"] = lastError
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":        common.GetFullVersion(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"libraries":      libraryCount,
		"documents":      documentCount,
		"llm_model":      h.llm.ModelName(),
		"scheduler":      scheduler,
	})
}

// TriggerProcessingHandler handles POST /api/processing/trigger
func (h *StatusHandler) TriggerProcessingHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	h.scheduler.TriggerNow()
	WriteSuccess(w, "Catch-up processing triggered")
}

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathSegment(t *testing.T) {
	tests := []struct {
		path string
		id   string
		rest string
	}{
		{"/api/documents/doc_1", "doc_1", ""},
		{"/api/documents/doc_1/", "doc_1", ""},
		{"/api/documents/doc_1/reprocess", "doc_1", "reprocess"},
		{"/api/documents/", "", ""},
		{"/api/documents/doc_1/a/b", "doc_1", "a/b"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, tt.path, nil)
		id, rest := PathSegment(r, "/api/documents/")
		assert.Equal(t, tt.id, id, tt.path)
		assert.Equal(t, tt.rest, rest, tt.path)
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteError(w, http.StatusNotFound, "missing"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "missing", body["error"])
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(w, "done"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "done", body["message"])
}

func TestRequireMethod(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	assert.False(t, RequireMethod(w, r, http.MethodPost))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	assert.True(t, RequireMethod(w, r, http.MethodPost))
}

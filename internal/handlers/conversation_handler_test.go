package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/quillboard/folio/internal/models"
	"github.com/quillboard/folio/internal/services/pdf"
)

type stubConversations struct {
	convs map[string]*models.Conversation
}

func (s *stubConversations) SaveConversation(conv *models.Conversation) error {
	s.convs[conv.ID] = conv
	return nil
}

func (s *stubConversations) GetConversation(id string) (*models.Conversation, error) {
	conv, ok := s.convs[id]
	if !ok {
		return nil, errors.New("conversation not found")
	}
	return conv, nil
}

func (s *stubConversations) ListConversations(libraryName string) ([]*models.Conversation, error) {
	var out []*models.Conversation
	for _, conv := range s.convs {
		if conv.LibraryName == libraryName {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (s *stubConversations) DeleteConversation(id string) error {
	delete(s.convs, id)
	return nil
}

func newConversationHandler(convs *stubConversations) *ConversationHandler {
	logger := arbor.NewLogger()
	return NewConversationHandler(convs, pdf.NewExporter(logger), logger)
}

func seedConversation(convs *stubConversations) *models.Conversation {
	conv := &models.Conversation{
		ID:          "conv_1",
		LibraryName: "biology",
		Title:       "What is photosynthesis?",
		Messages: []models.ChatMessage{
			{Role: models.RoleUser, Content: "What is photosynthesis?", CreatedAt: time.Now()},
			{Role: models.RoleAssistant, Content: "It converts light into chemical energy.", CreatedAt: time.Now()},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	convs.convs[conv.ID] = conv
	return conv
}

func TestConversationListHandler(t *testing.T) {
	convs := &stubConversations{convs: make(map[string]*models.Conversation)}
	seedConversation(convs)
	handler := newConversationHandler(convs)

	r := httptest.NewRequest(http.MethodGet, "/api/conversations?library=biology", nil)
	w := httptest.NewRecorder()
	handler.CollectionHandler(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	r = httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	w = httptest.NewRecorder()
	handler.CollectionHandler(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationCreateHandler(t *testing.T) {
	convs := &stubConversations{convs: make(map[string]*models.Conversation)}
	handler := newConversationHandler(convs)

	body := strings.NewReader(`{"library":"biology","title":"Chemistry questions"}`)
	r := httptest.NewRequest(http.MethodPost, "/api/conversations", body)
	w := httptest.NewRecorder()
	handler.CollectionHandler(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	var conv models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conv))
	assert.True(t, strings.HasPrefix(conv.ID, "conv_"))
	assert.Equal(t, "biology", conv.LibraryName)
	require.Len(t, convs.convs, 1)

	r = httptest.NewRequest(http.MethodPost, "/api/conversations", strings.NewReader(`{"title":"no library"}`))
	w = httptest.NewRecorder()
	handler.CollectionHandler(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationItemHandler(t *testing.T) {
	convs := &stubConversations{convs: make(map[string]*models.Conversation)}
	seedConversation(convs)
	handler := newConversationHandler(convs)

	r := httptest.NewRequest(http.MethodGet, "/api/conversations/conv_1", nil)
	w := httptest.NewRecorder()
	handler.ItemHandler(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "photosynthesis")

	r = httptest.NewRequest(http.MethodDelete, "/api/conversations/conv_1", nil)
	w = httptest.NewRecorder()
	handler.ItemHandler(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, convs.convs)

	r = httptest.NewRequest(http.MethodDelete, "/api/conversations/conv_1", nil)
	w = httptest.NewRecorder()
	handler.ItemHandler(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConversationExportHandler(t *testing.T) {
	convs := &stubConversations{convs: make(map[string]*models.Conversation)}
	seedConversation(convs)
	handler := newConversationHandler(convs)

	r := httptest.NewRequest(http.MethodGet, "/api/conversations/conv_1/export", nil)
	w := httptest.NewRecorder()
	handler.ItemHandler(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "conversation_conv_1.pdf")
	assert.True(t, len(w.Body.Bytes()) > 4)
	assert.Equal(t, "%PDF", string(w.Body.Bytes()[:4]))
}

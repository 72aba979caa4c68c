package interfaces

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillboard/folio/internal/models"
)

func TestStreamEventSourcesWireFormat(t *testing.T) {
	event := StreamEvent{
		Type: StreamEventSources,
		Sources: []models.Source{
			{DocumentID: "doc_1", PageNum: 2, Distance: 0.12, Preview: "chunk text"},
		},
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Contains(t, wire, "content")
	assert.NotContains(t, wire, "sources")

	var sources []map[string]interface{}
	require.NoError(t, json.Unmarshal(wire["content"], &sources))
	require.Len(t, sources, 1)
	assert.Equal(t, "chunk text", sources[0]["text_preview"])
	assert.NotContains(t, sources[0], "preview")
}

func TestStreamEventAnswerWireFormat(t *testing.T) {
	data, err := json.Marshal(StreamEvent{Type: StreamEventAnswer, Delta: "partial text"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"answer","content":"partial text"}`, string(data))
}

func TestStreamEventDoneWireFormat(t *testing.T) {
	data, err := json.Marshal(StreamEvent{Type: StreamEventDone})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"done"}`, string(data))
}

func TestStreamEventEmptySourcesWireFormat(t *testing.T) {
	data, err := json.Marshal(StreamEvent{Type: StreamEventSources})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"sources","content":[]}`, string(data))
}

func TestStreamEventErrorWireFormat(t *testing.T) {
	data, err := json.Marshal(StreamEvent{Type: StreamEventError, Error: "upstream unavailable"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","error":"upstream unavailable"}`, string(data))
}

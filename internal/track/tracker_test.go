package track

import (
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storylinehq/storyline/internal/metrics"
	"github.com/storylinehq/storyline/internal/store"
)

type captureStore struct {
	calls []*store.APICall
	err   error
}

func (c *captureStore) RecordCall(call *store.APICall) error {
	if c.err != nil {
		return c.err
	}
	c.calls = append(c.calls, call)
	return nil
}

func TestRecord_MarshalsMetadata(t *testing.T) {
	cs := &captureStore{}
	tr := New(cs, metrics.New(), zerolog.New(os.Stderr))

	tr.Record(Call{
		CredentialID: "cred-1",
		ProjectID:    "proj-1",
		Endpoint:     "/v1/chat-question",
		CallType:     "chat_question",
		Metadata:     map[string]any{"client_uuid": "c1", "question_length": 12},
		Status:       200,
	})

	require.Len(t, cs.calls, 1)
	got := cs.calls[0]
	assert.Equal(t, "chat_question", got.CallType)
	assert.Equal(t, 200, got.ResponseStatus)

	var meta map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.RequestMetadata), &meta))
	assert.Equal(t, "c1", meta["client_uuid"])
	assert.EqualValues(t, 12, meta["question_length"])
}

func TestRecord_NilMetadata(t *testing.T) {
	cs := &captureStore{}
	tr := New(cs, metrics.New(), zerolog.New(os.Stderr))

	tr.Record(Call{ProjectID: "proj-1", Endpoint: "/v1/ingest-logs", CallType: "log_ingest", Status: 200})

	require.Len(t, cs.calls, 1)
	assert.Empty(t, cs.calls[0].RequestMetadata)
}

func TestRecord_SwallowsStoreErrors(t *testing.T) {
	cs := &captureStore{err: errors.New("disk full")}
	tr := New(cs, metrics.New(), zerolog.New(os.Stderr))

	// Must not panic or propagate; tracking is best-effort.
	tr.Record(Call{ProjectID: "proj-1", Endpoint: "/v1/ingest-logs", CallType: "log_ingest", Status: 200})
	assert.Empty(t, cs.calls)
}

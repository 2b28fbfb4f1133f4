package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storylinehq/storyline/internal/apierr"
	"github.com/storylinehq/storyline/internal/auth"
	"github.com/storylinehq/storyline/internal/store"
)

type recordingTrigger struct {
	jobs [][2]string
	full bool
}

func (r *recordingTrigger) Enqueue(projectID, clientUUID string) bool {
	if r.full {
		return false
	}
	r.jobs = append(r.jobs, [2]string{projectID, clientUUID})
	return true
}

type fixture struct {
	ingestor *Ingestor
	store    *store.Store
	trigger  *recordingTrigger
	project  *store.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(os.Stderr)

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	project := &store.Project{ID: uuid.New().String(), PublicID: "pub", OwnerID: "o1"}
	require.NoError(t, st.CreateProject(project))
	require.NoError(t, st.CreateCredential(&store.Credential{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		APIKey:    "key",
		APISecret: "secret",
		IsActive:  true,
	}))

	trigger := &recordingTrigger{}
	return &fixture{
		ingestor: New(auth.NewValidator(st, logger), st, trigger, logger),
		store:    st,
		trigger:  trigger,
		project:  project,
	}
}

func validRequest() Request {
	return Request{
		APIKey:          "key",
		APISecret:       "secret",
		PublicProjectID: "pub",
		ClientUUID:      "c1",
		Action:          "create",
		Event:           "signup",
		EventDetails:    "via web",
		Timestamp:       "2024-01-15T10:30:00Z",
	}
}

func TestIngest_Success(t *testing.T) {
	f := newFixture(t)

	logID, identity, err := f.ingestor.Ingest(validRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, logID)
	assert.Equal(t, f.project.ID, identity.ProjectID)

	events, err := f.store.RecentEvents(f.project.ID, "c1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, logID, events[0].ID)
	assert.Equal(t, store.ActionCreate, events[0].Action)
	assert.Equal(t, int64(1705314600000), events[0].EventAt)

	// Persisting schedules a regeneration for the same pair.
	require.Len(t, f.trigger.jobs, 1)
	assert.Equal(t, [2]string{f.project.ID, "c1"}, f.trigger.jobs[0])
}

func TestIngest_NoDedup(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.ingestor.Ingest(validRequest())
	require.NoError(t, err)
	_, _, err = f.ingestor.Ingest(validRequest())
	require.NoError(t, err)

	n, err := f.store.CountEvents(f.project.ID, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIngest_MissingPayloadFields(t *testing.T) {
	f := newFixture(t)

	for _, mutate := range []func(*Request){
		func(r *Request) { r.ClientUUID = "" },
		func(r *Request) { r.Action = "" },
		func(r *Request) { r.Event = "" },
		func(r *Request) { r.EventDetails = "" },
		func(r *Request) { r.Timestamp = "" },
	} {
		req := validRequest()
		mutate(&req)
		_, _, err := f.ingestor.Ingest(req)
		require.Error(t, err)
		assert.Equal(t, apierr.CodeMissingPayloadFields, apierr.CodeOf(err))
	}

	n, err := f.store.CountEvents(f.project.ID, "c1")
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is written on validation failure")
}

func TestIngest_InvalidTimestamp(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.Timestamp = "15/01/2024 10:30"
	_, _, err := f.ingestor.Ingest(req)
	require.Error(t, err)
	assert.Equal(t, apierr.CodeInvalidTimestamp, apierr.CodeOf(err))
}

func TestIngest_InvalidAction(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.Action = "archive"
	_, _, err := f.ingestor.Ingest(req)
	require.Error(t, err)
	assert.Equal(t, apierr.CodeInvalidAction, apierr.CodeOf(err))

	n, err := f.store.CountEvents(f.project.ID, "c1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.trigger.jobs, "no regeneration for rejected events")
}

func TestIngest_ValidationBeforeCredentials(t *testing.T) {
	f := newFixture(t)

	// Payload shape is checked before credentials, so a bad action with bad
	// credentials reports the action.
	req := validRequest()
	req.Action = "archive"
	req.APIKey = "bad-key"
	_, _, err := f.ingestor.Ingest(req)
	require.Error(t, err)
	assert.Equal(t, apierr.CodeInvalidAction, apierr.CodeOf(err))
}

func TestIngest_BadCredentials(t *testing.T) {
	f := newFixture(t)

	req := validRequest()
	req.APISecret = "wrong"
	_, _, err := f.ingestor.Ingest(req)
	require.Error(t, err)
	assert.Equal(t, apierr.CodeInvalidAPISecret, apierr.CodeOf(err))

	n, err := f.store.CountEvents(f.project.ID, "c1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngest_FullQueueStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.trigger.full = true

	logID, _, err := f.ingestor.Ingest(validRequest())
	require.NoError(t, err, "a dropped regeneration job never fails the request")
	assert.NotEmpty(t, logID)
}

package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storylinehq/storyline/internal/apierr"
	"github.com/storylinehq/storyline/internal/store"
)

type fixture struct {
	validator *Validator
	store     *store.Store
	project   *store.Project
	cred      *store.Credential
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(os.Stderr)

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	project := &store.Project{
		ID:       uuid.New().String(),
		PublicID: "proj-public",
		Name:     "fixture",
		OwnerID:  "owner-1",
	}
	require.NoError(t, st.CreateProject(project))

	cred := &store.Credential{
		ID:        uuid.New().String(),
		ProjectID: project.ID,
		APIKey:    "good-key",
		APISecret: "good-secret",
		IsActive:  true,
	}
	require.NoError(t, st.CreateCredential(cred))

	return &fixture{
		validator: NewValidator(st, logger),
		store:     st,
		project:   project,
		cred:      cred,
	}
}

func TestValidate_Success(t *testing.T) {
	f := newFixture(t)

	id, err := f.validator.Validate("proj-public", "good-key", "good-secret")
	require.NoError(t, err)
	assert.Equal(t, f.project.ID, id.ProjectID)
	assert.Equal(t, f.cred.ID, id.CredentialID)
	assert.Equal(t, "owner-1", id.OwnerID)

	// Success bumps the usage counter.
	got, err := f.store.GetCredentialByKey("good-key")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.UsageCount)
}

func TestValidate_UnknownProject(t *testing.T) {
	f := newFixture(t)

	_, err := f.validator.Validate("no-such-project", "good-key", "good-secret")
	require.Error(t, err)
	assert.Equal(t, apierr.CodeInvalidProjectID, apierr.CodeOf(err))
	assert.Equal(t, 400, apierr.StatusOf(err))
}

func TestValidate_UnknownKey(t *testing.T) {
	f := newFixture(t)

	_, err := f.validator.Validate("proj-public", "bad-key", "good-secret")
	require.Error(t, err)
	assert.Equal(t, apierr.CodeInvalidAPIKey, apierr.CodeOf(err))
	assert.Equal(t, 401, apierr.StatusOf(err))
}

func TestValidate_InactiveKey(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.SetCredentialActive(f.cred.ID, false))

	// A revoked key is indistinguishable from an unknown one.
	_, err := f.validator.Validate("proj-public", "good-key", "good-secret")
	require.Error(t, err)
	assert.Equal(t, apierr.CodeInvalidAPIKey, apierr.CodeOf(err))
}

func TestValidate_ForeignProject(t *testing.T) {
	f := newFixture(t)

	other := &store.Project{
		ID:       uuid.New().String(),
		PublicID: "other-public",
		OwnerID:  "owner-2",
	}
	require.NoError(t, f.store.CreateProject(other))

	// Valid key, but scoped to a different project than the one named.
	_, err := f.validator.Validate("other-public", "good-key", "good-secret")
	require.Error(t, err)
	assert.Equal(t, apierr.CodeProjectAccessDenied, apierr.CodeOf(err))
	assert.Equal(t, 403, apierr.StatusOf(err))
}

func TestValidate_WrongSecret(t *testing.T) {
	f := newFixture(t)

	_, err := f.validator.Validate("proj-public", "good-key", "wrong-secret")
	require.Error(t, err)
	assert.Equal(t, apierr.CodeInvalidAPISecret, apierr.CodeOf(err))
	assert.Equal(t, 401, apierr.StatusOf(err))

	// Failed attempts never bump usage.
	got, err := f.store.GetCredentialByKey("good-key")
	require.NoError(t, err)
	assert.Zero(t, got.UsageCount)
}

func TestValidate_CheckOrder(t *testing.T) {
	f := newFixture(t)

	// Project resolution is checked before the key, so a bad project id wins
	// even when everything else is wrong too.
	_, err := f.validator.Validate("no-such-project", "bad-key", "wrong-secret")
	require.Error(t, err)
	assert.Equal(t, apierr.CodeInvalidProjectID, apierr.CodeOf(err))
}

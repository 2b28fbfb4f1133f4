package story

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storylinehq/storyline/internal/metrics"
	"github.com/storylinehq/storyline/internal/store"
)

func TestAnswer_AISuccess(t *testing.T) {
	st, p := newStoryStore(t)
	_, _, err := st.UpsertStory(&store.Story{
		ID:         uuid.New().String(),
		ProjectID:  p.ID,
		ClientUUID: "c1",
		StoryText:  "stored narrative",
	})
	require.NoError(t, err)

	provider := &stubProvider{text: "an answer"}
	a := NewAnswerer(provider, 1024, st, metrics.New(), zerolog.New(os.Stderr))

	ans, err := a.Answer(context.Background(), p.ID, "c1", "what happened?", VoiceThirdPerson)
	require.NoError(t, err)
	assert.Equal(t, "an answer", ans.Text)
	assert.True(t, ans.HadStory)
	assert.True(t, ans.UsedAI)
	assert.Equal(t, 1, provider.calls)
}

func TestAnswer_AIFailureFallsBack(t *testing.T) {
	st, p := newStoryStore(t)
	_, _, err := st.UpsertStory(&store.Story{
		ID:         uuid.New().String(),
		ProjectID:  p.ID,
		ClientUUID: "c1",
		StoryText:  "stored narrative",
	})
	require.NoError(t, err)

	provider := &stubProvider{err: errors.New("backend down")}
	a := NewAnswerer(provider, 1024, st, metrics.New(), zerolog.New(os.Stderr))

	ans, err := a.Answer(context.Background(), p.ID, "c1", "what happened?", VoiceThirdPerson)
	require.NoError(t, err, "a backend failure never fails the answer")
	assert.False(t, ans.UsedAI)
	assert.True(t, ans.HadStory)
	assert.Contains(t, ans.Text, "this user's activity")
	assert.Equal(t, 1, provider.calls, "no retry within the request")
}

func TestAnswer_NoStoredNarrative(t *testing.T) {
	st, p := newStoryStore(t)
	a := NewAnswerer(nil, 1024, st, metrics.New(), zerolog.New(os.Stderr))

	// A client with no narrative is a valid state, not an error.
	ans, err := a.Answer(context.Background(), p.ID, "stranger", "what happened?", VoiceFirstPerson)
	require.NoError(t, err)
	assert.False(t, ans.HadStory)
	assert.Contains(t, ans.Text, "I don't have enough activity data")
}

func TestAnswer_VoiceSelectsPhrasing(t *testing.T) {
	st, p := newStoryStore(t)
	_, _, err := st.UpsertStory(&store.Story{
		ID:         uuid.New().String(),
		ProjectID:  p.ID,
		ClientUUID: "c1",
		StoryText:  fallbackNarrative(makeEvents(3, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))),
	})
	require.NoError(t, err)

	a := NewAnswerer(nil, 1024, st, metrics.New(), zerolog.New(os.Stderr))
	ctx := context.Background()

	chat, err := a.Answer(ctx, p.ID, "c1", "what is my activity?", VoiceFirstPerson)
	require.NoError(t, err)
	assert.Contains(t, chat.Text, "your activity")

	query, err := a.Answer(ctx, p.ID, "c1", "what is the activity?", VoiceThirdPerson)
	require.NoError(t, err)
	assert.Contains(t, query.Text, "this user's activity")
}

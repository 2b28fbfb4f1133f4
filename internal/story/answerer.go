package story

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/storylinehq/storyline/internal/apierr"
	"github.com/storylinehq/storyline/internal/llm"
	"github.com/storylinehq/storyline/internal/metrics"
	"github.com/storylinehq/storyline/internal/store"
)

// StoryReader is the read-only slice of the storage layer the answerer uses.
type StoryReader interface {
	GetStory(projectID, clientUUID string) (*store.Story, error)
}

// responder answers a question against a narrative. Implementations must
// return a non-empty string on success.
type responder interface {
	respond(ctx context.Context, narrative, question string, voice Voice) (string, error)
}

type aiResponder struct {
	provider  llm.Provider
	maxTokens int
}

func (r *aiResponder) respond(ctx context.Context, narrative, question string, voice Voice) (string, error) {
	resp, err := r.provider.Generate(ctx, llm.GenerateRequest{
		Prompt:    answerPrompt(narrative, question, voice),
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// deterministicResponder is the unconditional fallback; it cannot fail.
type deterministicResponder struct{}

func (deterministicResponder) respond(_ context.Context, narrative, question string, voice Voice) (string, error) {
	return fallbackAnswer(narrative, question, voice), nil
}

// Answer is one produced answer plus the state the caller needs for call
// tracking.
type Answer struct {
	Text     string
	HadStory bool
	UsedAI   bool
}

// Answerer answers free-form questions against stored narratives. It is
// read-only with respect to persisted state.
type Answerer struct {
	ai       responder // nil when no backend is configured
	fallback responder
	stories  StoryReader
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewAnswerer creates an answerer. provider may be nil, in which case every
// answer takes the deterministic path.
func NewAnswerer(provider llm.Provider, maxTokens int, stories StoryReader, m *metrics.Metrics, logger zerolog.Logger) *Answerer {
	a := &Answerer{
		fallback: deterministicResponder{},
		stories:  stories,
		metrics:  m,
		logger:   logger.With().Str("component", "answerer").Logger(),
	}
	if provider != nil {
		a.ai = &aiResponder{provider: provider, maxTokens: maxTokens}
	}
	return a
}

// Answer fetches the stored narrative for (project, client) and produces an
// answer. A missing narrative is a valid, answerable state, not an error.
// Exactly one AI attempt is made before falling back; the fallback
// cannot fail, so the only error path is the narrative read itself.
func (a *Answerer) Answer(ctx context.Context, projectID, clientUUID, question string, voice Voice) (*Answer, error) {
	st, err := a.stories.GetStory(projectID, clientUUID)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeDatabaseError, "Failed to fetch user story", err)
	}

	narrative := ""
	if st != nil {
		narrative = st.StoryText
	}

	if a.ai != nil {
		text, aiErr := a.ai.respond(ctx, narrative, question, voice)
		if aiErr == nil && text != "" {
			a.metrics.RecordAICall("answer", "ok")
			return &Answer{Text: text, HadStory: st != nil, UsedAI: true}, nil
		}
		a.metrics.RecordAICall("answer", "error")
		a.logger.Warn().Err(aiErr).Msg("AI answering failed, using fallback")
	}

	a.metrics.RecordFallback("answer")
	text, _ := a.fallback.respond(ctx, narrative, question, voice)
	return &Answer{Text: text, HadStory: st != nil, UsedAI: false}, nil
}

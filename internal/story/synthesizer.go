// Package story synthesizes per-client activity narratives and answers
// questions about them, preferring the generative backend and guaranteeing
// a deterministic result when it is unavailable.
package story

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/storylinehq/storyline/internal/apierr"
	"github.com/storylinehq/storyline/internal/llm"
	"github.com/storylinehq/storyline/internal/metrics"
	"github.com/storylinehq/storyline/internal/store"
)

// StoryStore is the slice of the storage layer the synthesizer writes to.
type StoryStore interface {
	GetStory(projectID, clientUUID string) (*store.Story, error)
	UpsertStory(st *store.Story) (string, bool, error)
}

// narrator turns an event window into narrative text. Implementations must
// return a non-empty string on success.
type narrator interface {
	narrate(ctx context.Context, events []store.Event) (string, error)
}

type aiNarrator struct {
	provider  llm.Provider
	maxTokens int
}

func (n *aiNarrator) narrate(ctx context.Context, events []store.Event) (string, error) {
	resp, err := n.provider.Generate(ctx, llm.GenerateRequest{
		Prompt:    narrativePrompt(events),
		MaxTokens: n.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// deterministicNarrator is the unconditional fallback; it cannot fail.
type deterministicNarrator struct{}

func (deterministicNarrator) narrate(_ context.Context, events []store.Event) (string, error) {
	return fallbackNarrative(events), nil
}

// Result describes one persisted narrative.
type Result struct {
	StoryID   string
	StoryText string
	Created   bool
	UsedAI    bool
}

// Synthesizer produces and persists narratives for (project, client) pairs.
type Synthesizer struct {
	ai       narrator // nil when no backend is configured
	fallback narrator
	stories  StoryStore
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewSynthesizer creates a synthesizer. provider may be nil, in which case
// every synthesis takes the deterministic path.
func NewSynthesizer(provider llm.Provider, maxTokens int, stories StoryStore, m *metrics.Metrics, logger zerolog.Logger) *Synthesizer {
	s := &Synthesizer{
		fallback: deterministicNarrator{},
		stories:  stories,
		metrics:  m,
		logger:   logger.With().Str("component", "synthesizer").Logger(),
	}
	if provider != nil {
		s.ai = &aiNarrator{provider: provider, maxTokens: maxTokens}
	}
	return s
}

// Synthesize generates a narrative for the event window and persists it with
// atomic create-or-update semantics. Generation itself cannot fail: exactly
// one AI attempt is made, and any failure downgrades to the deterministic
// path. The returned error only ever reflects persistence problems.
func (s *Synthesizer) Synthesize(ctx context.Context, projectID, clientUUID string, events []store.Event) (*Result, error) {
	if len(events) == 0 {
		return nil, apierr.New(apierr.CodeInvalidActivityLogs, "activity_logs must be a non-empty array")
	}

	text, usedAI := s.generate(ctx, events)

	var latest int64
	for _, e := range events {
		if e.EventAt > latest {
			latest = e.EventAt
		}
	}

	// Read first only to phrase the failure; the write itself is atomic.
	existing, preErr := s.stories.GetStory(projectID, clientUUID)
	if preErr != nil {
		s.logger.Warn().Err(preErr).
			Str("project_id", projectID).
			Str("client_uuid", clientUUID).
			Msg("failed to read existing narrative")
	}

	st := &store.Story{
		ID:            uuid.New().String(),
		ProjectID:     projectID,
		ClientUUID:    clientUUID,
		StoryText:     text,
		LatestEventAt: latest,
	}
	id, created, err := s.stories.UpsertStory(st)
	if err != nil {
		switch {
		case preErr != nil:
			// Can't tell create from update when the pre-read failed too.
			return nil, apierr.Wrap(apierr.CodeDatabaseError, "Database error occurred", err)
		case existing != nil:
			return nil, apierr.Wrap(apierr.CodeDatabaseUpdateError, "Failed to update user story", err)
		default:
			return nil, apierr.Wrap(apierr.CodeDatabaseInsertError, "Failed to create user story", err)
		}
	}

	s.logger.Debug().
		Str("project_id", projectID).
		Str("client_uuid", clientUUID).
		Bool("created", created).
		Bool("used_ai", usedAI).
		Msg("narrative persisted")

	return &Result{StoryID: id, StoryText: text, Created: created, UsedAI: usedAI}, nil
}

// generate runs the two-state attempt: AttemptingAI, then Succeeded or
// FallingBack. No retry of the AI call happens within a single request.
func (s *Synthesizer) generate(ctx context.Context, events []store.Event) (string, bool) {
	if s.ai != nil {
		text, err := s.ai.narrate(ctx, events)
		if err == nil && text != "" {
			s.metrics.RecordAICall("synthesize", "ok")
			return text, true
		}
		s.metrics.RecordAICall("synthesize", "error")
		s.logger.Warn().Err(err).Msg("AI synthesis failed, using fallback")
	}

	s.metrics.RecordFallback("synthesize")
	text, _ := s.fallback.narrate(ctx, events)
	return text, false
}

package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/storylinehq/storyline/internal/apierr"
	"github.com/storylinehq/storyline/internal/auth"
	"github.com/storylinehq/storyline/internal/ingest"
	"github.com/storylinehq/storyline/internal/store"
	"github.com/storylinehq/storyline/internal/story"
	"github.com/storylinehq/storyline/internal/track"
)

// CredentialValidator validates a (public project id, key, secret) triple.
type CredentialValidator interface {
	Validate(publicProjectID, apiKey, apiSecret string) (*auth.Identity, error)
}

// Handlers holds dependencies for the HTTP handlers.
type Handlers struct {
	ingestor    *ingest.Ingestor
	answerer    *story.Answerer
	synthesizer *story.Synthesizer
	validator   CredentialValidator
	tracker     *track.Tracker
	logger      zerolog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	ingestor *ingest.Ingestor,
	answerer *story.Answerer,
	synthesizer *story.Synthesizer,
	validator CredentialValidator,
	tracker *track.Tracker,
	logger zerolog.Logger,
) *Handlers {
	return &Handlers{
		ingestor:    ingestor,
		answerer:    answerer,
		synthesizer: synthesizer,
		validator:   validator,
		tracker:     tracker,
		logger:      logger.With().Str("component", "handlers").Logger(),
	}
}

// IngestLogs handles POST /v1/ingest-logs.
func (h *Handlers) IngestLogs(c *fiber.Ctx) error {
	var req IngestLogsRequest
	if err := c.BodyParser(&req); err != nil {
		return errorCode(c, apierr.CodeInternalError, "Internal server error")
	}

	if req.APIKey == "" || req.APISecret == "" || req.PublicProjectID == "" || req.Payload == (IngestPayload{}) {
		return errorCode(c, apierr.CodeMissingFields,
			"Missing required fields: API_key, API_secret, public_project_id, and payload are required")
	}

	if req.Type != "log" {
		return errorCode(c, apierr.CodeInvalidType, `Invalid type. Must be "log"`)
	}

	logID, identity, err := h.ingestor.Ingest(ingest.Request{
		APIKey:          req.APIKey,
		APISecret:       req.APISecret,
		PublicProjectID: req.PublicProjectID,
		ClientUUID:      req.Payload.ClientUUID,
		Action:          req.Payload.Action,
		Event:           req.Payload.Event,
		EventDetails:    req.Payload.EventDetails,
		Timestamp:       req.Payload.Timestamp,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	h.tracker.Record(track.Call{
		CredentialID: identity.CredentialID,
		ProjectID:    identity.ProjectID,
		Endpoint:     c.Path(),
		CallType:     "log_ingest",
		Metadata: map[string]any{
			"client_uuid": req.Payload.ClientUUID,
			"action":      req.Payload.Action,
		},
		Status: fiber.StatusOK,
	})

	return c.JSON(IngestLogsResponse{
		Success: true,
		Message: "Activity log created successfully",
		LogID:   logID,
	})
}

// ChatQuestion handles POST /v1/chat-question.
func (h *Handlers) ChatQuestion(c *fiber.Ctx) error {
	var req ChatQuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorCode(c, apierr.CodeInternalError, "Internal server error")
	}

	if req.APIKey == "" || req.APISecret == "" || req.PublicProjectID == "" || req.Payload == (ChatPayload{}) {
		return errorCode(c, apierr.CodeMissingFields,
			"Missing required fields: API_key, API_secret, public_project_id, and payload are required")
	}

	if req.Type != "chat" {
		return errorCode(c, apierr.CodeInvalidType, `Invalid type. Must be "chat"`)
	}

	if req.Payload.ClientUUID == "" || req.Payload.Questions == "" {
		return errorCode(c, apierr.CodeMissingPayloadFields,
			"Missing required payload fields: client_uuid and questions are required")
	}

	identity, err := h.validator.Validate(req.PublicProjectID, req.APIKey, req.APISecret)
	if err != nil {
		return errorResponse(c, err)
	}

	answer, err := h.answerer.Answer(c.UserContext(), identity.ProjectID, req.Payload.ClientUUID, req.Payload.Questions, story.VoiceFirstPerson)
	if err != nil {
		return errorResponse(c, err)
	}

	h.tracker.Record(track.Call{
		CredentialID: identity.CredentialID,
		ProjectID:    identity.ProjectID,
		Endpoint:     c.Path(),
		CallType:     "chat_question",
		Metadata: map[string]any{
			"client_uuid":     req.Payload.ClientUUID,
			"question_length": len(req.Payload.Questions),
			"has_user_story":  answer.HadStory,
		},
		Status: fiber.StatusOK,
	})

	return c.JSON(ChatQuestionResponse{Success: true, Answer: answer.Text})
}

// QueryUserStory handles POST /v1/query-user-story.
func (h *Handlers) QueryUserStory(c *fiber.Ctx) error {
	var req QueryUserStoryRequest
	if err := c.BodyParser(&req); err != nil {
		return errorCode(c, apierr.CodeInternalError, "Internal server error")
	}

	if req.APIKey == "" || req.APISecret == "" || req.PublicProjectID == "" || req.ClientUUID == "" || req.Question == "" {
		return errorCode(c, apierr.CodeMissingFields,
			"Missing required fields: API_key, API_secret, public_project_id, client_uuid, and question are required")
	}

	identity, err := h.validator.Validate(req.PublicProjectID, req.APIKey, req.APISecret)
	if err != nil {
		return errorResponse(c, err)
	}

	answer, err := h.answerer.Answer(c.UserContext(), identity.ProjectID, req.ClientUUID, req.Question, story.VoiceThirdPerson)
	if err != nil {
		return errorResponse(c, err)
	}

	h.tracker.Record(track.Call{
		CredentialID: identity.CredentialID,
		ProjectID:    identity.ProjectID,
		Endpoint:     c.Path(),
		CallType:     "user_story_query",
		Metadata: map[string]any{
			"client_uuid":     req.ClientUUID,
			"question_length": len(req.Question),
			"has_user_story":  answer.HadStory,
		},
		Status: fiber.StatusOK,
	})

	return c.JSON(QueryUserStoryResponse{Success: true, Response: answer.Text})
}

// GenerateUserStory handles POST /internal/v1/generate-user-story, the
// service-authenticated regeneration trigger.
func (h *Handlers) GenerateUserStory(c *fiber.Ctx) error {
	var req GenerateStoryRequest
	if err := c.BodyParser(&req); err != nil {
		return errorCode(c, apierr.CodeInternalError, "Internal server error")
	}

	if req.ProjectID == "" || req.ClientUUID == "" || req.ActivityLogs == nil {
		return errorCode(c, apierr.CodeMissingFields,
			"Missing required fields: project_id, client_uuid, and activity_logs are required")
	}

	if len(req.ActivityLogs) == 0 {
		return errorCode(c, apierr.CodeInvalidActivityLogs, "activity_logs must be a non-empty array")
	}

	events := make([]store.Event, 0, len(req.ActivityLogs))
	for _, entry := range req.ActivityLogs {
		at, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil {
			return errorCode(c, apierr.CodeInvalidActivityLogs, "activity_logs contains an invalid timestamp")
		}
		events = append(events, store.Event{
			ProjectID:    req.ProjectID,
			ClientUUID:   req.ClientUUID,
			Action:       store.Action(entry.Action),
			Event:        entry.Event,
			EventDetails: entry.EventDetails,
			EventAt:      at.UnixMilli(),
		})
	}

	result, err := h.synthesizer.Synthesize(c.UserContext(), req.ProjectID, req.ClientUUID, events)
	if err != nil {
		return errorResponse(c, err)
	}

	message := "User story updated successfully"
	if result.Created {
		message = "User story created successfully"
	}

	return c.JSON(GenerateStoryResponse{
		Success:   true,
		Message:   message,
		StoryID:   result.StoryID,
		StoryText: result.StoryText,
	})
}

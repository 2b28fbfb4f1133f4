// Package ingest validates and persists client activity events.
package ingest

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/storylinehq/storyline/internal/apierr"
	"github.com/storylinehq/storyline/internal/auth"
	"github.com/storylinehq/storyline/internal/store"
)

// EventStore is the slice of the storage layer the ingestor writes to.
type EventStore interface {
	InsertEvent(e *store.Event) error
}

// CredentialValidator validates a (public project id, key, secret) triple.
type CredentialValidator interface {
	Validate(publicProjectID, apiKey, apiSecret string) (*auth.Identity, error)
}

// Trigger schedules background narrative regeneration. Enqueue must not
// block; a false return means the job was dropped.
type Trigger interface {
	Enqueue(projectID, clientUUID string) bool
}

// Request is one ingestion request after transport decoding.
type Request struct {
	APIKey          string
	APISecret       string
	PublicProjectID string
	ClientUUID      string
	Action          string
	Event           string
	EventDetails    string
	Timestamp       string // ISO 8601
}

// Ingestor validates and persists one activity event per request, then
// schedules regeneration without blocking the response.
type Ingestor struct {
	validator CredentialValidator
	events    EventStore
	trigger   Trigger
	logger    zerolog.Logger
}

// New creates an ingestor. trigger may be nil (no background regeneration).
func New(validator CredentialValidator, events EventStore, trigger Trigger, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		validator: validator,
		events:    events,
		trigger:   trigger,
		logger:    logger.With().Str("component", "ingestor").Logger(),
	}
}

// Ingest runs the full validation chain and persists the event. Validation
// order is fixed: payload presence, timestamp, action kind, credentials.
// Nothing is written until the whole chain passes. Two calls with identical
// payloads produce two rows.
func (i *Ingestor) Ingest(req Request) (string, *auth.Identity, error) {
	if req.ClientUUID == "" || req.Action == "" || req.Event == "" || req.EventDetails == "" || req.Timestamp == "" {
		return "", nil, apierr.New(apierr.CodeMissingPayloadFields,
			"Missing required payload fields: client_uuid, action, event, event_details, and timestamp are required")
	}

	eventAt, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return "", nil, apierr.New(apierr.CodeInvalidTimestamp,
			"Invalid timestamp format. Use ISO 8601 format (e.g., 2024-01-15T10:30:00Z)")
	}

	if !store.ValidAction(req.Action) {
		return "", nil, apierr.New(apierr.CodeInvalidAction,
			"Invalid action type. Must be one of: create, update, delete, other")
	}

	identity, err := i.validator.Validate(req.PublicProjectID, req.APIKey, req.APISecret)
	if err != nil {
		return "", nil, err
	}

	event := &store.Event{
		ID:           uuid.New().String(),
		ProjectID:    identity.ProjectID,
		ClientUUID:   req.ClientUUID,
		Action:       store.Action(req.Action),
		Event:        req.Event,
		EventDetails: req.EventDetails,
		EventAt:      eventAt.UnixMilli(),
	}
	if err := i.events.InsertEvent(event); err != nil {
		return "", nil, apierr.Wrap(apierr.CodeDatabaseError, "Database error occurred", err)
	}

	// Fire-and-forget: the caller never pays for or learns about
	// regeneration. A full queue only delays convergence.
	if i.trigger != nil {
		if !i.trigger.Enqueue(identity.ProjectID, req.ClientUUID) {
			i.logger.Warn().
				Str("project_id", identity.ProjectID).
				Str("client_uuid", req.ClientUUID).
				Msg("regeneration queue full, job dropped")
		}
	}

	return event.ID, identity, nil
}

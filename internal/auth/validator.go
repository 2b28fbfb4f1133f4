// Package auth validates tenant API credentials against their project scope.
package auth

import (
	"crypto/subtle"

	"github.com/rs/zerolog"

	"github.com/storylinehq/storyline/internal/apierr"
	"github.com/storylinehq/storyline/internal/store"
)

// Store is the slice of the storage layer the validator depends on.
type Store interface {
	GetProjectByPublicID(publicID string) (*store.Project, error)
	GetCredentialByKey(apiKey string) (*store.Credential, error)
	TouchCredential(id string) error
}

// Identity is the validated caller identity, carrying enough to scope
// writes and record call tracking.
type Identity struct {
	ProjectID    string
	CredentialID string
	OwnerID      string
}

// Validator resolves public project ids and checks key/secret pairs.
// It performs reads only; the usage-counter bump on success is best-effort.
type Validator struct {
	store  Store
	logger zerolog.Logger
}

// NewValidator creates a credential validator.
func NewValidator(st Store, logger zerolog.Logger) *Validator {
	return &Validator{
		store:  st,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Validate checks a (public project id, key, secret) triple. The checks run
// in fixed order and the first failure is terminal:
//
//  1. the public project id must resolve,
//  2. the key must exist and be active,
//  3. the key must be bound to the resolved project,
//  4. the secret must match exactly.
//
// Key failures and scope failures carry distinct codes so callers can tell
// "bad key" from "key doesn't own this project".
func (v *Validator) Validate(publicProjectID, apiKey, apiSecret string) (*Identity, error) {
	project, err := v.store.GetProjectByPublicID(publicProjectID)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeDatabaseError, "Database error occurred", err)
	}
	if project == nil {
		return nil, apierr.New(apierr.CodeInvalidProjectID, "Invalid project ID")
	}

	cred, err := v.store.GetCredentialByKey(apiKey)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeDatabaseError, "Database error occurred", err)
	}
	if cred == nil || !cred.IsActive {
		return nil, apierr.New(apierr.CodeInvalidAPIKey, "Invalid API key")
	}

	if cred.ProjectID != project.ID {
		return nil, apierr.New(apierr.CodeProjectAccessDenied, "Project access denied")
	}

	if subtle.ConstantTimeCompare([]byte(cred.APISecret), []byte(apiSecret)) != 1 {
		return nil, apierr.New(apierr.CodeInvalidAPISecret, "Invalid API secret")
	}

	if err := v.store.TouchCredential(cred.ID); err != nil {
		v.logger.Warn().Err(err).Str("credential_id", cred.ID).Msg("failed to bump credential usage")
	}

	return &Identity{
		ProjectID:    project.ID,
		CredentialID: cred.ID,
		OwnerID:      project.OwnerID,
	}, nil
}

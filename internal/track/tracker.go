// Package track records per-request audit rows for usage metering. All
// writes are best-effort: a tracking failure is logged and counted but never
// propagated to the request that produced it.
package track

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/storylinehq/storyline/internal/metrics"
	"github.com/storylinehq/storyline/internal/store"
)

// Store is the slice of the storage layer the tracker appends to.
type Store interface {
	RecordCall(c *store.APICall) error
}

// Call describes one completed, authorized request.
type Call struct {
	CredentialID string
	ProjectID    string
	Endpoint     string
	CallType     string
	Metadata     map[string]any
	Status       int
}

// Tracker appends API call audit rows.
type Tracker struct {
	store   Store
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New creates a call tracker.
func New(st Store, m *metrics.Metrics, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:   st,
		metrics: m,
		logger:  logger.With().Str("component", "tracker").Logger(),
	}
}

// Record appends one audit row. Failures are swallowed.
func (t *Tracker) Record(call Call) {
	meta := ""
	if call.Metadata != nil {
		if raw, err := json.Marshal(call.Metadata); err == nil {
			meta = string(raw)
		}
	}

	err := t.store.RecordCall(&store.APICall{
		CredentialID:    call.CredentialID,
		ProjectID:       call.ProjectID,
		Endpoint:        call.Endpoint,
		CallType:        call.CallType,
		RequestMetadata: meta,
		ResponseStatus:  call.Status,
	})
	if err != nil {
		t.metrics.TrackingErrors.Inc()
		t.logger.Warn().Err(err).
			Str("endpoint", call.Endpoint).
			Str("project_id", call.ProjectID).
			Msg("failed to track api call")
	}
}

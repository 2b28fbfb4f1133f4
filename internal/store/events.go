package store

import (
	"fmt"
	"time"
)

// Action is the enumerated kind of a reported client action.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionOther  Action = "other"
)

// ValidAction reports whether the string is one of the four enumerated kinds.
func ValidAction(a string) bool {
	switch Action(a) {
	case ActionCreate, ActionUpdate, ActionDelete, ActionOther:
		return true
	}
	return false
}

// Event is one reported client action. Rows are immutable once written;
// the pipeline never updates or deletes them.
type Event struct {
	ID           string
	ProjectID    string
	ClientUUID   string
	Action       Action
	Event        string
	EventDetails string
	EventAt      int64 // caller-supplied, unix millis
	IngestedAt   int64 // server-assigned
}

// Timestamp returns the caller-supplied event time.
func (e *Event) Timestamp() time.Time {
	return time.UnixMilli(e.EventAt).UTC()
}

// InsertEvent persists one activity event. No deduplication: identical
// payloads produce distinct rows.
func (s *Store) InsertEvent(e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.IngestedAt == 0 {
		e.IngestedAt = time.Now().UnixMilli()
	}

	_, err := s.db.Exec(`
	INSERT INTO activity_events (id, project_id, client_uuid, action, event, event_details, event_at, ingested_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProjectID, e.ClientUUID, string(e.Action), e.Event, e.EventDetails, e.EventAt, e.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// RecentEvents returns up to limit events for a (project, client) pair,
// newest first by caller-supplied timestamp.
func (s *Store) RecentEvents(projectID, clientUUID string, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT id, project_id, client_uuid, action, event, event_details, event_at, ingested_at
	FROM activity_events
	WHERE project_id = ? AND client_uuid = ?
	ORDER BY event_at DESC
	LIMIT ?`, projectID, clientUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var action string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.ClientUUID, &action, &e.Event, &e.EventDetails, &e.EventAt, &e.IngestedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Action = Action(action)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// CountEvents returns the number of events for a (project, client) pair.
func (s *Store) CountEvents(projectID, clientUUID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(`
	SELECT COUNT(*) FROM activity_events WHERE project_id = ? AND client_uuid = ?`,
		projectID, clientUUID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

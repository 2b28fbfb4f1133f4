package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Story is the synthesized narrative for one (project, client) pair. At most
// one row exists per pair; regeneration overwrites the text in place.
type Story struct {
	ID            string
	ProjectID     string
	ClientUUID    string
	StoryText     string
	LatestEventAt int64 // caller-supplied timestamp of the newest folded event
	CreatedAt     int64
	UpdatedAt     int64
}

// UpsertStory atomically inserts or overwrites the story for the
// (project, client) pair. The caller provides a candidate id for the insert
// case; on conflict the existing row keeps its id and created_at. Returns
// the persisted id and whether a new row was created.
func (s *Store) UpsertStory(st *Story) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if st.CreatedAt == 0 {
		st.CreatedAt = now
	}
	st.UpdatedAt = now

	var latest sql.NullInt64
	if st.LatestEventAt != 0 {
		latest = sql.NullInt64{Int64: st.LatestEventAt, Valid: true}
	}

	var id string
	err := s.db.QueryRow(`
	INSERT INTO user_stories (id, project_id, client_uuid, story_text, latest_event_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(project_id, client_uuid) DO UPDATE SET
		story_text = excluded.story_text,
		latest_event_at = excluded.latest_event_at,
		updated_at = excluded.updated_at
	RETURNING id`,
		st.ID, st.ProjectID, st.ClientUUID, st.StoryText, latest, st.CreatedAt, st.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", false, fmt.Errorf("failed to upsert story: %w", err)
	}

	created := id == st.ID
	st.ID = id
	return id, created, nil
}

// GetStory retrieves the story for a (project, client) pair, or nil when the
// client has no narrative yet.
func (s *Store) GetStory(projectID, clientUUID string) (*Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &Story{}
	var latest sql.NullInt64
	err := s.db.QueryRow(`
	SELECT id, project_id, client_uuid, story_text, latest_event_at, created_at, updated_at
	FROM user_stories WHERE project_id = ? AND client_uuid = ?`,
		projectID, clientUUID).Scan(
		&st.ID, &st.ProjectID, &st.ClientUUID, &st.StoryText, &latest, &st.CreatedAt, &st.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get story: %w", err)
	}

	if latest.Valid {
		st.LatestEventAt = latest.Int64
	}
	return st, nil
}

package store

import (
	"fmt"
	"time"
)

// APICall is one append-only audit row per authorized request. Writes are
// best-effort: a failure here never fails the request that produced it.
type APICall struct {
	ID              int64
	CredentialID    string
	ProjectID       string
	Endpoint        string
	CallType        string
	RequestMetadata string // opaque JSON
	ResponseStatus  int
	CreatedAt       int64
}

// RecordCall appends one API call audit row.
func (s *Store) RecordCall(c *APICall) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}

	_, err := s.db.Exec(`
	INSERT INTO api_calls (credential_id, project_id, endpoint, call_type, request_metadata, response_status, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.CredentialID, c.ProjectID, c.Endpoint, c.CallType, c.RequestMetadata, c.ResponseStatus, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record api call: %w", err)
	}
	return nil
}

// ListCalls returns audit rows for a project, newest first (for testing and
// usage inspection).
func (s *Store) ListCalls(projectID string, limit int) ([]APICall, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT id, credential_id, project_id, endpoint, call_type, request_metadata, response_status, created_at
	FROM api_calls WHERE project_id = ?
	ORDER BY created_at DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query api calls: %w", err)
	}
	defer rows.Close()

	var calls []APICall
	for rows.Next() {
		var c APICall
		if err := rows.Scan(&c.ID, &c.CredentialID, &c.ProjectID, &c.Endpoint, &c.CallType, &c.RequestMetadata, &c.ResponseStatus, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api call: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate api calls: %w", err)
	}
	return calls, nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Project is a tenant's isolated namespace for events and narratives. The
// public id is the only identifier callers ever see; the internal id never
// leaves the service.
type Project struct {
	ID        string
	PublicID  string
	Name      string
	OwnerID   string
	CreatedAt int64
}

// Credential is an API key/secret pair bound to exactly one project.
type Credential struct {
	ID         string
	ProjectID  string
	APIKey     string
	APISecret  string
	IsActive   bool
	UsageCount int64
	LastUsedAt int64
	CreatedAt  int64
}

// CreateProject inserts a project. Idempotent on public_id so dev seeding
// can run at every startup.
func (s *Store) CreateProject(p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().UnixMilli()
	}

	_, err := s.db.Exec(`
	INSERT OR IGNORE INTO projects (id, public_id, name, owner_id, created_at)
	VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.PublicID, p.Name, p.OwnerID, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// ResolveProjectID maps a public project id to the internal id. Returns ""
// with no error when the public id is unknown.
func (s *Store) ResolveProjectID(publicID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id string
	err := s.db.QueryRow(`SELECT id FROM projects WHERE public_id = ?`, publicID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve project id: %w", err)
	}
	return id, nil
}

// GetProjectByPublicID retrieves a project by its external-facing id.
// Returns nil with no error when the public id is unknown.
func (s *Store) GetProjectByPublicID(publicID string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &Project{}
	err := s.db.QueryRow(`
	SELECT id, public_id, name, owner_id, created_at
	FROM projects WHERE public_id = ?`, publicID).Scan(
		&p.ID, &p.PublicID, &p.Name, &p.OwnerID, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project by public id: %w", err)
	}
	return p, nil
}

// GetProject retrieves a project by internal id.
func (s *Store) GetProject(id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := &Project{}
	err := s.db.QueryRow(`
	SELECT id, public_id, name, owner_id, created_at
	FROM projects WHERE id = ?`, id).Scan(
		&p.ID, &p.PublicID, &p.Name, &p.OwnerID, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// CreateCredential inserts an API credential. Idempotent on api_key.
func (s *Store) CreateCredential(c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}

	_, err := s.db.Exec(`
	INSERT OR IGNORE INTO api_credentials (id, project_id, api_key, api_secret, is_active, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.APIKey, c.APISecret, boolToInt(c.IsActive), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

// GetCredentialByKey retrieves a credential by its API key, active or not.
// Returns nil with no error when the key is unknown.
func (s *Store) GetCredentialByKey(apiKey string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &Credential{}
	var active int
	var lastUsed sql.NullInt64
	err := s.db.QueryRow(`
	SELECT id, project_id, api_key, api_secret, is_active, usage_count, last_used_at, created_at
	FROM api_credentials WHERE api_key = ?`, apiKey).Scan(
		&c.ID, &c.ProjectID, &c.APIKey, &c.APISecret, &active, &c.UsageCount, &lastUsed, &c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	c.IsActive = active != 0
	if lastUsed.Valid {
		c.LastUsedAt = lastUsed.Int64
	}
	return c, nil
}

// TouchCredential bumps the usage counter and last-used timestamp after a
// successful validation.
func (s *Store) TouchCredential(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
	UPDATE api_credentials SET usage_count = usage_count + 1, last_used_at = ?
	WHERE id = ?`, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to touch credential: %w", err)
	}
	return nil
}

// SetCredentialActive flips the active flag; inactive credentials are always
// rejected regardless of key/secret correctness.
func (s *Store) SetCredentialActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`UPDATE api_credentials SET is_active = ? WHERE id = ?`, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("failed to set credential active: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

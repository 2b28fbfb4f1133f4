package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id         TEXT PRIMARY KEY,
		public_id  TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL DEFAULT '',
		owner_id   TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_public ON projects(public_id);

	CREATE TABLE IF NOT EXISTS api_credentials (
		id           TEXT PRIMARY KEY,
		project_id   TEXT NOT NULL REFERENCES projects(id),
		api_key      TEXT NOT NULL UNIQUE,
		api_secret   TEXT NOT NULL,
		is_active    INTEGER NOT NULL DEFAULT 1,
		usage_count  INTEGER NOT NULL DEFAULT 0,
		last_used_at INTEGER,
		created_at   INTEGER NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_credentials_key ON api_credentials(api_key);
	CREATE INDEX IF NOT EXISTS idx_credentials_project ON api_credentials(project_id);

	CREATE TABLE IF NOT EXISTS activity_events (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL REFERENCES projects(id),
		client_uuid   TEXT NOT NULL,
		action        TEXT NOT NULL,
		event         TEXT NOT NULL,
		event_details TEXT NOT NULL DEFAULT '',
		event_at      INTEGER NOT NULL,
		ingested_at   INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_client ON activity_events(project_id, client_uuid, event_at);

	CREATE TABLE IF NOT EXISTS user_stories (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL REFERENCES projects(id),
		client_uuid     TEXT NOT NULL,
		story_text      TEXT NOT NULL,
		latest_event_at INTEGER,
		created_at      INTEGER NOT NULL,
		updated_at      INTEGER NOT NULL,
		UNIQUE(project_id, client_uuid)
	);

	CREATE TABLE IF NOT EXISTS api_calls (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		credential_id    TEXT NOT NULL,
		project_id       TEXT NOT NULL,
		endpoint         TEXT NOT NULL,
		call_type        TEXT NOT NULL,
		request_metadata TEXT,
		response_status  INTEGER NOT NULL,
		created_at       INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calls_project ON api_calls(project_id, created_at);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}

	return nil
}

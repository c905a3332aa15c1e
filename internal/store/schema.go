package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Bootstrap creates the tables this service owns. Statements are idempotent,
// so startup can run them unconditionally.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS report_artifacts (
			id TEXT PRIMARY KEY,
			collaboration_id TEXT NOT NULL,
			format TEXT NOT NULL,
			object_key TEXT NOT NULL,
			commit_hash TEXT NOT NULL DEFAULT '',
			generated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_report_artifacts_collaboration
			ON report_artifacts (collaboration_id, generated_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at, updated_at
		FROM users WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET display_name = $2, updated_at = NOW() WHERE id = $1
	`, userID, displayName)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) InsertReportArtifact(ctx context.Context, artifact ReportArtifact) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO report_artifacts (id, collaboration_id, format, object_key, commit_hash, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, artifact.ID, artifact.CollaborationID, artifact.Format, artifact.ObjectKey, artifact.CommitHash, artifact.GeneratedAt)
	if err != nil {
		return fmt.Errorf("insert report artifact: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListReportArtifacts(ctx context.Context, collaborationID string) ([]ReportArtifact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collaboration_id, format, object_key, commit_hash, generated_at
		FROM report_artifacts
		WHERE collaboration_id = $1
		ORDER BY generated_at DESC
	`, collaborationID)
	if err != nil {
		return nil, fmt.Errorf("list report artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []ReportArtifact
	for rows.Next() {
		var a ReportArtifact
		if err := rows.Scan(&a.ID, &a.CollaborationID, &a.Format, &a.ObjectKey, &a.CommitHash, &a.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan report artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

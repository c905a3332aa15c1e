package store

import "time"

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReportArtifact is one generated export of an ended collaboration: where
// the object landed and which archive commit captured the Markdown source.
type ReportArtifact struct {
	ID              string    `json:"id"`
	CollaborationID string    `json:"collaborationId"`
	Format          string    `json:"format"`
	ObjectKey       string    `json:"objectKey"`
	CommitHash      string    `json:"commitHash"`
	GeneratedAt     time.Time `json:"generatedAt"`
}

package summaries

import (
	"context"

	"policydesk-backend/internal/documents"
)

// Repo defines persistence operations for summary versions. Every mutation
// keeps the documents.summary mirror in step with the active version.
type Repo interface {
	// CreateActive records a new version with number max+1, deactivates the
	// previous active version, and rewrites the document mirror, all
	// atomically. Returns the created version.
	CreateActive(ctx context.Context, userID, documentID, summaryText string, options documents.ProcessingOptions) (Version, error)
	ListByDocument(ctx context.Context, userID, documentID string) ([]Version, error)
	GetByID(ctx context.Context, userID, documentID, versionID string) (Version, error)
	// Activate flips the active flag to the given version and rewrites the
	// document mirror atomically. Activating the already-active version is a
	// no-op.
	Activate(ctx context.Context, userID, documentID, versionID string) (Version, error)
	// Delete removes a non-active version. Deleting the active version
	// returns ErrActiveVersion.
	Delete(ctx context.Context, userID, documentID, versionID string) error
}

package summaries

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"policydesk-backend/internal/documents"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// CreateActive records a new active version and rewrites the document mirror
// in one transaction.
func (r *PGRepo) CreateActive(ctx context.Context, userID, documentID, summaryText string, options documents.ProcessingOptions) (Version, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Version{}, err
	}
	defer tx.Rollback()

	if err := lockDocument(ctx, tx, userID, documentID); err != nil {
		return Version{}, err
	}

	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version_number), 0) + 1 FROM summary_versions WHERE document_id = $1`, documentID).Scan(&next); err != nil {
		return Version{}, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE summary_versions SET is_active = FALSE WHERE document_id = $1 AND is_active`, documentID); err != nil {
		return Version{}, err
	}

	version := Version{
		ID:                uuid.NewString(),
		DocumentID:        documentID,
		VersionNumber:     next,
		SummaryText:       summaryText,
		ProcessingOptions: options,
		IsActive:          true,
		CreatedAt:         time.Now().UTC(),
	}
	optionsPayload, err := json.Marshal(options)
	if err != nil {
		return Version{}, err
	}
	const insert = `
INSERT INTO summary_versions (id, document_id, version_number, summary_text, processing_options, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, TRUE, $6)`
	if _, err := tx.ExecContext(ctx, insert, version.ID, version.DocumentID, version.VersionNumber, version.SummaryText, optionsPayload, version.CreatedAt); err != nil {
		return Version{}, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE documents SET summary = $1 WHERE id = $2`, summaryText, documentID); err != nil {
		return Version{}, err
	}

	if err := tx.Commit(); err != nil {
		return Version{}, err
	}
	return version, nil
}

// ListByDocument returns versions newest-first.
func (r *PGRepo) ListByDocument(ctx context.Context, userID, documentID string) ([]Version, error) {
	const query = `
SELECT v.id, v.document_id, v.version_number, v.summary_text, v.processing_options, v.is_active, v.created_at
FROM summary_versions v
JOIN documents d ON d.id = v.document_id
WHERE v.document_id = $1 AND d.user_id = $2 AND d.deleted_at IS NULL
ORDER BY v.version_number DESC`
	rows, err := r.DB.QueryContext(ctx, query, documentID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var v Version
		var optionsPayload []byte
		if err := rows.Scan(
			&v.ID,
			&v.DocumentID,
			&v.VersionNumber,
			&v.SummaryText,
			&optionsPayload,
			&v.IsActive,
			&v.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(optionsPayload) > 0 {
			if err := json.Unmarshal(optionsPayload, &v.ProcessingOptions); err != nil {
				// keep empty
			}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetByID returns one version scoped to a user's document.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID, versionID string) (Version, error) {
	const query = `
SELECT v.id, v.document_id, v.version_number, v.summary_text, v.processing_options, v.is_active, v.created_at
FROM summary_versions v
JOIN documents d ON d.id = v.document_id
WHERE v.id = $1 AND v.document_id = $2 AND d.user_id = $3 AND d.deleted_at IS NULL
LIMIT 1`
	var v Version
	var optionsPayload []byte
	err := r.DB.QueryRowContext(ctx, query, versionID, documentID, userID).Scan(
		&v.ID,
		&v.DocumentID,
		&v.VersionNumber,
		&v.SummaryText,
		&optionsPayload,
		&v.IsActive,
		&v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Version{}, ErrNotFound
		}
		return Version{}, err
	}
	if len(optionsPayload) > 0 {
		if err := json.Unmarshal(optionsPayload, &v.ProcessingOptions); err != nil {
			// keep empty
		}
	}
	return v, nil
}

// Activate flips the active flag to the given version and rewrites the
// document mirror in one transaction.
func (r *PGRepo) Activate(ctx context.Context, userID, documentID, versionID string) (Version, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return Version{}, err
	}
	defer tx.Rollback()

	if err := lockDocument(ctx, tx, userID, documentID); err != nil {
		return Version{}, err
	}

	version, err := getVersionTx(ctx, tx, documentID, versionID)
	if err != nil {
		return Version{}, err
	}
	if version.IsActive {
		if err := tx.Commit(); err != nil {
			return Version{}, err
		}
		return version, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE summary_versions SET is_active = FALSE WHERE document_id = $1 AND is_active`, documentID); err != nil {
		return Version{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE summary_versions SET is_active = TRUE WHERE id = $1`, versionID); err != nil {
		return Version{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET summary = $1 WHERE id = $2`, version.SummaryText, documentID); err != nil {
		return Version{}, err
	}

	if err := tx.Commit(); err != nil {
		return Version{}, err
	}
	version.IsActive = true
	return version, nil
}

// Delete removes a non-active version.
func (r *PGRepo) Delete(ctx context.Context, userID, documentID, versionID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := lockDocument(ctx, tx, userID, documentID); err != nil {
		return err
	}

	version, err := getVersionTx(ctx, tx, documentID, versionID)
	if err != nil {
		return err
	}
	if version.IsActive {
		return ErrActiveVersion
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM summary_versions WHERE id = $1 AND document_id = $2`, versionID, documentID); err != nil {
		return err
	}
	return tx.Commit()
}

var _ Repo = (*PGRepo)(nil)

// lockDocument takes the document row lock, serializing version writes per
// document, and verifies ownership.
func lockDocument(ctx context.Context, tx *sql.Tx, userID, documentID string) error {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM documents WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL FOR UPDATE`, documentID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func getVersionTx(ctx context.Context, tx *sql.Tx, documentID, versionID string) (Version, error) {
	const query = `
SELECT id, document_id, version_number, summary_text, processing_options, is_active, created_at
FROM summary_versions
WHERE id = $1 AND document_id = $2
LIMIT 1`
	var v Version
	var optionsPayload []byte
	err := tx.QueryRowContext(ctx, query, versionID, documentID).Scan(
		&v.ID,
		&v.DocumentID,
		&v.VersionNumber,
		&v.SummaryText,
		&optionsPayload,
		&v.IsActive,
		&v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Version{}, ErrNotFound
		}
		return Version{}, err
	}
	if len(optionsPayload) > 0 {
		if err := json.Unmarshal(optionsPayload, &v.ProcessingOptions); err != nil {
			// keep empty
		}
	}
	return v, nil
}

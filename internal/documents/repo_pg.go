package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document row in the pending state.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    user_id,
    original_filename,
    mime_type,
    size_bytes,
    storage_key,
    processed,
    processing_options,
    is_favorite,
    tags,
    client_name,
    policy_reference,
    uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	optionsPayload, err := marshalJSONB(doc.ProcessingOptions)
	if err != nil {
		return err
	}
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsPayload, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.UserID,
		doc.OriginalFilename,
		doc.MimeType,
		doc.SizeBytes,
		doc.StorageKey,
		doc.Processed,
		optionsPayload,
		doc.IsFavorite,
		tagsPayload,
		doc.ClientName,
		doc.PolicyReference,
		doc.UploadedAt,
	)
	return err
}

// GetByID fetches a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	const query = `
SELECT id, user_id, original_filename, mime_type, size_bytes, storage_key, raw_text_key,
       processed, processing_error, extracted_data, summary, processing_options,
       is_favorite, tags, client_name, policy_reference, export_count, last_viewed_at, uploaded_at
FROM documents
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL
LIMIT 1`
	var doc Document
	var rawTextKey sql.NullString
	var processingError sql.NullString
	var extractedData sql.NullString
	var summary sql.NullString
	var optionsPayload []byte
	var tagsPayload []byte
	var lastViewedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, userID, documentID).Scan(
		&doc.ID,
		&doc.UserID,
		&doc.OriginalFilename,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.StorageKey,
		&rawTextKey,
		&doc.Processed,
		&processingError,
		&extractedData,
		&summary,
		&optionsPayload,
		&doc.IsFavorite,
		&tagsPayload,
		&doc.ClientName,
		&doc.PolicyReference,
		&doc.ExportCount,
		&lastViewedAt,
		&doc.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if rawTextKey.Valid {
		doc.RawTextKey = rawTextKey.String
	}
	if processingError.Valid {
		doc.ProcessingError = &processingError.String
	}
	if extractedData.Valid {
		var data PolicyData
		if err := json.Unmarshal([]byte(extractedData.String), &data); err == nil {
			doc.ExtractedData = &data
		}
	}
	if summary.Valid {
		doc.Summary = &summary.String
	}
	if len(optionsPayload) > 0 {
		if err := json.Unmarshal(optionsPayload, &doc.ProcessingOptions); err != nil {
			// keep empty
		}
	}
	doc.Tags = []string{}
	if len(tagsPayload) > 0 {
		if err := json.Unmarshal(tagsPayload, &doc.Tags); err != nil {
			doc.Tags = []string{}
		}
	}
	if lastViewedAt.Valid {
		doc.LastViewedAt = &lastViewedAt.Time
	}
	return doc, nil
}

// ListByUser lists documents ordered newest-first with optional filters.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Document, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
SELECT id, user_id, original_filename, mime_type, size_bytes, storage_key, raw_text_key,
       processed, processing_error, extracted_data, summary, processing_options,
       is_favorite, tags, client_name, policy_reference, export_count, last_viewed_at, uploaded_at
FROM documents
WHERE user_id = $1 AND deleted_at IS NULL`
	args := []any{userID}
	if filter.FavoriteOnly {
		query += ` AND is_favorite = TRUE`
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		query += fmt.Sprintf(` AND tags ? $%d`, len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(`
ORDER BY uploaded_at DESC
LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var doc Document
		var rawTextKey sql.NullString
		var processingError sql.NullString
		var extractedData sql.NullString
		var summary sql.NullString
		var optionsPayload []byte
		var tagsPayload []byte
		var lastViewedAt sql.NullTime
		if err := rows.Scan(
			&doc.ID,
			&doc.UserID,
			&doc.OriginalFilename,
			&doc.MimeType,
			&doc.SizeBytes,
			&doc.StorageKey,
			&rawTextKey,
			&doc.Processed,
			&processingError,
			&extractedData,
			&summary,
			&optionsPayload,
			&doc.IsFavorite,
			&tagsPayload,
			&doc.ClientName,
			&doc.PolicyReference,
			&doc.ExportCount,
			&lastViewedAt,
			&doc.UploadedAt,
		); err != nil {
			return nil, err
		}
		if rawTextKey.Valid {
			doc.RawTextKey = rawTextKey.String
		}
		if processingError.Valid {
			doc.ProcessingError = &processingError.String
		}
		if extractedData.Valid {
			var data PolicyData
			if err := json.Unmarshal([]byte(extractedData.String), &data); err == nil {
				doc.ExtractedData = &data
			}
		}
		if summary.Valid {
			doc.Summary = &summary.String
		}
		if len(optionsPayload) > 0 {
			if err := json.Unmarshal(optionsPayload, &doc.ProcessingOptions); err != nil {
				// keep empty
			}
		}
		doc.Tags = []string{}
		if len(tagsPayload) > 0 {
			if err := json.Unmarshal(tagsPayload, &doc.Tags); err != nil {
				doc.Tags = []string{}
			}
		}
		if lastViewedAt.Valid {
			doc.LastViewedAt = &lastViewedAt.Time
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// MarkProcessed commits a successful extraction in one update.
func (r *PGRepo) MarkProcessed(ctx context.Context, userID, documentID string, data PolicyData, summary string, options ProcessingOptions) error {
	const query = `
UPDATE documents
SET processed = TRUE,
    processing_error = NULL,
    extracted_data = $3,
    summary = $4,
    processing_options = $5
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	dataPayload, err := marshalJSONB(data)
	if err != nil {
		return err
	}
	optionsPayload, err := marshalJSONB(options)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, userID, documentID, dataPayload, summary, optionsPayload)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records a terminal processing failure.
func (r *PGRepo) MarkFailed(ctx context.Context, userID, documentID, message string) error {
	const query = `
UPDATE documents
SET processed = TRUE,
    processing_error = $3,
    extracted_data = NULL,
    summary = NULL
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, documentID, message)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRawTextKey stores the derived text object key for a document.
func (r *PGRepo) SetRawTextKey(ctx context.Context, userID, documentID, key string) error {
	const query = `
UPDATE documents
SET raw_text_key = $3
WHERE user_id = $1 AND id = $2 AND raw_text_key IS NULL`
	_, err := r.DB.ExecContext(ctx, query, userID, documentID, key)
	return err
}

// SetSummary rewrites the active summary mirror.
func (r *PGRepo) SetSummary(ctx context.Context, userID, documentID, summary string) error {
	const query = `
UPDATE documents
SET summary = $3
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, documentID, summary)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFavorite updates the favorite flag.
func (r *PGRepo) SetFavorite(ctx context.Context, userID, documentID string, favorite bool) error {
	const query = `
UPDATE documents
SET is_favorite = $3
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, documentID, favorite)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTags replaces the ordered tag list.
func (r *PGRepo) SetTags(ctx context.Context, userID, documentID string, tags []string) error {
	const query = `
UPDATE documents
SET tags = $3
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	if tags == nil {
		tags = []string{}
	}
	payload, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, userID, documentID, payload)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetClientInfo updates the client name and policy reference labels.
func (r *PGRepo) SetClientInfo(ctx context.Context, userID, documentID, clientName, policyReference string) error {
	const query = `
UPDATE documents
SET client_name = $3,
    policy_reference = $4
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, documentID, clientName, policyReference)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchViewed stamps the last viewed time.
func (r *PGRepo) TouchViewed(ctx context.Context, userID, documentID string, viewedAt time.Time) error {
	const query = `
UPDATE documents
SET last_viewed_at = $3
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	_, err := r.DB.ExecContext(ctx, query, userID, documentID, viewedAt)
	return err
}

// IncrementExportCount bumps the export counter.
func (r *PGRepo) IncrementExportCount(ctx context.Context, userID, documentID string) error {
	const query = `
UPDATE documents
SET export_count = export_count + 1
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, documentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a document deleted without removing the row.
func (r *PGRepo) SoftDelete(ctx context.Context, userID, documentID string) error {
	const query = `
UPDATE documents
SET deleted_at = NOW()
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, userID, documentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ DocumentsRepo = (*PGRepo)(nil)

func marshalJSONB(value any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(value)
}

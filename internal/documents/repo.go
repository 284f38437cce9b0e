package documents

import (
	"context"
	"time"
)

// ListFilter narrows ListByUser results. Zero value lists everything newest-first.
type ListFilter struct {
	FavoriteOnly bool
	Tag          string
	Limit        int
	Offset       int
}

// DocumentsRepo defines persistence operations for policy documents.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Document, error)
	// MarkProcessed commits the extraction result in a single row update:
	// extracted_data, summary, processing_options, processed=true, error cleared.
	MarkProcessed(ctx context.Context, userID, documentID string, data PolicyData, summary string, options ProcessingOptions) error
	// MarkFailed records a terminal processing failure: processed=true plus the
	// error message, with extracted_data and summary cleared.
	MarkFailed(ctx context.Context, userID, documentID, message string) error
	SetRawTextKey(ctx context.Context, userID, documentID, key string) error
	// SetSummary rewrites the active summary mirror. The Postgres summaries
	// repo does this inside its own transaction; this method serves the
	// in-memory path.
	SetSummary(ctx context.Context, userID, documentID, summary string) error
	SetFavorite(ctx context.Context, userID, documentID string, favorite bool) error
	SetTags(ctx context.Context, userID, documentID string, tags []string) error
	SetClientInfo(ctx context.Context, userID, documentID, clientName, policyReference string) error
	TouchViewed(ctx context.Context, userID, documentID string, viewedAt time.Time) error
	IncrementExportCount(ctx context.Context, userID, documentID string) error
	SoftDelete(ctx context.Context, userID, documentID string) error
}

package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of DocumentsRepo.
type MemoryRepo struct {
	mu      sync.RWMutex
	data    map[string][]Document // userId -> documents
	deleted map[string]bool       // documentId -> soft deleted
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data:    make(map[string][]Document),
		deleted: make(map[string]bool),
	}
}

// Create stores a new document for a user.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	r.data[doc.UserID] = append(r.data[doc.UserID], doc)
	return nil
}

// GetByID returns a document by ID for a user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := r.data[userID]
	for i := range docs {
		if docs[i].ID == documentID && !r.deleted[documentID] {
			return docs[i], nil
		}
	}
	return Document{}, ErrNotFound
}

// ListByUser returns documents for a user, newest first, honoring the filter.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, filter ListFilter) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

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

	r.mu.RLock()
	userDocs := r.data[userID]
	docs := make([]Document, 0, len(userDocs))
	for i := range userDocs {
		doc := userDocs[i]
		if r.deleted[doc.ID] {
			continue
		}
		if filter.FavoriteOnly && !doc.IsFavorite {
			continue
		}
		if filter.Tag != "" && !containsTag(doc.Tags, filter.Tag) {
			continue
		}
		docs = append(docs, doc)
	}
	r.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].UploadedAt.After(docs[j].UploadedAt)
	})

	if offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if offset+limit < end {
		end = offset + limit
	}
	return docs[offset:end], nil
}

// MarkProcessed commits a successful extraction.
func (r *MemoryRepo) MarkProcessed(ctx context.Context, userID, documentID string, data PolicyData, summary string, options ProcessingOptions) error {
	return r.update(ctx, userID, documentID, func(doc *Document) {
		dataCopy := data
		summaryCopy := summary
		doc.Processed = true
		doc.ProcessingError = nil
		doc.ExtractedData = &dataCopy
		doc.Summary = &summaryCopy
		doc.ProcessingOptions = options
	})
}

// MarkFailed records a terminal processing failure.
func (r *MemoryRepo) MarkFailed(ctx context.Context, userID, documentID, message string) error {
	return r.update(ctx, userID, documentID, func(doc *Document) {
		messageCopy := message
		doc.Processed = true
		doc.ProcessingError = &messageCopy
		doc.ExtractedData = nil
		doc.Summary = nil
	})
}

// SetRawTextKey stores the derived text object key when not already set.
func (r *MemoryRepo) SetRawTextKey(ctx context.Context, userID, documentID, key string) error {
	err := r.update(ctx, userID, documentID, func(doc *Document) {
		if doc.RawTextKey == "" {
			doc.RawTextKey = key
		}
	})
	if err == ErrNotFound {
		return nil
	}
	return err
}

// SetSummary rewrites the active summary mirror.
func (r *MemoryRepo) SetSummary(ctx context.Context, userID, documentID, summary string) error {
	return r.update(ctx, userID, documentID, func(doc *Document) {
		summaryCopy := summary
		doc.Summary = &summaryCopy
	})
}

// SetFavorite updates the favorite flag.
func (r *MemoryRepo) SetFavorite(ctx context.Context, userID, documentID string, favorite bool) error {
	return r.update(ctx, userID, documentID, func(doc *Document) {
		doc.IsFavorite = favorite
	})
}

// SetTags replaces the ordered tag list.
func (r *MemoryRepo) SetTags(ctx context.Context, userID, documentID string, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	tagsCopy := make([]string, len(tags))
	copy(tagsCopy, tags)
	return r.update(ctx, userID, documentID, func(doc *Document) {
		doc.Tags = tagsCopy
	})
}

// SetClientInfo updates the client name and policy reference labels.
func (r *MemoryRepo) SetClientInfo(ctx context.Context, userID, documentID, clientName, policyReference string) error {
	return r.update(ctx, userID, documentID, func(doc *Document) {
		doc.ClientName = clientName
		doc.PolicyReference = policyReference
	})
}

// TouchViewed stamps the last viewed time.
func (r *MemoryRepo) TouchViewed(ctx context.Context, userID, documentID string, viewedAt time.Time) error {
	return r.update(ctx, userID, documentID, func(doc *Document) {
		viewedCopy := viewedAt
		doc.LastViewedAt = &viewedCopy
	})
}

// IncrementExportCount bumps the export counter.
func (r *MemoryRepo) IncrementExportCount(ctx context.Context, userID, documentID string) error {
	return r.update(ctx, userID, documentID, func(doc *Document) {
		doc.ExportCount++
	})
}

// SoftDelete hides a document from all reads without removing it.
func (r *MemoryRepo) SoftDelete(ctx context.Context, userID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.data[userID]
	for i := range docs {
		if docs[i].ID == documentID && !r.deleted[documentID] {
			r.deleted[documentID] = true
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) update(ctx context.Context, userID, documentID string, mutate func(*Document)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := r.data[userID]
	for i := range docs {
		if docs[i].ID == documentID && !r.deleted[documentID] {
			mutate(&docs[i])
			r.data[userID] = docs
			return nil
		}
	}
	return ErrNotFound
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

var _ DocumentsRepo = (*MemoryRepo)(nil)

package summaries

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"policydesk-backend/internal/documents"
)

// MemoryRepo is an in-memory implementation of Repo. It mirrors the active
// summary through the documents repo, matching what the Postgres repo does
// inside its transaction.
type MemoryRepo struct {
	mu    sync.Mutex
	byDoc map[string][]Version
	docs  documents.DocumentsRepo
}

// NewMemoryRepo constructs a MemoryRepo backed by the given documents repo.
func NewMemoryRepo(docs documents.DocumentsRepo) *MemoryRepo {
	return &MemoryRepo{
		byDoc: make(map[string][]Version),
		docs:  docs,
	}
}

// CreateActive records a new active version and rewrites the document mirror.
func (r *MemoryRepo) CreateActive(ctx context.Context, userID, documentID, summaryText string, options documents.ProcessingOptions) (Version, error) {
	if err := r.checkDocument(ctx, userID, documentID); err != nil {
		return Version{}, err
	}

	r.mu.Lock()
	versions := r.byDoc[documentID]
	next := 0
	for i := range versions {
		if versions[i].VersionNumber > next {
			next = versions[i].VersionNumber
		}
		versions[i].IsActive = false
	}
	next++
	version := Version{
		ID:                uuid.NewString(),
		DocumentID:        documentID,
		VersionNumber:     next,
		SummaryText:       summaryText,
		ProcessingOptions: options,
		IsActive:          true,
		CreatedAt:         time.Now().UTC(),
	}
	r.byDoc[documentID] = append(versions, version)
	r.mu.Unlock()

	if err := r.docs.SetSummary(ctx, userID, documentID, summaryText); err != nil {
		return Version{}, err
	}
	return version, nil
}

// ListByDocument returns versions newest-first.
func (r *MemoryRepo) ListByDocument(ctx context.Context, userID, documentID string) ([]Version, error) {
	if err := r.checkDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	versions := r.byDoc[documentID]
	out := make([]Version, len(versions))
	copy(out, versions)
	sort.Slice(out, func(i, j int) bool {
		return out[i].VersionNumber > out[j].VersionNumber
	})
	return out, nil
}

// GetByID returns one version scoped to a user's document.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID, versionID string) (Version, error) {
	if err := r.checkDocument(ctx, userID, documentID); err != nil {
		return Version{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.byDoc[documentID] {
		if v.ID == versionID {
			return v, nil
		}
	}
	return Version{}, ErrNotFound
}

// Activate flips the active flag to the given version and rewrites the mirror.
func (r *MemoryRepo) Activate(ctx context.Context, userID, documentID, versionID string) (Version, error) {
	if err := r.checkDocument(ctx, userID, documentID); err != nil {
		return Version{}, err
	}

	r.mu.Lock()
	versions := r.byDoc[documentID]
	target := -1
	for i := range versions {
		if versions[i].ID == versionID {
			target = i
			break
		}
	}
	if target == -1 {
		r.mu.Unlock()
		return Version{}, ErrNotFound
	}
	for i := range versions {
		versions[i].IsActive = i == target
	}
	version := versions[target]
	r.byDoc[documentID] = versions
	r.mu.Unlock()

	if err := r.docs.SetSummary(ctx, userID, documentID, version.SummaryText); err != nil {
		return Version{}, err
	}
	return version, nil
}

// Delete removes a non-active version.
func (r *MemoryRepo) Delete(ctx context.Context, userID, documentID, versionID string) error {
	if err := r.checkDocument(ctx, userID, documentID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	versions := r.byDoc[documentID]
	for i := range versions {
		if versions[i].ID == versionID {
			if versions[i].IsActive {
				return ErrActiveVersion
			}
			r.byDoc[documentID] = append(versions[:i], versions[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) checkDocument(ctx context.Context, userID, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := r.docs.GetByID(ctx, userID, documentID); err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

var _ Repo = (*MemoryRepo)(nil)

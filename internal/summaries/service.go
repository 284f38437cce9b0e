package summaries

import (
	"context"
	"errors"
	"strings"

	"policydesk-backend/internal/documents"
)

// Service contains business logic for summary versions and the editor save
// path.
type Service struct {
	Repo Repo
	Docs documents.DocumentsRepo
}

// SaveEdit stores edited summary text as a new active version. Returns the
// refreshed document and whether a version was created: saving text identical
// to the active summary is a no-op.
func (s *Service) SaveEdit(ctx context.Context, userID, documentID, text string) (documents.Document, bool, error) {
	if strings.TrimSpace(text) == "" {
		return documents.Document{}, false, ErrEmptySummary
	}

	doc, err := s.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return documents.Document{}, false, ErrNotFound
		}
		return documents.Document{}, false, err
	}
	if doc.Summary == nil {
		return documents.Document{}, false, ErrNotReady
	}
	if *doc.Summary == text {
		return doc, false, nil
	}

	if _, err := s.Repo.CreateActive(ctx, userID, documentID, text, doc.ProcessingOptions); err != nil {
		return documents.Document{}, false, err
	}

	updated, err := s.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		return documents.Document{}, false, err
	}
	return updated, true, nil
}

// History returns the document's versions newest-first.
func (s *Service) History(ctx context.Context, userID, documentID string) ([]Version, error) {
	if _, err := s.Docs.GetByID(ctx, userID, documentID); err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Repo.ListByDocument(ctx, userID, documentID)
}

// Activate makes the given version active and returns the refreshed document.
func (s *Service) Activate(ctx context.Context, userID, documentID, versionID string) (documents.Document, error) {
	if _, err := s.Repo.Activate(ctx, userID, documentID, versionID); err != nil {
		return documents.Document{}, err
	}
	doc, err := s.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return documents.Document{}, ErrNotFound
		}
		return documents.Document{}, err
	}
	return doc, nil
}

// DeleteVersion removes a non-active version.
func (s *Service) DeleteVersion(ctx context.Context, userID, documentID, versionID string) error {
	return s.Repo.Delete(ctx, userID, documentID, versionID)
}

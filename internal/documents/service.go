package documents

import (
	"context"
	"strings"
	"time"
)

// Service contains business logic for stored documents. Upload and
// re-extraction live in the processing package; this service covers the
// library operations an agent performs on existing documents.
type Service struct {
	Repo DocumentsRepo
}

// Get returns a document and stamps its last viewed time.
func (s *Service) Get(ctx context.Context, userID, documentID string) (Document, error) {
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return Document{}, err
	}
	now := time.Now().UTC()
	if err := s.Repo.TouchViewed(ctx, userID, documentID, now); err == nil {
		doc.LastViewedAt = &now
	}
	return doc, nil
}

// List returns the user's documents newest-first.
func (s *Service) List(ctx context.Context, userID string, filter ListFilter) ([]Document, error) {
	return s.Repo.ListByUser(ctx, userID, filter)
}

// Delete soft-deletes a document. The stored objects are kept.
func (s *Service) Delete(ctx context.Context, userID, documentID string) error {
	return s.Repo.SoftDelete(ctx, userID, documentID)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *Service) ToggleFavorite(ctx context.Context, userID, documentID string) (bool, error) {
	doc, err := s.Repo.GetByID(ctx, userID, documentID)
	if err != nil {
		return false, err
	}
	next := !doc.IsFavorite
	if err := s.Repo.SetFavorite(ctx, userID, documentID, next); err != nil {
		return false, err
	}
	return next, nil
}

// UpdateTags replaces the tag list, dropping blank entries but keeping order.
func (s *Service) UpdateTags(ctx context.Context, userID, documentID string, tags []string) (Document, error) {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if err := s.Repo.SetTags(ctx, userID, documentID, cleaned); err != nil {
		return Document{}, err
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

// UpdateClientInfo sets the client name and policy reference labels.
func (s *Service) UpdateClientInfo(ctx context.Context, userID, documentID, clientName, policyReference string) (Document, error) {
	clientName = strings.TrimSpace(clientName)
	policyReference = strings.TrimSpace(policyReference)
	if err := s.Repo.SetClientInfo(ctx, userID, documentID, clientName, policyReference); err != nil {
		return Document{}, err
	}
	return s.Repo.GetByID(ctx, userID, documentID)
}

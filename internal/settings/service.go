package settings

import (
	"context"
	"errors"
	"strings"
)

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Get returns the stored settings, or the defaults before the first save.
func (s *Service) Get(ctx context.Context, userID string) (Settings, error) {
	if s == nil || s.Repo == nil {
		return Settings{}, errors.New("settings service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return Settings{}, errors.New("user id is required")
	}
	st, err := s.Repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Defaults(userID), nil
		}
		return Settings{}, err
	}
	return st, nil
}

// Update normalizes and persists the full settings record, returning the
// stored state.
func (s *Service) Update(ctx context.Context, userID string, incoming Settings) (Settings, error) {
	if s == nil || s.Repo == nil {
		return Settings{}, errors.New("settings service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return Settings{}, errors.New("user id is required")
	}
	incoming.UserID = userID
	incoming = incoming.Normalize()
	if err := s.Repo.Put(ctx, incoming); err != nil {
		return Settings{}, err
	}
	return s.Repo.Get(ctx, userID)
}

package settings

import "context"

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "settings not found" }

type Repo interface {
	Get(ctx context.Context, userID string) (Settings, error)
	Put(ctx context.Context, s Settings) error
}

package settings

import (
	"context"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Settings
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Settings)}
}

func (r *MemoryRepo) Get(ctx context.Context, userID string) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.data[userID]
	if !ok {
		return Settings{}, ErrNotFound
	}
	return st, nil
}

func (r *MemoryRepo) Put(ctx context.Context, st Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[st.UserID]
	now := time.Now().UTC()
	if !ok {
		st.CreatedAt = now
	} else {
		st.CreatedAt = existing.CreatedAt
	}
	st.UpdatedAt = now
	r.data[st.UserID] = st
	return nil
}

var _ Repo = (*MemoryRepo)(nil)

package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/models"
)

// MemoryRepository is an in-memory Repository for tests and local
// development.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Media
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]*models.Media)}
}

func (r *MemoryRepository) Create(_ context.Context, media *models.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *media
	r.items[media.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	media, ok := r.items[id]
	if !ok {
		return nil, ErrMediaNotFound
	}
	clone := *media
	return &clone, nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string) ([]*models.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*models.Media, 0)
	for _, media := range r.items {
		if media.UserID == userID {
			clone := *media
			items = append(items, &clone)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r *MemoryRepository) DeleteByIDs(_ context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := r.items[id]; ok {
			delete(r.items, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ Repository = (*MemoryRepository)(nil)

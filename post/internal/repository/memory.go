package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/models"
)

// MemoryRepository is an in-memory Repository for tests and local
// development.
type MemoryRepository struct {
	mu    sync.RWMutex
	posts map[string]*models.Post
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{posts: make(map[string]*models.Post)}
}

func (r *MemoryRepository) Create(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *post
	r.posts[post.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	post, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	clone := *post
	return &clone, nil
}

func (r *MemoryRepository) List(_ context.Context, page, limit int) ([]*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*models.Post, 0, len(r.posts))
	for _, post := range r.posts {
		clone := *post
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	start := (page - 1) * limit
	if start >= len(all) {
		return []*models.Post{}, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *MemoryRepository) Delete(_ context.Context, id, userID string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.posts[id]
	if !ok || post.UserID != userID {
		return nil, ErrPostNotFound
	}
	delete(r.posts, id)
	return post, nil
}

var _ Repository = (*MemoryRepository)(nil)

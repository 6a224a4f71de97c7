package repository

import (
	"context"
	"errors"

	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/models"
)

var ErrPostNotFound = errors.New("post not found")

type Repository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List returns one page of posts, newest first. page is 1-based.
	List(ctx context.Context, page, limit int) ([]*models.Post, error)
	// Delete removes a post only when userID owns it and returns the
	// removed row. A missing row and an ownership mismatch are both
	// ErrPostNotFound so callers cannot probe for other users' posts.
	Delete(ctx context.Context, id, userID string) (*models.Post, error)
}

package repository

import (
	"context"
	"errors"

	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/models"
)

var ErrMediaNotFound = errors.New("media not found")

type Repository interface {
	Create(ctx context.Context, media *models.Media) error
	GetByID(ctx context.Context, id string) (*models.Media, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Media, error)
	// DeleteByIDs removes the given media records and returns how many
	// existed. Ids that are already gone are skipped, so replaying a
	// cleanup converges instead of failing.
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

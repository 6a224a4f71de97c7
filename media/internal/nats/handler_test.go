package nats

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsefeed-systems/pulsefeed-stack/common/events"
	"github.com/pulsefeed-systems/pulsefeed-stack/common/messaging"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/models"
	"github.com/pulsefeed-systems/pulsefeed-stack/media/internal/repository"
)

func seedMedia(t *testing.T, repo *repository.MemoryRepository, ids ...string) {
	t.Helper()

	for _, id := range ids {
		require.NoError(t, repo.Create(context.Background(), &models.Media{
			ID:           id,
			UserID:       "user-1",
			OriginalName: id + ".jpg",
			URL:          "https://cdn.example.com/" + id,
			CreatedAt:    time.Now().UTC(),
		}))
	}
}

func deletedMessage(t *testing.T, postID string, mediaIDs []string) *messaging.Message {
	t.Helper()

	data, err := events.Encode(events.PostDeleted{
		PostID:   postID,
		UserID:   "user-1",
		MediaIDs: mediaIDs,
	})
	require.NoError(t, err)
	return &messaging.Message{Subject: messaging.SubjectPostDeleted, Data: data}
}

func TestHandlePostDeletedRemovesReferencedMedia(t *testing.T) {
	repo := repository.NewMemoryRepository()
	h := NewHandler(nil, repo)
	ctx := context.Background()

	seedMedia(t, repo, "media-1", "media-2", "media-3")

	msg := deletedMessage(t, "post-1", []string{"media-1", "media-2"})
	require.NoError(t, h.handleMessage(ctx, msg))

	_, err := repo.GetByID(ctx, "media-1")
	assert.ErrorIs(t, err, repository.ErrMediaNotFound)
	_, err = repo.GetByID(ctx, "media-2")
	assert.ErrorIs(t, err, repository.ErrMediaNotFound)

	// Media not referenced by the post survives.
	_, err = repo.GetByID(ctx, "media-3")
	assert.NoError(t, err)
}

func TestHandlePostDeletedIsIdempotent(t *testing.T) {
	repo := repository.NewMemoryRepository()
	h := NewHandler(nil, repo)
	ctx := context.Background()

	seedMedia(t, repo, "media-1")

	msg := deletedMessage(t, "post-1", []string{"media-1"})
	require.NoError(t, h.handleMessage(ctx, msg))
	require.NoError(t, h.handleMessage(ctx, msg), "redelivery finds nothing left and still succeeds")
}

func TestHandlePostDeletedWithoutMedia(t *testing.T) {
	repo := repository.NewMemoryRepository()
	h := NewHandler(nil, repo)

	msg := deletedMessage(t, "post-1", []string{})
	assert.NoError(t, h.handleMessage(context.Background(), msg))
}

func TestHandleMalformedPayloadFails(t *testing.T) {
	repo := repository.NewMemoryRepository()
	h := NewHandler(nil, repo)
	seedMedia(t, repo, "media-1")

	for _, data := range [][]byte{
		[]byte("not json"),
		[]byte(`{"version":1,"produced_at":"2026-08-29T00:00:00Z","payload":{"mediaIds":["media-1"]}}`),
	} {
		msg := &messaging.Message{Subject: messaging.SubjectPostDeleted, Data: data}
		assert.Error(t, h.handleMessage(context.Background(), msg))
	}

	// Nothing was deleted on the failed paths.
	_, err := repo.GetByID(context.Background(), "media-1")
	assert.NoError(t, err)
}

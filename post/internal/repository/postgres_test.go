package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pulsefeed-systems/pulsefeed-stack/post/internal/models"
)

// setupTestDatabase creates a PostgreSQL testcontainer and runs migrations.
func setupTestDatabase(t *testing.T) *PostgresRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("pulsefeed_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, runMigrations(connStr))

	repo, err := NewPostgresRepository(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	return repo
}

func runMigrations(connStr string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	migrationPath := filepath.Join("..", "..", "migrations", "0001_create_posts.up.sql")
	migrationSQL, err := os.ReadFile(migrationPath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	if _, err := db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	return nil
}

func testPost(userID, content string) *models.Post {
	return &models.Post{
		ID:        newTestID(),
		UserID:    userID,
		Content:   content,
		MediaIDs:  []string{},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

var testIDCounter int

func newTestID() string {
	testIDCounter++
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", testIDCounter)
}

func TestCreateAndGetPost(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	post := testPost("user-1", "hello world")
	post.MediaIDs = []string{"media-1", "media-2"}
	require.NoError(t, repo.Create(ctx, post))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "hello world", got.Content)
	assert.Equal(t, []string{"media-1", "media-2"}, got.MediaIDs)
	assert.WithinDuration(t, post.CreatedAt, got.CreatedAt, time.Second)
}

func TestGetMissingPost(t *testing.T) {
	repo := setupTestDatabase(t)

	_, err := repo.GetByID(context.Background(), newTestID())
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestListPostsNewestFirst(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		post := testPost("user-1", fmt.Sprintf("post %d", i))
		post.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, post))
	}

	page, err := repo.List(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "post 4", page[0].Content)
	assert.Equal(t, "post 2", page[2].Content)

	page, err = repo.List(ctx, 2, 3)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "post 1", page[0].Content)

	page, err = repo.List(ctx, 3, 3)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestDeletePostOwnerOnly(t *testing.T) {
	repo := setupTestDatabase(t)
	ctx := context.Background()

	post := testPost("user-1", "mine")
	post.MediaIDs = []string{"media-9"}
	require.NoError(t, repo.Create(ctx, post))

	// Someone else's delete looks exactly like a missing post.
	_, err := repo.Delete(ctx, post.ID, "user-2")
	assert.ErrorIs(t, err, ErrPostNotFound)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Content)

	deleted, err := repo.Delete(ctx, post.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"media-9"}, deleted.MediaIDs)

	_, err = repo.GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	// Deleting again is a clean not-found.
	_, err = repo.Delete(ctx, post.ID, "user-1")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

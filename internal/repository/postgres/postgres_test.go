package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/visions/internal/apperror"
	"github.com/sakif/visions/internal/model"
)

// newTestDB connects to the database named by GALLERY_TEST_POSTGRES_URL and
// empties the images table. The test is skipped when the variable is unset.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("GALLERY_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("GALLERY_TEST_POSTGRES_URL not set")
	}

	db, err := New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.pool.Exec(context.Background(), `DELETE FROM images`)
	require.NoError(t, err)
	return db
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	require.NotNil(t, nullable("x"))
	assert.Equal(t, "x", *nullable("x"))
}

func TestCRUDLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.Insert(ctx, model.ImageInput{URL: "https://x/y.png", Title: "T", Description: "D"})
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	second, err := db.Insert(ctx, model.ImageInput{URL: "https://x/z.png"})
	require.NoError(t, err)
	assert.Greater(t, second.ID, created.ID)

	images, err := db.List(ctx)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, second.ID, images[0].ID, "newest first")
	assert.Equal(t, "", images[0].Title)

	found, err := db.Update(ctx, created.ID, model.ImageInput{URL: "https://x/new.png", Title: "N"})
	require.NoError(t, err)
	assert.True(t, found)

	got, err := db.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://x/new.png", got.URL)
	assert.Equal(t, "N", got.Title)
	assert.Equal(t, "", got.Description)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))

	found, err = db.Update(ctx, 1<<40, model.ImageInput{URL: "https://x/none.png"})
	require.NoError(t, err)
	assert.False(t, found)

	found, err = db.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, found)

	_, err = db.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	third, err := db.Insert(ctx, model.ImageInput{URL: "https://x/3.png"})
	require.NoError(t, err)
	assert.Greater(t, third.ID, second.ID, "ids are never reused")
}

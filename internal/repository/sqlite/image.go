package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/visions/internal/apperror"
	"github.com/sakif/visions/internal/model"
	"github.com/sakif/visions/internal/repository"
)

var _ repository.ImageRepository = (*DB)(nil)

const (
	listImagesQuery = `
		SELECT id, url, title, description, created_at
		FROM images
		ORDER BY created_at DESC, id DESC`

	getImageQuery = `
		SELECT id, url, title, description, created_at
		FROM images
		WHERE id = ?`

	insertImageQuery = `
		INSERT INTO images (url, title, description, created_at)
		VALUES (?, ?, ?, ?)`

	updateImageQuery = `
		UPDATE images
		SET url = ?, title = ?, description = ?
		WHERE id = ?`

	deleteImageQuery = `DELETE FROM images WHERE id = ?`
)

// List returns every image, newest first. Rows created in the same instant
// come out in reverse insertion order.
func (db *DB) List(ctx context.Context) ([]model.Image, error) {
	rows, err := db.conn.QueryContext(ctx, listImagesQuery)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing images: %w", err)
	}
	defer rows.Close()

	images := make([]model.Image, 0)
	for rows.Next() {
		var row imageRow
		if err := rows.Scan(&row.ID, &row.URL, &row.Title, &row.Description, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning image row: %w", err)
		}
		images = append(images, row.toModel())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating images: %w", err)
	}

	return images, nil
}

// Get returns a single image or apperror.ErrNotFound.
func (db *DB) Get(ctx context.Context, id int64) (*model.Image, error) {
	var row imageRow
	err := db.conn.QueryRowContext(ctx, getImageQuery, id).Scan(
		&row.ID, &row.URL, &row.Title, &row.Description, &row.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("image", id)
		}
		return nil, fmt.Errorf("sqlite: getting image %d: %w", id, err)
	}

	img := row.toModel()
	return &img, nil
}

// Insert stores a new image and returns it with the assigned id and
// creation time.
//
// The timestamp is taken inside the transaction. The pool has a single
// connection, so inserts run one at a time and created_at follows id order.
func (db *DB) Insert(ctx context.Context, in model.ImageInput) (*model.Image, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning insert: %w", err)
	}
	defer tx.Rollback()

	img := &model.Image{
		URL:         in.URL,
		Title:       in.Title,
		Description: in.Description,
		CreatedAt:   time.Now().UTC(),
	}

	result, err := tx.ExecContext(ctx, insertImageQuery,
		img.URL,
		nullString(img.Title),
		nullString(img.Description),
		img.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: inserting image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading inserted id: %w", err)
	}
	img.ID = id

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing insert: %w", err)
	}

	return img, nil
}

// Update replaces url, title and description of the image with the given
// id. id and created_at are never touched. It reports false when no row
// matched.
func (db *DB) Update(ctx context.Context, id int64, in model.ImageInput) (bool, error) {
	result, err := db.conn.ExecContext(ctx, updateImageQuery,
		in.URL,
		nullString(in.Title),
		nullString(in.Description),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: updating image %d: %w", id, err)
	}

	return affected(result)
}

// Delete hard-deletes the image with the given id. It reports false when
// no row matched.
func (db *DB) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := db.conn.ExecContext(ctx, deleteImageQuery, id)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting image %d: %w", id, err)
	}

	return affected(result)
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n > 0, nil
}

// imageRow is the scan target for the images table; title and description
// are nullable.
type imageRow struct {
	ID          int64
	URL         string
	Title       sql.NullString
	Description sql.NullString
	CreatedAt   time.Time
}

func (r imageRow) toModel() model.Image {
	return model.Image{
		ID:          r.ID,
		URL:         r.URL,
		Title:       r.Title.String,
		Description: r.Description.String,
		CreatedAt:   r.CreatedAt,
	}
}

// nullString stores an absent optional field as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

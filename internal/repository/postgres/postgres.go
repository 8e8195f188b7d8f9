// Package postgres implements repository.ImageRepository on PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sakif/visions/internal/apperror"
	"github.com/sakif/visions/internal/model"
	"github.com/sakif/visions/internal/repository"
)

var _ repository.ImageRepository = (*DB)(nil)

// DB implements repository.ImageRepository.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to connString, verifies the connection and ensures the
// schema exists.
func New(ctx context.Context, connString string) (*DB, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.Initialize(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: initializing schema: %w", err)
	}

	return db, nil
}

// Initialize creates the images table if it is missing. BIGSERIAL is backed
// by a sequence, which never hands out a value twice.
func (db *DB) Initialize(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS images (
			id          BIGSERIAL PRIMARY KEY,
			url         TEXT NOT NULL,
			title       TEXT,
			description TEXT,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_images_created_at ON images(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating images table: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

func (db *DB) List(ctx context.Context) ([]model.Image, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, url, title, description, created_at
		FROM images
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing images: %w", err)
	}
	defer rows.Close()

	images := make([]model.Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning image row: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating images: %w", err)
	}

	return images, nil
}

func (db *DB) Get(ctx context.Context, id int64) (*model.Image, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT id, url, title, description, created_at
		FROM images
		WHERE id = $1`, id)

	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("image", id)
		}
		return nil, fmt.Errorf("postgres: getting image %d: %w", id, err)
	}
	return &img, nil
}

func (db *DB) Insert(ctx context.Context, in model.ImageInput) (*model.Image, error) {
	img := &model.Image{
		URL:         in.URL,
		Title:       in.Title,
		Description: in.Description,
	}

	err := db.pool.QueryRow(ctx, `
		INSERT INTO images (url, title, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		in.URL, nullable(in.Title), nullable(in.Description),
	).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: inserting image: %w", err)
	}

	return img, nil
}

func (db *DB) Update(ctx context.Context, id int64, in model.ImageInput) (bool, error) {
	tag, err := db.pool.Exec(ctx, `
		UPDATE images SET url = $1, title = $2, description = $3
		WHERE id = $4`,
		in.URL, nullable(in.Title), nullable(in.Description), id,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: updating image %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (db *DB) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("postgres: deleting image %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanImage(row pgx.Row) (model.Image, error) {
	var (
		img         model.Image
		title, desc *string
	)
	if err := row.Scan(&img.ID, &img.URL, &title, &desc, &img.CreatedAt); err != nil {
		return model.Image{}, err
	}
	if title != nil {
		img.Title = *title
	}
	if desc != nil {
		img.Description = *desc
	}
	return img, nil
}

// nullable maps an absent optional field to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Package repository defines the storage contract for gallery images.
//
// Implementations live in subpackages (sqlite, postgres). Every
// implementation creates its schema idempotently when constructed, assigns
// ids that are never reused, and returns List newest first.
package repository

import (
	"context"

	"github.com/sakif/visions/internal/model"
)

// ImageRepository is the Store.
//
// Update and Delete report whether a row matched. A miss is not an error;
// the caller decides what a miss means.
type ImageRepository interface {
	List(ctx context.Context) ([]model.Image, error)
	Get(ctx context.Context, id int64) (*model.Image, error)
	Insert(ctx context.Context, in model.ImageInput) (*model.Image, error)
	Update(ctx context.Context, id int64, in model.ImageInput) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

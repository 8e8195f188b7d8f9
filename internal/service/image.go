// Package service holds the business rules of the gallery.
//
//	Handler (HTTP) → ImageService (validation, not-found policy, cache) → ImageRepository
//
// The service accepts and returns model types only and reports failures as
// apperror kinds, so it can be driven by any front end.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/visions/internal/apperror"
	"github.com/sakif/visions/internal/cache"
	"github.com/sakif/visions/internal/model"
	"github.com/sakif/visions/internal/repository"
)

// Options tunes an ImageService.
type Options struct {
	// StrictNotFound makes Update and Delete return apperror.ErrNotFound when
	// no image has the id. When false a miss is reported as success.
	StrictNotFound bool

	// Cache, when set, serves List and is invalidated after each mutation.
	Cache cache.ListCache
}

// ImageService handles business logic for gallery images.
type ImageService struct {
	repo     repository.ImageRepository
	logger   *slog.Logger
	validate *validator.Validate
	opts     Options

	// failures counts failed cache invalidations; cleaned is the highest
	// count known to be followed by a successful one.
	failures atomic.Uint64
	cleaned  atomic.Uint64
}

// NewImageService creates an ImageService on top of repo.
func NewImageService(repo repository.ImageRepository, logger *slog.Logger, opts Options) *ImageService {
	return &ImageService{
		repo:     repo,
		logger:   logger,
		validate: validator.New(),
		opts:     opts,
	}
}

// List returns every image, newest first.
//
// With a cache configured the list is read through it. The generation
// returned by the cache read is passed back on write, so a list read before
// a concurrent mutation is never stored after that mutation's invalidation.
// While a previous invalidation has failed the cache is bypassed.
func (s *ImageService) List(ctx context.Context) ([]model.Image, error) {
	useCache := s.cacheUsable(ctx)

	var gen int64
	if useCache {
		images, g, ok, err := s.opts.Cache.Get(ctx)
		switch {
		case err != nil:
			s.logger.Warn("image list cache read failed", slog.String("error", err.Error()))
			useCache = false
		case ok:
			return images, nil
		}
		gen = g
	}

	images, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list images", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing images: %w", err)
	}

	if useCache {
		if err := s.opts.Cache.Set(ctx, gen, images); err != nil {
			s.logger.Warn("image list cache write failed", slog.String("error", err.Error()))
		}
	}

	return images, nil
}

// Get returns one image or apperror.ErrNotFound.
func (s *ImageService) Get(ctx context.Context, id int64) (*model.Image, error) {
	img, err := s.repo.Get(ctx, id)
	if err != nil {
		if apperror.IsStoreFault(err) {
			s.logger.Error("failed to get image",
				slog.Int64("id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}
	return img, nil
}

// Create validates in and stores a new image. The url is required; title
// and description are optional.
func (s *ImageService) Create(ctx context.Context, in model.ImageInput) (*model.Image, error) {
	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	img, err := s.repo.Insert(ctx, in)
	if err != nil {
		s.logger.Error("failed to create image",
			slog.String("url", in.URL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating image: %w", err)
	}

	s.invalidate(ctx)
	s.logger.Info("image created", slog.Int64("id", img.ID), slog.String("url", img.URL))

	return img, nil
}

// Update replaces url, title and description of image id.
func (s *ImageService) Update(ctx context.Context, id int64, in model.ImageInput) error {
	in, err := s.normalize(in)
	if err != nil {
		return err
	}

	found, err := s.repo.Update(ctx, id, in)
	if err != nil {
		s.logger.Error("failed to update image",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("updating image: %w", err)
	}
	if !found {
		return s.miss("update", id)
	}

	s.invalidate(ctx)
	s.logger.Info("image updated", slog.Int64("id", id))
	return nil
}

// Delete removes image id permanently.
func (s *ImageService) Delete(ctx context.Context, id int64) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete image",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting image: %w", err)
	}
	if !found {
		return s.miss("delete", id)
	}

	s.invalidate(ctx)
	s.logger.Info("image deleted", slog.Int64("id", id))
	return nil
}

// Ping reports whether the store is reachable.
func (s *ImageService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// normalize trims every field and checks that a url is present.
func (s *ImageService) normalize(in model.ImageInput) (model.ImageInput, error) {
	in.URL = strings.TrimSpace(in.URL)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "URL" {
			return in, apperror.ValidationFailed("url", "URL is required")
		}
		return in, apperror.ValidationFailed("", err.Error())
	}
	return in, nil
}

// miss applies the not-found policy to an update or delete that matched no row.
func (s *ImageService) miss(op string, id int64) error {
	s.logger.Warn("image not found", slog.String("op", op), slog.Int64("id", id))
	if s.opts.StrictNotFound {
		return apperror.NotFound("image", id)
	}
	return nil
}

// invalidate drops the cached list after a mutation. A failure is counted,
// and the cache is bypassed until a later invalidation succeeds.
func (s *ImageService) invalidate(ctx context.Context) {
	if s.opts.Cache == nil {
		return
	}
	pending := s.failures.Load()
	if err := s.opts.Cache.Invalidate(ctx); err != nil {
		s.failures.Add(1)
		s.logger.Error("image list cache invalidation failed, bypassing cache",
			slog.String("error", err.Error()),
		)
		return
	}
	s.markClean(pending)
}

// cacheUsable reports whether List may use the cache. While failed
// invalidations are outstanding it retries one invalidation per call.
func (s *ImageService) cacheUsable(ctx context.Context) bool {
	if s.opts.Cache == nil {
		return false
	}
	pending := s.failures.Load()
	if s.cleaned.Load() >= pending {
		return true
	}
	if err := s.opts.Cache.Invalidate(ctx); err != nil {
		return false
	}
	s.markClean(pending)
	s.logger.Info("image list cache recovered")
	return true
}

// markClean records that every failure counted up to n was followed by a
// successful invalidation.
func (s *ImageService) markClean(n uint64) {
	for {
		cur := s.cleaned.Load()
		if cur >= n || s.cleaned.CompareAndSwap(cur, n) {
			return
		}
	}
}

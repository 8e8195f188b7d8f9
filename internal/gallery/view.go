// Package gallery holds the state of an interactive gallery front end.
//
// A View keeps the list of images it last fetched, the Browse/Admin mode and
// a single create-or-edit form. It never merges changes locally: after every
// successful mutation it fetches the whole list again, so the last
// successful fetch is always what is shown.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sakif/visions/internal/model"
)

// Mode controls which actions a View offers.
type Mode int

const (
	Browse Mode = iota
	Admin
)

func (m Mode) String() string {
	if m == Admin {
		return "admin"
	}
	return "browse"
}

var (
	ErrBrowseMode   = errors.New("gallery: switch to admin mode first")
	ErrFormClosed   = errors.New("gallery: no form is open")
	ErrUnknownField = errors.New("gallery: unknown form field")
	ErrNoSuchImage  = errors.New("gallery: image is not in the current list")
)

// API is the subset of client.Client a View uses.
type API interface {
	List(ctx context.Context) ([]model.Image, error)
	Create(ctx context.Context, in model.ImageInput) (*model.Image, error)
	Update(ctx context.Context, id int64, in model.ImageInput) error
	Delete(ctx context.Context, id int64) error
}

// Form holds the editable fields of the open form.
type Form struct {
	URL         string
	Title       string
	Description string
}

// State is a copy of everything a View displays.
type State struct {
	Records  []model.Image
	Mode     Mode
	FormOpen bool
	Editing  *model.Image // nil when the form creates a new image
	Form     Form
	Loading  bool
}

// View is safe for concurrent use. API calls run without holding the lock.
type View struct {
	api    API
	logger *slog.Logger

	mu       sync.Mutex
	records  []model.Image
	mode     Mode
	formOpen bool
	editing  *model.Image
	form     Form
	loading  bool
}

// NewView creates a View in Browse mode with no records.
func NewView(api API, logger *slog.Logger) *View {
	return &View{
		api:     api,
		logger:  logger,
		records: make([]model.Image, 0),
	}
}

// State returns a snapshot of the View.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	s := State{
		Records:  append(make([]model.Image, 0, len(v.records)), v.records...),
		Mode:     v.mode,
		FormOpen: v.formOpen,
		Form:     v.form,
		Loading:  v.loading,
	}
	if v.editing != nil {
		img := *v.editing
		s.Editing = &img
	}
	return s
}

// Mount loads the list for the first time. A failed fetch is logged and
// leaves the list empty.
func (v *View) Mount(ctx context.Context) {
	v.Refresh(ctx)
}

// Refresh replaces the records with a fresh list from the API. On failure
// the previous records stay in place. It reports whether the fetch worked.
func (v *View) Refresh(ctx context.Context) bool {
	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()

	images, err := v.api.List(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = false
	if err != nil {
		v.logger.Error("failed to fetch images", slog.String("error", err.Error()))
		return false
	}
	v.records = images
	return true
}

// ToggleMode flips between Browse and Admin. It is local state only.
func (v *View) ToggleMode() Mode {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mode == Browse {
		v.mode = Admin
	} else {
		v.mode = Browse
	}
	return v.mode
}

// OpenCreate opens an empty form for a new image.
func (v *View) OpenCreate() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mode != Admin {
		return ErrBrowseMode
	}
	v.editing = nil
	v.form = Form{}
	v.formOpen = true
	return nil
}

// OpenEdit opens the form pre-filled with the fields of image id, which
// must be in the current list.
func (v *View) OpenEdit(id int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mode != Admin {
		return ErrBrowseMode
	}
	for _, img := range v.records {
		if img.ID == id {
			target := img
			v.editing = &target
			v.form = Form{URL: img.URL, Title: img.Title, Description: img.Description}
			v.formOpen = true
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrNoSuchImage, id)
}

// SetField sets one form field: url, title or description.
func (v *View) SetField(name, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.formOpen {
		return ErrFormClosed
	}
	switch strings.ToLower(name) {
	case "url":
		v.form.URL = value
	case "title":
		v.form.Title = value
	case "description":
		v.form.Description = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// CloseForm discards the form.
func (v *View) CloseForm() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closeFormLocked()
}

func (v *View) closeFormLocked() {
	v.formOpen = false
	v.editing = nil
	v.form = Form{}
}

// Submit sends the form: an update when editing, a create otherwise. On
// success the list is fetched again and the form closes. On failure the
// error is logged and returned and the form stays open.
func (v *View) Submit(ctx context.Context) error {
	v.mu.Lock()
	if !v.formOpen {
		v.mu.Unlock()
		return ErrFormClosed
	}
	in := model.ImageInput{URL: v.form.URL, Title: v.form.Title, Description: v.form.Description}
	var editingID int64
	if v.editing != nil {
		editingID = v.editing.ID
	}
	v.mu.Unlock()

	var err error
	if editingID != 0 {
		err = v.api.Update(ctx, editingID, in)
	} else {
		_, err = v.api.Create(ctx, in)
	}
	if err != nil {
		v.logger.Error("failed to save image",
			slog.Int64("id", editingID),
			slog.String("error", err.Error()),
		)
		return err
	}

	v.Refresh(ctx)

	v.mu.Lock()
	v.closeFormLocked()
	v.mu.Unlock()
	return nil
}

// Delete asks confirm about image id and, when it agrees, deletes the image
// and fetches the list again. A nil confirm counts as a refusal. It reports
// whether a delete was issued and succeeded.
func (v *View) Delete(ctx context.Context, id int64, confirm func(model.Image) bool) (bool, error) {
	v.mu.Lock()
	if v.mode != Admin {
		v.mu.Unlock()
		return false, ErrBrowseMode
	}
	target := model.Image{ID: id}
	for _, img := range v.records {
		if img.ID == id {
			target = img
			break
		}
	}
	v.mu.Unlock()

	if confirm == nil || !confirm(target) {
		return false, nil
	}

	if err := v.api.Delete(ctx, id); err != nil {
		v.logger.Error("failed to delete image",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return false, err
	}

	v.Refresh(ctx)
	return true, nil
}

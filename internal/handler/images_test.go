package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/visions/internal/handler"
	"github.com/sakif/visions/internal/model"
	"github.com/sakif/visions/internal/repository/sqlite"
	"github.com/sakif/visions/internal/service"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

// brokenService fails every call the way a store fault would.
type brokenService struct{}

var errBroken = errors.New("sqlite: disk I/O error at /var/lib/gallery.db")

func (brokenService) List(context.Context) ([]model.Image, error) { return nil, errBroken }
func (brokenService) Get(context.Context, int64) (*model.Image, error) {
	return nil, errBroken
}
func (brokenService) Create(context.Context, model.ImageInput) (*model.Image, error) {
	return nil, errBroken
}
func (brokenService) Update(context.Context, int64, model.ImageInput) error { return errBroken }
func (brokenService) Delete(context.Context, int64) error                   { return errBroken }
func (brokenService) Ping(context.Context) error                            { return errBroken }

func newRouter(svc handler.ImageService) http.Handler {
	h := handler.NewImageHandler(svc, testLogger)
	r := chi.NewRouter()
	r.Get("/healthz", h.HandleHealth)
	r.Route("/api/images", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
	return r
}

func newTestAPI(t *testing.T, opts service.Options) http.Handler {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newRouter(service.NewImageService(db, testLogger, opts))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var res handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
	return res.Error
}

func listImages(t *testing.T, h http.Handler) []model.Image {
	t.Helper()
	rr := do(t, h, http.MethodGet, "/api/images", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var images []model.Image
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&images))
	return images
}

func TestImageHandler_Create(t *testing.T) {
	t.Run("valid image", func(t *testing.T) {
		api := newTestAPI(t, service.Options{})

		rr := do(t, api, http.MethodPost, "/api/images",
			`{"url":"https://x/y.png","title":"Sunset","description":"Bay"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var img model.Image
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&img))
		assert.Positive(t, img.ID)
		assert.Equal(t, "https://x/y.png", img.URL)
		assert.Equal(t, "Sunset", img.Title)
		assert.Equal(t, "Bay", img.Description)
		assert.False(t, img.CreatedAt.IsZero())
	})

	t.Run("url only", func(t *testing.T) {
		api := newTestAPI(t, service.Options{})

		rr := do(t, api, http.MethodPost, "/api/images", `{"url":"https://x/y.png"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		images := listImages(t, api)
		require.Len(t, images, 1)
		assert.Equal(t, "", images[0].Title)
	})

	t.Run("missing url", func(t *testing.T) {
		for _, body := range []string{`{"title":"no url"}`, `{"url":""}`, `{"url":"   "}`} {
			api := newTestAPI(t, service.Options{})

			rr := do(t, api, http.MethodPost, "/api/images", body)

			assert.Equal(t, http.StatusBadRequest, rr.Code, body)
			assert.Equal(t, "URL is required", decodeError(t, rr))
			assert.Empty(t, listImages(t, api), "nothing may be persisted for %s", body)
		}
	})

	t.Run("invalid request body", func(t *testing.T) {
		api := newTestAPI(t, service.Options{})

		rr := do(t, api, http.MethodPost, "/api/images", `{"url":`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid JSON body", decodeError(t, rr))
	})

	t.Run("store fault", func(t *testing.T) {
		rr := do(t, newRouter(brokenService{}), http.MethodPost, "/api/images", `{"url":"https://x/y.png"}`)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Failed to add image", decodeError(t, rr))
	})
}

func TestImageHandler_List(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		api := newTestAPI(t, service.Options{})

		rr := do(t, api, http.MethodGet, "/api/images", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("newest first", func(t *testing.T) {
		api := newTestAPI(t, service.Options{})
		do(t, api, http.MethodPost, "/api/images", `{"url":"https://x/1.png"}`)
		do(t, api, http.MethodPost, "/api/images", `{"url":"https://x/2.png"}`)

		images := listImages(t, api)

		require.Len(t, images, 2)
		assert.Equal(t, "https://x/2.png", images[0].URL)
		assert.Equal(t, "https://x/1.png", images[1].URL)
	})

	t.Run("store fault hides detail", func(t *testing.T) {
		rr := do(t, newRouter(brokenService{}), http.MethodGet, "/api/images", "")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Failed to fetch images", decodeError(t, rr))
		assert.NotContains(t, rr.Body.String(), "/var/lib")
	})
}

func TestImageHandler_Get(t *testing.T) {
	api := newTestAPI(t, service.Options{})
	do(t, api, http.MethodPost, "/api/images", `{"url":"https://x/1.png","title":"one"}`)
	id := listImages(t, api)[0].ID

	rr := do(t, api, http.MethodGet, "/api/images/"+itoa(id), "")
	assert.Equal(t, http.StatusOK, rr.Code)
	var img model.Image
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&img))
	assert.Equal(t, "one", img.Title)

	rr = do(t, api, http.MethodGet, "/api/images/999", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Image not found", decodeError(t, rr))

	rr = do(t, newRouter(brokenService{}), http.MethodGet, "/api/images/1", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to fetch image", decodeError(t, rr))
}

func TestImageHandler_Update(t *testing.T) {
	t.Run("replaces fields", func(t *testing.T) {
		api := newTestAPI(t, service.Options{})
		do(t, api, http.MethodPost, "/api/images", `{"url":"https://x/old.png","title":"old","description":"d"}`)
		original := listImages(t, api)[0]

		rr := do(t, api, http.MethodPut, "/api/images/"+itoa(original.ID), `{"url":"https://x/new.png","title":"new"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true}`, rr.Body.String())

		images := listImages(t, api)
		require.Len(t, images, 1)
		assert.Equal(t, original.ID, images[0].ID)
		assert.Equal(t, "https://x/new.png", images[0].URL)
		assert.Equal(t, "new", images[0].Title)
		assert.Equal(t, "", images[0].Description)
		assert.True(t, original.CreatedAt.Equal(images[0].CreatedAt))
	})

	t.Run("missing id succeeds by default", func(t *testing.T) {
		api := newTestAPI(t, service.Options{})

		rr := do(t, api, http.MethodPut, "/api/images/999", `{"url":"https://x/z.png"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true}`, rr.Body.String())
		assert.Empty(t, listImages(t, api), "update must not create a record")
	})

	t.Run("missing id is 404 in strict mode", func(t *testing.T) {
		api := newTestAPI(t, service.Options{StrictNotFound: true})

		rr := do(t, api, http.MethodPut, "/api/images/999", `{"url":"https://x/z.png"}`)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Image not found", decodeError(t, rr))
	})

	t.Run("empty url", func(t *testing.T) {
		api := newTestAPI(t, service.Options{})
		do(t, api, http.MethodPost, "/api/images", `{"url":"https://x/a.png"}`)
		id := listImages(t, api)[0].ID

		rr := do(t, api, http.MethodPut, "/api/images/"+itoa(id), `{"url":""}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "https://x/a.png", listImages(t, api)[0].URL)
	})

	t.Run("invalid id", func(t *testing.T) {
		api := newTestAPI(t, service.Options{})

		for _, id := range []string{"abc", "0", "-1", "1.5"} {
			rr := do(t, api, http.MethodPut, "/api/images/"+id, `{"url":"https://x/z.png"}`)
			assert.Equal(t, http.StatusBadRequest, rr.Code, id)
			assert.Equal(t, "Invalid image id", decodeError(t, rr))
		}
	})

	t.Run("store fault", func(t *testing.T) {
		rr := do(t, newRouter(brokenService{}), http.MethodPut, "/api/images/1", `{"url":"https://x/z.png"}`)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Failed to update image", decodeError(t, rr))
	})
}

func TestImageHandler_Delete(t *testing.T) {
	t.Run("removes exactly one", func(t *testing.T) {
		api := newTestAPI(t, service.Options{})
		do(t, api, http.MethodPost, "/api/images", `{"url":"https://x/keep.png"}`)
		do(t, api, http.MethodPost, "/api/images", `{"url":"https://x/gone.png"}`)
		gone := listImages(t, api)[0]

		rr := do(t, api, http.MethodDelete, "/api/images/"+itoa(gone.ID), "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"success":true}`, rr.Body.String())
		images := listImages(t, api)
		require.Len(t, images, 1)
		assert.Equal(t, "https://x/keep.png", images[0].URL)
	})

	t.Run("missing id", func(t *testing.T) {
		lenient := newTestAPI(t, service.Options{})
		rr := do(t, lenient, http.MethodDelete, "/api/images/999", "")
		assert.Equal(t, http.StatusOK, rr.Code)

		strict := newTestAPI(t, service.Options{StrictNotFound: true})
		rr = do(t, strict, http.MethodDelete, "/api/images/999", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("store fault", func(t *testing.T) {
		rr := do(t, newRouter(brokenService{}), http.MethodDelete, "/api/images/1", "")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Equal(t, "Failed to delete image", decodeError(t, rr))
	})
}

func TestImageHandler_Health(t *testing.T) {
	rr := do(t, newTestAPI(t, service.Options{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = do(t, newRouter(brokenService{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.False(t, strings.Contains(rr.Body.String(), "disk"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

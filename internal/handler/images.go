// Package handler contains the HTTP handlers of the gallery.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the request (path id, JSON body)
// 2. Call the service
// 3. Write the response (status code, JSON body)
//
// Handlers hold no business rules; validation and the not-found policy live
// in the service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/visions/internal/model"
)

// maxBodyBytes caps the JSON body of create and update requests.
const maxBodyBytes = 1 << 20

// Fixed 500 messages, one per route.
const (
	msgFetchFailed  = "Failed to fetch images"
	msgGetFailed    = "Failed to fetch image"
	msgAddFailed    = "Failed to add image"
	msgUpdateFailed = "Failed to update image"
	msgDeleteFailed = "Failed to delete image"
	msgInvalidJSON  = "Invalid JSON body"
	msgInvalidID    = "Invalid image id"
)

// ImageService is what the handlers need from the service layer.
// *service.ImageService satisfies it.
type ImageService interface {
	List(ctx context.Context) ([]model.Image, error)
	Get(ctx context.Context, id int64) (*model.Image, error)
	Create(ctx context.Context, in model.ImageInput) (*model.Image, error)
	Update(ctx context.Context, id int64, in model.ImageInput) error
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// ImageHandler serves the /api/images routes.
type ImageHandler struct {
	service ImageService
	logger  *slog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(svc ImageService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{service: svc, logger: logger}
}

// HandleList returns every image, newest first.
//
// HTTP: GET /api/images
func (h *ImageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	images, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err, msgFetchFailed)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// HandleGet returns a single image.
//
// HTTP: GET /api/images/{id}
func (h *ImageHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	img, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, msgGetFailed)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

// HandleCreate adds an image and returns it with its assigned id.
//
// HTTP: POST /api/images
// REQUEST BODY: {"url": "https://...", "title": "optional", "description": "optional"}
func (h *ImageHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	img, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeError(w, err, msgAddFailed)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

// HandleUpdate replaces url, title and description of an image.
//
// HTTP: PUT /api/images/{id}
// RESPONSE: {"success": true}
func (h *ImageHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	if err := h.service.Update(r.Context(), id, in); err != nil {
		writeError(w, err, msgUpdateFailed)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// HandleDelete removes an image.
//
// HTTP: DELETE /api/images/{id}
// RESPONSE: {"success": true}
func (h *ImageHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err, msgDeleteFailed)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// pathID parses the {id} URL parameter. On failure it writes a 400 and
// returns false.
func (h *ImageHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		h.logger.Warn("invalid image id", slog.String("id", raw))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgInvalidID})
		return 0, false
	}
	return id, true
}

// decodeInput reads the JSON body. On failure it writes a 400 and returns
// false.
func (h *ImageHandler) decodeInput(w http.ResponseWriter, r *http.Request) (model.ImageInput, bool) {
	var in model.ImageInput

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Warn("invalid image JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgInvalidJSON})
		return in, false
	}
	return in, true
}

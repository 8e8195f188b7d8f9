package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/sakif/visions/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageHandler renders the read-only gallery page.
// Templates are parsed once at startup and reused.
type PageHandler struct {
	service   ImageService
	templates *template.Template
	logger    *slog.Logger
}

// NewPageHandler parses the embedded templates. base.html lays out the page
// and gallery.html fills its "content" block.
func NewPageHandler(svc ImageService, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/gallery.html")
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		service:   svc,
		templates: tmpl,
		logger:    logger,
	}, nil
}

type pageData struct {
	Title  string
	Images []model.Image
}

// HandleGallery serves the gallery grid.
//
// HTTP: GET /
func (h *PageHandler) HandleGallery(w http.ResponseWriter, r *http.Request) {
	images, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, msgFetchFailed, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	data := pageData{Title: "Visions", Images: images}
	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

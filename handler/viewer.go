package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"datastory/internal/story/model"
	"datastory/internal/story/service"
	"datastory/pkg/logger"
	"datastory/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"safeHTML": func(s string) template.HTML { return template.HTML(s) },
	"figureJSON": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		return template.JS(b), err
	},
}).ParseFS(templateFS, "templates/*.html"))

// ViewerHandler serves the public story pages.
type ViewerHandler struct {
	Service *service.StoryService
}

func NewViewerHandler(service *service.StoryService) *ViewerHandler {
	return &ViewerHandler{Service: service}
}

func (h *ViewerHandler) Index(w http.ResponseWriter, r *http.Request) {
	stories, err := h.Service.ListStories(r.Context())
	if err != nil {
		logger.Sugar.Errorf("Viewer: Failed to list stories: %v", err)
		http.Error(w, "Failed to load stories", http.StatusInternalServerError)
		return
	}
	h.render(w, "index.html", struct {
		Stories []model.StorySummary
	}{stories})
}

func (h *ViewerHandler) Story(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	page, err := h.Service.RenderStory(r.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Story not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Viewer: Failed to render story %s: %v", slug, err)
		http.Error(w, "Failed to render story", http.StatusInternalServerError)
		return
	}
	h.render(w, "story.html", page)
}

func (h *ViewerHandler) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Sugar.Errorf("Viewer: Failed to execute %s: %v", name, err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

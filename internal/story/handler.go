package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"datastory/internal/story/model"
	"datastory/internal/story/service"
	"datastory/middleware"
	"datastory/pkg/logger"
	"datastory/store"
)

type StoryHandler struct {
	Service *service.StoryService
}

func NewStoryHandler(service *service.StoryService) *StoryHandler {
	return &StoryHandler{Service: service}
}

func (h *StoryHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.Service.ListStories(r.Context())
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to list stories: %v", err)
		http.Error(w, "Failed to list stories", statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, stories)
}

func (h *StoryHandler) GetStory(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	story, err := h.Service.GetStory(r.Context(), slug)
	if err != nil {
		writeError(w, err, "Failed to get story "+slug)
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (h *StoryHandler) RenderStory(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	resp, err := h.Service.RenderStory(r.Context(), slug)
	if err != nil {
		writeError(w, err, "Failed to render story "+slug)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StoryHandler) Renderers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"renderers": h.Service.Renderers()})
}

func (h *StoryHandler) SuggestSlug(w http.ResponseWriter, r *http.Request) {
	var req model.SlugRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	slug, err := h.Service.SuggestSlug(r.Context(), req.Title)
	if err != nil {
		writeError(w, err, "Failed to suggest slug")
		return
	}
	writeJSON(w, http.StatusOK, model.SlugResponse{Slug: slug})
}

func (h *StoryHandler) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req model.CreateStoryRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // Ignore error, default title applies

	story, err := h.Service.CreateStory(r.Context(), req.Title)
	if err != nil {
		writeError(w, err, "Failed to create story")
		return
	}
	writeJSON(w, http.StatusCreated, story)
}

func (h *StoryHandler) Draft(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	draft, err := h.Service.Draft(r.Context(), slug)
	if err != nil {
		writeError(w, err, "Failed to load draft "+slug)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (h *StoryHandler) SaveStory(w http.ResponseWriter, r *http.Request) {
	var payload store.StoryDocument
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	slug := r.PathValue("slug")
	saved, err := h.Service.SaveStory(r.Context(), middleware.UserID(r), slug, payload)
	if err != nil {
		writeError(w, err, "Failed to save story "+slug)
		return
	}
	logger.Sugar.Infof("Story %s saved by %s", slug, middleware.UserID(r))
	writeJSON(w, http.StatusOK, model.StoryResponse{Slug: slug, StoryDocument: *saved})
}

func (h *StoryHandler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if err := h.Service.DeleteStory(r.Context(), slug); err != nil {
		writeError(w, err, "Failed to delete story "+slug)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StoryHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req model.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Slug == "" {
		req.Slug = req.Draft.Slug
	}
	resp, err := h.Service.Preview(r.Context(), req.Slug, req.Draft)
	if err != nil {
		writeError(w, err, "Failed to render preview")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StoryHandler) FormatSource(w http.ResponseWriter, r *http.Request) {
	var req model.FormatSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, model.FormatSourceResponse{Markdown: h.Service.FormatSource(req.Source)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Sugar.Errorf("Handler: %s: %v", msg, err)
		http.Error(w, msg, status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Sugar.Errorf("Handler: Failed to encode response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

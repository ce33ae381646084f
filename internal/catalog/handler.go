package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"datastory/internal/catalog/model"
	"datastory/internal/catalog/service"
	"datastory/pkg/logger"
	"datastory/store"
)

type CatalogHandler struct {
	Service *service.CatalogService
}

func NewCatalogHandler(service *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{Service: service}
}

// GetContents lists catalog items, ranked when ?q= is given and filtered by ?category=.
func (h *CatalogHandler) GetContents(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category != "" && category != model.AllCategory && !model.IsCategory(category) {
		http.Error(w, "Unknown category: "+category, http.StatusBadRequest)
		return
	}

	items, err := h.Service.Search(r.URL.Query().Get("q"), category)
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to search contents: %v", err)
		http.Error(w, "Failed to load contents", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CatalogHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.GetContent(r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load content")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *CatalogHandler) GetCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Categories())
}

func (h *CatalogHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	item, err := h.Service.SaveItem(r.PathValue("id"), req)
	if err != nil {
		writeError(w, err, "Failed to update content")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		logger.Sugar.Errorf("Handler: %s: %v", msg, err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

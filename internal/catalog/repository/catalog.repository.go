package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"datastory/internal/catalog/model"
	"datastory/pkg/logger"
	"datastory/store"
)

const indexFile = "index.json"

// CatalogRepository reads the catalog index and body files under Dir.
type CatalogRepository struct {
	Dir string
}

func NewCatalogRepository(dir string) *CatalogRepository {
	return &CatalogRepository{Dir: dir}
}

// LoadIndex returns the catalog items in file order. A missing index is an empty catalog.
func (r *CatalogRepository) LoadIndex() ([]model.Item, error) {
	data, err := os.ReadFile(filepath.Join(r.Dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return []model.Item{}, nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read catalog index: %v", err)
		return nil, err
	}
	var items []model.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", store.ErrCorruptStore, indexFile, err)
	}
	return items, nil
}

// GetContents filters by category; "" and "all" return everything.
func (r *CatalogRepository) GetContents(category string) ([]model.Item, error) {
	items, err := r.LoadIndex()
	if err != nil {
		return nil, err
	}
	if category == "" || category == model.AllCategory {
		return items, nil
	}
	out := make([]model.Item, 0, len(items))
	for _, item := range items {
		if item.Category == category {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *CatalogRepository) GetContent(id string) (*model.Item, error) {
	items, err := r.LoadIndex()
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.ID == id {
			item.BodyText, err = r.ReadBody(item.Body)
			if err != nil {
				return nil, err
			}
			return &item, nil
		}
	}
	return nil, fmt.Errorf("content %q: %w", id, store.ErrNotFound)
}

// ReadBody returns the text behind a body reference; an empty or missing
// reference reads as "".
func (r *CatalogRepository) ReadBody(ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	path, err := r.bodyPath(ref)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to read body %s: %v", ref, err)
		return "", err
	}
	return string(data), nil
}

// SaveItem applies an admin edit to one item, rewriting the index and, when
// the body text changed, its body file.
func (r *CatalogRepository) SaveItem(id string, req model.UpdateItemRequest) (*model.Item, error) {
	items, err := r.LoadIndex()
	if err != nil {
		return nil, err
	}
	pos := -1
	for i := range items {
		if items[i].ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, fmt.Errorf("content %q: %w", id, store.ErrNotFound)
	}

	item := items[pos]
	if req.Category != nil {
		if !model.IsCategory(*req.Category) {
			return nil, fmt.Errorf("%w: unknown category %q", store.ErrInvalidInput, *req.Category)
		}
		item.Category = *req.Category
	}
	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Summary != nil {
		item.Summary = *req.Summary
	}
	if req.Img != nil {
		item.Img = *req.Img
	}
	if req.BodyText != nil {
		if item.Body == "" {
			item.Body = filepath.ToSlash(filepath.Join("body", id+".md"))
		}
		path, err := r.bodyPath(item.Body)
		if err != nil {
			return nil, err
		}
		if err := writeFileAtomic(path, []byte(*req.BodyText)); err != nil {
			logger.Sugar.Errorf("Failed to write body %s: %v", item.Body, err)
			return nil, err
		}
	}
	items[pos] = item

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(filepath.Join(r.Dir, indexFile), buf.Bytes()); err != nil {
		logger.Sugar.Errorf("Failed to write catalog index: %v", err)
		return nil, err
	}
	return &item, nil
}

func (r *CatalogRepository) bodyPath(ref string) (string, error) {
	clean := filepath.FromSlash(ref)
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: body path %q leaves the content dir", store.ErrInvalidInput, ref)
	}
	return filepath.Join(r.Dir, clean), nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

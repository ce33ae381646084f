package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"datastory/internal/story/model"
	"datastory/pkg/logger"
	"datastory/store"
)

// StoryRepository reads and writes the content document. Every write replaces
// the whole document; concurrent writers are last-write-wins.
type StoryRepository struct {
	Backend Backend
	now     func() time.Time
}

func NewStoryRepository(backend Backend) *StoryRepository {
	return &StoryRepository{Backend: backend, now: time.Now}
}

type legacyPayload struct {
	Title     string          `json:"title"`
	Slug      string          `json:"slug"`
	Markdown  string          `json:"markdown"`
	PDFSource string          `json:"pdf_source"`
	Chart     json.RawMessage `json:"chart"`
	SavedAt   string          `json:"saved_at"`
}

func (r *StoryRepository) Load(ctx context.Context) (*store.Aggregate, error) {
	data, err := r.Backend.Read(ctx)
	if errors.Is(err, ErrBlobNotFound) {
		return store.NewAggregate(), nil
	}
	if err != nil {
		return nil, err
	}
	agg, err := decodeAggregate(data)
	if err != nil {
		logger.Sugar.Errorf("Content document is unreadable: %v", err)
		return nil, err
	}
	return agg, nil
}

func decodeAggregate(data []byte) (*store.Aggregate, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrCorruptStore, err)
	}
	if _, ok := top["stories"]; ok {
		agg := store.NewAggregate()
		if err := json.Unmarshal(data, agg); err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrCorruptStore, err)
		}
		if agg.Stories == nil {
			agg.Stories = store.NewOrderedMap[store.StoryDocument]()
		}
		return agg, nil
	}

	var legacy legacyPayload
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("%w: legacy payload: %v", store.ErrCorruptStore, err)
	}
	slug := legacy.Slug
	if slug == "" {
		slug = SuggestSlug(legacy.Title)
	}
	title := legacy.Title
	if title == "" {
		title = model.DefaultTitle
	}
	agg := store.NewAggregate()
	agg.Stories.Set(slug, store.StoryDocument{
		Title:     title,
		Markdown:  legacy.Markdown,
		PDFSource: legacy.PDFSource,
		Chart:     nullToEmpty(legacy.Chart),
		UpdatedAt: legacy.SavedAt,
	})
	agg.UpdatedAt = legacy.SavedAt
	agg.MigratedFromLegacy = true
	return agg, nil
}

func nullToEmpty(raw json.RawMessage) json.RawMessage {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	return raw
}

// List summarizes the stored stories in document order.
func (r *StoryRepository) List(ctx context.Context) ([]model.StorySummary, error) {
	agg, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]model.StorySummary, 0, agg.Stories.Len())
	for _, slug := range agg.Stories.Keys() {
		doc, _ := agg.Stories.Get(slug)
		title := doc.Title
		if title == "" {
			title = slug
		}
		summaries = append(summaries, model.StorySummary{
			Slug:      slug,
			Title:     title,
			UpdatedAt: doc.UpdatedAt,
			Excerpt:   model.Excerpt(doc),
		})
	}
	return summaries, nil
}

func (r *StoryRepository) Get(ctx context.Context, slug string) (*store.StoryDocument, error) {
	agg, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	doc, ok := agg.Stories.Get(slug)
	if !ok {
		return nil, fmt.Errorf("story %q: %w", slug, store.ErrNotFound)
	}
	return &doc, nil
}

// GetSlot returns one visual slot of a story.
func (r *StoryRepository) GetSlot(ctx context.Context, slug, slotID string) (store.VisualSlot, error) {
	doc, err := r.Get(ctx, slug)
	if err != nil {
		return store.VisualSlot{}, err
	}
	slot, ok := doc.Visuals.Get(slotID)
	if !ok {
		return store.VisualSlot{}, fmt.Errorf("slot %q of story %q: %w", slotID, slug, store.ErrNotFound)
	}
	return slot, nil
}

// Save replaces the story stored under slug with payload and stamps updated_at.
func (r *StoryRepository) Save(ctx context.Context, slug string, payload store.StoryDocument) (*store.StoryDocument, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, fmt.Errorf("%w: empty slug", store.ErrInvalidInput)
	}
	agg, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	payload.UpdatedAt = store.Timestamp(r.now())
	agg.Stories.Set(slug, payload)
	agg.UpdatedAt = payload.UpdatedAt
	if err := r.write(ctx, agg); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (r *StoryRepository) Delete(ctx context.Context, slug string) error {
	agg, err := r.Load(ctx)
	if err != nil {
		return err
	}
	if !agg.Stories.Delete(slug) {
		return fmt.Errorf("story %q: %w", slug, store.ErrNotFound)
	}
	agg.UpdatedAt = store.Timestamp(r.now())
	return r.write(ctx, agg)
}

// EnsureUniqueSlug turns candidate into a slug that no stored story uses yet,
// appending -2, -3, ... on collision.
func (r *StoryRepository) EnsureUniqueSlug(ctx context.Context, candidate string) (string, error) {
	agg, err := r.Load(ctx)
	if err != nil {
		return "", err
	}
	base := SuggestSlug(candidate)
	if _, taken := agg.Stories.Get(base); !taken {
		return base, nil
	}
	for n := 2; ; n++ {
		slug := fmt.Sprintf("%s-%d", base, n)
		if _, taken := agg.Stories.Get(slug); !taken {
			return slug, nil
		}
	}
}

func (r *StoryRepository) write(ctx context.Context, agg *store.Aggregate) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(agg); err != nil {
		return err
	}
	return r.Backend.Write(ctx, buf.Bytes())
}

var slugInvalid = regexp.MustCompile(`[^0-9a-z-]+`)

// SuggestSlug lowercases value and collapses everything outside [0-9a-z-] into
// single dashes. Titles with no usable characters become "story".
func SuggestSlug(value string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "story"
	}
	return slug
}

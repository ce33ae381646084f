package model

import (
	"encoding/json"

	"datastory/internal/chart"
	"datastory/store"
)

type StorySummary struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at,omitempty"`
	Excerpt   string `json:"excerpt,omitempty"`
}

// StoryResponse is a stored story plus its slug. It needs its own JSON methods
// because the embedded document's would otherwise be promoted and drop the slug.
type StoryResponse struct {
	Slug string `json:"slug"`
	store.StoryDocument
}

func (r StoryResponse) MarshalJSON() ([]byte, error) {
	doc, err := json.Marshal(r.StoryDocument)
	if err != nil {
		return nil, err
	}
	slug, err := json.Marshal(r.Slug)
	if err != nil {
		return nil, err
	}
	head := store.NewOrderedMap[json.RawMessage]()
	head.Set("slug", slug)
	return store.JoinExtra(doc, head)
}

func (r *StoryResponse) UnmarshalJSON(data []byte) error {
	var head struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if err := json.Unmarshal(data, &r.StoryDocument); err != nil {
		return err
	}
	r.Slug = head.Slug
	if r.Extra != nil {
		r.Extra.Delete("slug")
		if r.Extra.Len() == 0 {
			r.Extra = nil
		}
	}
	return nil
}

type SlugRequest struct {
	Title string `json:"title"`
}

type SlugResponse struct {
	Slug string `json:"slug"`
}

type CreateStoryRequest struct {
	Title string `json:"title"`
}

type PreviewRequest struct {
	Slug  string `json:"slug"`
	Draft Draft  `json:"draft"`
}

type FormatSourceRequest struct {
	Source string `json:"source"`
}

type FormatSourceResponse struct {
	Markdown string `json:"markdown"`
}

type BlockType string

const (
	BlockText   BlockType = "text"
	BlockChart  BlockType = "chart"
	BlockNotice BlockType = "notice"
)

// Block is one rendered piece of a story page, in document order.
type Block struct {
	Type    BlockType     `json:"type"`
	HTML    string        `json:"html,omitempty"`
	SlotID  string        `json:"slot_id,omitempty"`
	Title   string        `json:"title,omitempty"`
	Caption string        `json:"caption,omitempty"`
	Figure  *chart.Figure `json:"figure,omitempty"`
	Level   string        `json:"level,omitempty"`
	Message string        `json:"message,omitempty"`
}

type RenderResponse struct {
	Slug      string  `json:"slug"`
	Title     string  `json:"title"`
	Source    string  `json:"source,omitempty"`
	UpdatedAt string  `json:"updated_at,omitempty"`
	Blocks    []Block `json:"blocks"`
}

type SlotState struct {
	Title    string          `json:"title"`
	Caption  string          `json:"caption"`
	Renderer string          `json:"renderer"`
	Chart    json.RawMessage `json:"chart,omitempty"`
}

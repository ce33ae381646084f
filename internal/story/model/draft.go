package model

import (
	"fmt"
	"slices"
	"strings"

	"datastory/store"
)

const DefaultTitle = "Data story"

// Draft is the editor's scratch state for one story. It lives in the editor
// room until it is saved or the last editor leaves.
type Draft struct {
	Slug     string               `json:"slug"`
	Title    string               `json:"title"`
	Markdown string               `json:"markdown"`
	Format   store.Format         `json:"format"`
	Source   string               `json:"source"`
	Slots    []string             `json:"slots"`
	SlotData map[string]SlotState `json:"slot_data"`
}

// DraftFromStory seeds a draft from the stored story. A nil doc yields an empty draft.
func DraftFromStory(slug string, doc *store.StoryDocument) Draft {
	d := Draft{
		Slug:     slug,
		Format:   store.FormatMarkdown,
		Slots:    []string{},
		SlotData: map[string]SlotState{},
	}
	if doc == nil {
		return d
	}
	d.Title = doc.Title
	d.Markdown = doc.Markdown
	d.Format = doc.ContentFormat()
	d.Source = doc.PDFSource
	for _, id := range doc.SlotIDs() {
		slot, _ := doc.Visuals.Get(id)
		d.Slots = append(d.Slots, id)
		d.SlotData[id] = SlotState{
			Title:    slot.Title,
			Caption:  slot.Caption,
			Renderer: slot.Renderer,
			Chart:    slot.Chart,
		}
	}
	return d
}

// AddSlot appends the lowest unused slot-<n> id and returns it.
func (d *Draft) AddSlot() string {
	if d.SlotData == nil {
		d.SlotData = map[string]SlotState{}
	}
	for n := 1; ; n++ {
		id := fmt.Sprintf("slot-%d", n)
		if !slices.Contains(d.Slots, id) {
			d.Slots = append(d.Slots, id)
			d.SlotData[id] = SlotState{}
			return id
		}
	}
}

func (d *Draft) RemoveSlot(id string) bool {
	i := slices.Index(d.Slots, id)
	if i < 0 {
		return false
	}
	d.Slots = slices.Delete(d.Slots, i, i+1)
	delete(d.SlotData, id)
	return true
}

// Payload converts the draft into the document that gets saved. Strings are
// trimmed and blanks dropped; visuals are only present when the draft has slots.
func (d Draft) Payload() store.StoryDocument {
	doc := store.StoryDocument{
		Title:     strings.TrimSpace(d.Title),
		Markdown:  d.Markdown,
		Format:    d.Format,
		PDFSource: strings.TrimSpace(d.Source),
	}
	if doc.Title == "" {
		doc.Title = DefaultTitle
	}
	if doc.Format == "" {
		doc.Format = store.FormatMarkdown
	}
	if len(d.Slots) == 0 {
		return doc
	}
	doc.Visuals = store.NewOrderedMap[store.VisualSlot]()
	for _, id := range d.Slots {
		s := d.SlotData[id]
		doc.Visuals.Set(id, store.VisualSlot{
			Renderer: strings.TrimSpace(s.Renderer),
			Title:    strings.TrimSpace(s.Title),
			Caption:  strings.TrimSpace(s.Caption),
			Chart:    s.Chart,
		})
	}
	return doc
}

package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat maps an empty value to markdown and rejects anything that is not a known format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatMarkdown:
		return FormatMarkdown, nil
	case FormatHTML:
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", ErrInvalidInput, s)
}

// VisualSlot is a named chart position inside a story. Chart carries optional
// declarative chart metadata for the built-in declarative renderer.
type VisualSlot struct {
	Renderer string          `json:"renderer,omitempty"`
	Title    string          `json:"title,omitempty"`
	Caption  string          `json:"caption,omitempty"`
	Chart    json.RawMessage `json:"chart,omitempty"`
	Extra    *Extra          `json:"-"`
}

type slotFields VisualSlot

func (s VisualSlot) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(slotFields(s), s.Extra)
}

func (s *VisualSlot) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*slotFields)(s)); err != nil {
		return err
	}
	extra, err := SplitExtra(data, "renderer", "title", "caption", "chart")
	s.Extra = extra
	return err
}

type StoryDocument struct {
	Title     string                  `json:"title"`
	Markdown  string                  `json:"markdown"`
	Format    Format                  `json:"format,omitempty"`
	PDFSource string                  `json:"pdf_source,omitempty"`
	Visuals   *OrderedMap[VisualSlot] `json:"visuals,omitempty"`
	Chart     json.RawMessage         `json:"chart,omitempty"` // legacy single-chart metadata, kept verbatim
	UpdatedAt string                  `json:"updated_at,omitempty"`
	Extra     *Extra                  `json:"-"`
}

type storyFields StoryDocument

func (d StoryDocument) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(storyFields(d), d.Extra)
}

func (d *StoryDocument) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*storyFields)(d)); err != nil {
		return err
	}
	extra, err := SplitExtra(data, "title", "markdown", "format", "pdf_source", "visuals", "chart", "updated_at")
	d.Extra = extra
	return err
}

// ContentFormat returns the stored format, defaulting to markdown.
func (d StoryDocument) ContentFormat() Format {
	if d.Format == FormatHTML {
		return FormatHTML
	}
	return FormatMarkdown
}

// SlotIDs returns the slot ids in document order.
func (d StoryDocument) SlotIDs() []string {
	if d.Visuals == nil {
		return nil
	}
	return d.Visuals.Keys()
}

// Aggregate is the whole persisted content document.
type Aggregate struct {
	Stories            *OrderedMap[StoryDocument] `json:"stories"`
	UpdatedAt          string                     `json:"updated_at,omitempty"`
	MigratedFromLegacy bool                       `json:"migrated_from_legacy,omitempty"`
	Extra              *Extra                     `json:"-"`
}

type aggregateFields Aggregate

func (a Aggregate) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(aggregateFields(a), a.Extra)
}

func (a *Aggregate) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*aggregateFields)(a)); err != nil {
		return err
	}
	extra, err := SplitExtra(data, "stories", "updated_at", "migrated_from_legacy")
	a.Extra = extra
	return err
}

func marshalWithExtra(v any, extra *Extra) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeRaw(&buf, v); err != nil {
		return nil, err
	}
	return JoinExtra(buf.Bytes(), extra)
}

func NewAggregate() *Aggregate {
	return &Aggregate{Stories: NewOrderedMap[StoryDocument]()}
}

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Timestamp formats t the way updated_at values are persisted.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp accepts persisted timestamps as well as zone-less ISO-8601 values
// written by older tooling, which are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrInvalidInput, s)
}

package render

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"datastory/store"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldhtml "github.com/yuin/goldmark/renderer/html"
)

// CanonicalToken is the bare placeholder that marks the default chart slot.
const CanonicalToken = "{{chart}}"

var (
	tokenPattern = regexp.MustCompile(`(?i)\{\{\s*(?:chart|viz)(?:\s*:\s*([a-zA-Z0-9_\-]+))?\s*\}\}`)

	encodedPattern = regexp.MustCompile(
		`(?i)(?:&#123;|&#x7b;|&lbrace;|&lcub;)\s*(?:&#123;|&#x7b;|&lbrace;|&lcub;)\s*(?:chart|viz)` +
			`(?:\s*:\s*([a-zA-Z0-9_\-]+))?\s*` +
			`(?:&#125;|&#x7d;|&rbrace;|&rcub;)\s*(?:&#125;|&#x7d;|&rbrace;|&rcub;)`)

	// detects a token start in raw or entity-encoded form
	searchPattern = regexp.MustCompile(`(?i)\{\{\s*(?:chart|viz)|(?:&#123;|&#x7b;|&lbrace;|&lcub;){2}\s*(?:chart|viz)`)
)

type SegmentKind string

const (
	SegmentText  SegmentKind = "text"
	SegmentChart SegmentKind = "chart"
)

// Segment is one piece of split content. For chart segments SlotID is empty when
// the token named no slot, and Token keeps the matched source text.
type Segment struct {
	Kind   SegmentKind
	Text   string
	SlotID string
	Token  string
}

// ChartFunc draws the chart for a slot ("" means the default slot) and reports
// whether it succeeded. Render ignores the result apart from moving on.
type ChartFunc func(slotID string) bool

// TextFunc receives display-ready HTML for one text segment.
type TextFunc func(html string)

// Engine turns story bodies with embedded chart tokens into ordered display output.
type Engine struct {
	md goldmark.Markdown
}

func NewEngine() *Engine {
	return &Engine{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table),
			goldmark.WithRendererOptions(goldhtml.WithUnsafe()),
		),
	}
}

// Normalize rewrites entity-encoded tokens to their canonical bare form and then
// unescapes any entities left in the text. The unescape is a single pass over
// the whole body: doubly escaped text such as "&amp;lt;" loses one level per
// call, so Normalize is only idempotent on bodies without nested entities, and
// escaped markup in html bodies comes out as live markup.
func Normalize(content string) string {
	result := encodedPattern.ReplaceAllStringFunc(content, func(m string) string {
		sub := encodedPattern.FindStringSubmatch(m)
		if len(sub) > 1 && sub[1] != "" {
			return "{{chart:" + sub[1] + "}}"
		}
		return CanonicalToken
	})
	return html.UnescapeString(result)
}

// Split scans normalized content left to right into text and chart segments.
// Content without tokens yields a single text segment, even when empty.
func Split(content string) []Segment {
	var segments []Segment
	last := 0
	for _, loc := range tokenPattern.FindAllStringSubmatchIndex(content, -1) {
		start, end := loc[0], loc[1]
		if start > last {
			segments = append(segments, Segment{Kind: SegmentText, Text: content[last:start]})
		}
		seg := Segment{Kind: SegmentChart, Token: content[start:end]}
		if loc[2] >= 0 {
			seg.SlotID = strings.TrimSpace(content[loc[2]:loc[3]])
		}
		segments = append(segments, seg)
		last = end
	}
	if last < len(content) {
		segments = append(segments, Segment{Kind: SegmentText, Text: content[last:]})
	}
	if len(segments) == 0 {
		segments = append(segments, Segment{Kind: SegmentText, Text: content})
	}
	return segments
}

// HasPlaceholder reports whether content contains a token in any encoding.
func HasPlaceholder(content string) bool {
	return searchPattern.MatchString(content)
}

// AutoInject places a default token into content that has none: after the first
// closing heading, paragraph or section tag, otherwise after the first paragraph,
// otherwise at the end.
func AutoInject(content string) string {
	if HasPlaceholder(content) {
		return content
	}
	lower := strings.ToLower(content)
	for _, marker := range []string{"</h2>", "</h3>", "</h4>", "</p>", "</section>"} {
		if idx := strings.Index(lower, marker); idx != -1 {
			at := idx + len(marker)
			return content[:at] + "\n\n" + CanonicalToken + "\n\n" + content[at:]
		}
	}
	if head, tail, ok := strings.Cut(content, "\n\n"); ok {
		return head + "\n\n" + CanonicalToken + "\n\n" + tail
	}
	return content + "\n\n" + CanonicalToken
}

// Render walks the segments of content in order, emitting text as HTML and
// invoking onChart once per token occurrence. Blank content with no chart
// callback renders nothing.
func (e *Engine) Render(content string, format store.Format, onText TextFunc, onChart ChartFunc) error {
	if strings.TrimSpace(content) == "" && onChart == nil {
		return nil
	}

	for _, seg := range Split(Normalize(content)) {
		switch seg.Kind {
		case SegmentText:
			if strings.TrimSpace(seg.Text) == "" {
				continue
			}
			out, err := e.ToHTML(seg.Text, format)
			if err != nil {
				return err
			}
			if onText != nil {
				onText(out)
			}
		case SegmentChart:
			if onChart != nil {
				onChart(seg.SlotID)
			}
		}
	}
	return nil
}

// ToHTML converts one text segment to display HTML.
func (e *Engine) ToHTML(text string, format store.Format) (string, error) {
	if format == store.FormatHTML {
		return text, nil
	}
	var buf bytes.Buffer
	if err := e.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

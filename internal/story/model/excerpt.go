package model

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"datastory/internal/render"
	"datastory/store"
)

const excerptWidth = 120

var (
	tagPattern     = regexp.MustCompile(`<[^>]+>`)
	tokenPattern   = regexp.MustCompile(`(?i)\{\{\s*(?:chart|viz)[^}]*\}\}`)
	headingPattern = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s+`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Excerpt is the story body as plain text without markup, chart tokens or
// heading markers, cut at a word boundary to fit 120 characters including the
// trailing ellipsis.
func Excerpt(doc store.StoryDocument) string {
	text := tagPattern.ReplaceAllString(render.Normalize(doc.Markdown), " ")
	text = tokenPattern.ReplaceAllString(text, " ")
	text = headingPattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
	if utf8.RuneCountInString(text) <= excerptWidth {
		return text
	}

	const ellipsis = "…"
	var out strings.Builder
	size := 0
	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		if out.Len() > 0 {
			n++
		}
		if size+n+1 > excerptWidth {
			break
		}
		if out.Len() > 0 {
			out.WriteByte(' ')
		}
		out.WriteString(word)
		size += n
	}
	if out.Len() == 0 {
		runes := []rune(text)
		return string(runes[:excerptWidth-1]) + ellipsis
	}
	return out.String() + ellipsis
}

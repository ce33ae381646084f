package service

import (
	"sort"
	"strings"
	"sync"

	"datastory/internal/catalog/model"
	"datastory/pkg/logger"
)

type gramSet map[string]struct{}

func (g gramSet) overlap(other gramSet) int {
	small, large := g, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for k := range small {
		if _, ok := large[k]; ok {
			n++
		}
	}
	return n
}

// Normalize lowercases text and keeps only ASCII letters, digits and Hangul syllables.
func Normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r >= '가' && r <= '힣':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NGrams returns the distinct characters and adjacent character pairs of the
// normalized text.
func NGrams(text string) map[string]struct{} {
	runes := []rune(Normalize(text))
	grams := make(gramSet, 2*len(runes))
	for i, r := range runes {
		grams[string(r)] = struct{}{}
		if i+1 < len(runes) {
			grams[string(runes[i:i+2])] = struct{}{}
		}
	}
	return grams
}

// BodyReader loads the text behind an item's body reference.
type BodyReader interface {
	ReadBody(ref string) (string, error)
}

type fieldKey struct {
	id, title, summary string
}

type fieldGrams struct {
	title, summary gramSet
}

// Index ranks catalog items against a query. Field n-grams are cached per item
// text and body n-grams per body reference, so repeated searches never re-read
// body files.
type Index struct {
	bodies BodyReader

	mu         sync.Mutex
	fieldCache map[fieldKey]fieldGrams
	bodyCache  map[string]gramSet
}

func NewIndex(bodies BodyReader) *Index {
	return &Index{
		bodies:     bodies,
		fieldCache: make(map[fieldKey]fieldGrams),
		bodyCache:  make(map[string]gramSet),
	}
}

const (
	tierTitle = iota
	tierSummary
	tierBody
)

type ranked struct {
	tier  int
	score int
	item  model.Item
}

// Search orders items by tier (title, then summary, then body overlap) and by
// descending overlap within a tier. Items with no overlap are dropped. A query
// without n-grams returns items untouched.
func (x *Index) Search(query string, items []model.Item) []model.Item {
	q := gramSet(NGrams(strings.TrimSpace(query)))
	if len(q) == 0 {
		return items
	}

	hits := make([]ranked, 0, len(items))
	for _, item := range items {
		fields := x.fields(item)
		if s := q.overlap(fields.title); s > 0 {
			hits = append(hits, ranked{tierTitle, s, item})
		} else if s := q.overlap(fields.summary); s > 0 {
			hits = append(hits, ranked{tierSummary, s, item})
		} else if s := q.overlap(x.body(item.Body)); s > 0 {
			hits = append(hits, ranked{tierBody, s, item})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].tier != hits[j].tier {
			return hits[i].tier < hits[j].tier
		}
		return hits[i].score > hits[j].score
	})

	out := make([]model.Item, len(hits))
	for i, h := range hits {
		out[i] = h.item
	}
	return out
}

// Forget drops the cached body n-grams for ref after its file was rewritten.
func (x *Index) Forget(ref string) {
	x.mu.Lock()
	delete(x.bodyCache, ref)
	x.mu.Unlock()
}

func (x *Index) fields(item model.Item) fieldGrams {
	key := fieldKey{item.ID, item.Title, item.Summary}
	x.mu.Lock()
	defer x.mu.Unlock()
	if f, ok := x.fieldCache[key]; ok {
		return f
	}
	f := fieldGrams{title: NGrams(item.Title), summary: NGrams(item.Summary)}
	x.fieldCache[key] = f
	return f
}

func (x *Index) body(ref string) gramSet {
	if ref == "" {
		return nil
	}
	x.mu.Lock()
	if g, ok := x.bodyCache[ref]; ok {
		x.mu.Unlock()
		return g
	}
	x.mu.Unlock()

	text, err := x.bodies.ReadBody(ref)
	if err != nil {
		logger.Sugar.Warnf("Search skipped body %s: %v", ref, err)
		text = ""
	}
	g := gramSet(NGrams(text))

	x.mu.Lock()
	x.bodyCache[ref] = g
	x.mu.Unlock()
	return g
}

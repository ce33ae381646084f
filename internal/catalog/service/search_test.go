package service

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"datastory/internal/catalog/model"
	"datastory/internal/catalog/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReader struct {
	mu     sync.Mutex
	bodies map[string]string
	reads  map[string]int
}

func (c *countingReader) ReadBody(ref string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reads == nil {
		c.reads = map[string]int{}
	}
	c.reads[ref]++
	return c.bodies[ref], nil
}

func ids(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello2024청년고용", Normalize("Hello, 2024 청년 고용!"))
	assert.Equal(t, "", Normalize("  ...  "))
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "caf", Normalize("Café"))
}

func TestNGrams(t *testing.T) {
	assert.Equal(t, map[string]struct{}{"a": {}, "b": {}, "ab": {}, "ba": {}}, NGrams("A-b a"))
	assert.Empty(t, NGrams("!!"))
	assert.Equal(t, map[string]struct{}{"청": {}, "년": {}, "청년": {}}, NGrams("청년"))
}

func TestSearchTiers(t *testing.T) {
	reader := &countingReader{bodies: map[string]string{
		"c.txt": "budget tables",
		"d.txt": "zzz",
	}}
	x := NewIndex(reader)
	items := []model.Item{
		{ID: "D", Title: "zzz", Summary: "qqq", Body: "d.txt"},
		{ID: "C", Title: "zzz", Summary: "qqq", Body: "c.txt"},
		{ID: "B", Title: "zzz", Summary: "the budget"},
		{ID: "A", Title: "Budget 2024", Summary: "qqq"},
	}

	assert.Equal(t, []string{"A", "B", "C"}, ids(x.Search("budget", items)))
}

func TestSearchOrdersByOverlapWithinTier(t *testing.T) {
	x := NewIndex(&countingReader{})
	items := []model.Item{
		{ID: "one", Title: "jobs"},
		{ID: "both", Title: "youth jobs"},
		{ID: "tie", Title: "jobs now"},
	}
	assert.Equal(t, []string{"both", "one", "tie"}, ids(x.Search("youth jobs", items)))
}

func TestSearchDegradesToInput(t *testing.T) {
	x := NewIndex(&countingReader{})
	items := []model.Item{{ID: "x", Title: "a"}, {ID: "y", Title: "b"}}

	assert.Equal(t, items, x.Search("", items))
	assert.Equal(t, items, x.Search("   ", items))
	assert.Equal(t, items, x.Search("?!…", items))
}

func TestSearchReadsEachBodyOnce(t *testing.T) {
	reader := &countingReader{bodies: map[string]string{"b.txt": "hidden term"}}
	x := NewIndex(reader)
	items := []model.Item{{ID: "1", Title: "x", Body: "b.txt"}, {ID: "2", Title: "x", Body: "b.txt"}}

	for i := 0; i < 3; i++ {
		assert.Equal(t, []string{"1", "2"}, ids(x.Search("hidden", items)))
	}
	assert.Equal(t, 1, reader.reads["b.txt"])

	x.Forget("b.txt")
	x.Search("hidden", items)
	assert.Equal(t, 2, reader.reads["b.txt"])
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	index := `[
  {"id": "e1", "title": "Household debt", "category": "economy", "summary": "Debt keeps rising", "body": "bodies/e1.md"},
  {"id": "w1", "title": "청년 고용", "category": "work", "summary": "청년층 고용 동향", "body": "bodies/w1.md"},
  {"id": "w2", "title": "원격 근무", "category": "work", "summary": "팬데믹 이후"}
]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte(index), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bodies"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bodies", "w1.md"), []byte("debt of graduates"), 0o644))
	return dir
}

func TestCatalogSearchFiltersBeforeRanking(t *testing.T) {
	svc := NewCatalogService(repository.NewCatalogRepository(writeCatalog(t)))

	all, err := svc.Search("debt", "all")
	require.NoError(t, err)
	assert.Equal(t, []string{"e1", "w1"}, ids(all))

	work, err := svc.Search("debt", "work")
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, ids(work))

	for _, cat := range []string{"", "all", "work", "economy", "space"} {
		listed, err := svc.GetContents(cat)
		require.NoError(t, err)
		searched, err := svc.Search("", cat)
		require.NoError(t, err)
		assert.Equal(t, listed, searched, cat)
	}
}

func TestCatalogSaveItemRefreshesBody(t *testing.T) {
	svc := NewCatalogService(repository.NewCatalogRepository(writeCatalog(t)))

	got, err := svc.Search("견습", "work")
	require.NoError(t, err)
	assert.Empty(t, got)

	text := "견습 제도 확대"
	_, err = svc.SaveItem("w1", model.UpdateItemRequest{BodyText: &text})
	require.NoError(t, err)

	got, err = svc.Search("견습", "work")
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, ids(got))
}

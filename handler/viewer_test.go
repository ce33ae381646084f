package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"datastory/internal/chart"
	"datastory/internal/render"
	"datastory/internal/story/repository"
	"datastory/internal/story/service"
	"datastory/internal/visual"
	"datastory/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViewerMux(t *testing.T) (*http.ServeMux, *service.StoryService) {
	t.Helper()
	repo := repository.NewStoryRepository(repository.NewFileBackend(filepath.Join(t.TempDir(), "content.json")))
	registry := visual.NewRegistry(map[string]visual.RendererFunc{
		"ok": func(context.Context, string, string) (*chart.Figure, error) {
			return &chart.Figure{Data: []chart.Trace{{Type: "bar", Name: "</script>"}}}, nil
		},
	})
	svc := service.NewStoryService(repo, registry, render.NewEngine(), nil)
	h := NewViewerHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("GET /stories/{slug}", h.Story)
	return mux, svc
}

func TestViewerPages(t *testing.T) {
	mux, svc := newViewerMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No stories have been published yet.")

	visuals := store.NewOrderedMap[store.VisualSlot]()
	visuals.Set("slot-1", store.VisualSlot{Renderer: "ok", Caption: "Source: survey"})
	visuals.Set("slot-2", store.VisualSlot{Renderer: "missing"})
	_, err := svc.SaveStory(context.Background(), "admin", "jobs", store.StoryDocument{
		Title:    "Youth <jobs>",
		Markdown: "Intro **bold**\n\n{{chart:slot-1}}\n\n{{chart:slot-2}}",
		Visuals:  visuals,
	})
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Body.String(), `href="/stories/jobs"`)
	assert.Contains(t, rec.Body.String(), "Youth &lt;jobs&gt;")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stories/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<strong>bold</strong>")
	assert.Contains(t, body, `id="chart-1"`)
	assert.Contains(t, body, "Source: survey")
	assert.Contains(t, body, `class="notice warning"`)
	assert.NotContains(t, body, `"name":"</script>"`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stories/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package handler

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"datastory/internal/chart"
	"datastory/internal/render"
	"datastory/internal/story/model"
	"datastory/internal/story/repository"
	"datastory/internal/story/service"
	"datastory/internal/visual"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	repo := repository.NewStoryRepository(repository.NewFileBackend(filepath.Join(t.TempDir(), "content.json")))
	registry := visual.NewRegistry(map[string]visual.RendererFunc{
		"ok": func(context.Context, string, string) (*chart.Figure, error) {
			return &chart.Figure{Data: []chart.Trace{{Type: "bar"}}}, nil
		},
	})
	h := NewStoryHandler(service.NewStoryService(repo, registry, render.NewEngine(), nil))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stories", h.ListStories)
	mux.HandleFunc("GET /api/stories/{slug}", h.GetStory)
	mux.HandleFunc("GET /api/stories/{slug}/render", h.RenderStory)
	mux.HandleFunc("GET /api/admin/renderers", h.Renderers)
	mux.HandleFunc("POST /api/admin/slugs", h.SuggestSlug)
	mux.HandleFunc("POST /api/admin/stories", h.CreateStory)
	mux.HandleFunc("GET /api/admin/stories/{slug}/draft", h.Draft)
	mux.HandleFunc("PUT /api/admin/stories/{slug}", h.SaveStory)
	mux.HandleFunc("DELETE /api/admin/stories/{slug}", h.DeleteStory)
	mux.HandleFunc("POST /api/admin/preview", h.Preview)
	mux.HandleFunc("POST /api/admin/source/format", h.FormatSource)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rec
}

func TestStoryLifecycle(t *testing.T) {
	mux := newTestMux(t)

	rec := do(mux, http.MethodPut, "/api/admin/stories/covid", `{
		"title": "Covid",
		"markdown": "# Title\n\n{{chart:slot-1}}",
		"visuals": {"slot-1": {"renderer": "ok", "title": "Cases"}}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var saved model.StoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, "covid", saved.Slug)
	assert.NotEmpty(t, saved.UpdatedAt)

	rec = do(mux, http.MethodGet, "/api/stories/covid", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.StoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "# Title\n\n{{chart:slot-1}}", got.Markdown)

	rec = do(mux, http.MethodGet, "/api/stories/covid/render", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rendered model.RenderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rendered))
	require.Len(t, rendered.Blocks, 2)
	assert.Equal(t, model.BlockChart, rendered.Blocks[1].Type)
	assert.Equal(t, "Cases", rendered.Blocks[1].Title)

	rec = do(mux, http.MethodGet, "/api/stories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.StorySummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Title", list[0].Excerpt)

	rec = do(mux, http.MethodPost, "/api/admin/slugs", `{"title":"Covid"}`)
	assert.JSONEq(t, `{"slug":"covid-2"}`, rec.Body.String())

	rec = do(mux, http.MethodDelete, "/api/admin/stories/covid", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(mux, http.MethodGet, "/api/stories/covid", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveStoryStatusMapping(t *testing.T) {
	mux := newTestMux(t)

	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPut, "/api/admin/stories/a", `{"title":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPut, "/api/admin/stories/a", `{"title":"A","format":"rtf"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(mux, http.MethodPut, "/api/admin/stories/a", `not json`).Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodDelete, "/api/admin/stories/a", "").Code)
	assert.Equal(t, http.StatusNotFound, do(mux, http.MethodGet, "/api/stories/a/render", "").Code)
}

func TestCreateDraftAndPreview(t *testing.T) {
	mux := newTestMux(t)

	rec := do(mux, http.MethodPost, "/api/admin/stories", `{"title":"Youth Jobs"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.StoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "youth-jobs", created.Slug)

	rec = do(mux, http.MethodGet, "/api/admin/stories/youth-jobs/draft", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var draft model.Draft
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	assert.Equal(t, "Youth Jobs", draft.Title)

	draft.Markdown = "intro"
	body, _ := json.Marshal(model.PreviewRequest{Draft: draft})
	rec = do(mux, http.MethodPost, "/api/admin/preview", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	var preview model.RenderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, "youth-jobs", preview.Slug)
	assert.Equal(t, model.BlockText, preview.Blocks[0].Type)

	rec = do(mux, http.MethodGet, "/api/admin/renderers", "")
	assert.JSONEq(t, `{"renderers":["ok"]}`, rec.Body.String())

	rec = do(mux, http.MethodPost, "/api/admin/source/format", `{"source":"▪ one\n▪ two"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "- one")
}

func TestWriteJSONEncodeFailureIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"v": math.Inf(1)})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Header().Get("Content-Type"), "application/json")
}

package router

import (
	"net/http"

	handlers "datastory/handler"
	"datastory/internal/auth"
	catalogHandler "datastory/internal/catalog"
	catalogService "datastory/internal/catalog/service"
	storyHandler "datastory/internal/story"
	storyService "datastory/internal/story/service"
	"datastory/middleware"
	"datastory/socket"
)

type Deps struct {
	Stories       *storyService.StoryService
	Catalog       *catalogService.CatalogService
	Auth          *auth.Service
	Hub           *socket.Hub
	JWTSecret     string
	AllowedOrigin string
}

func Setup(d Deps) http.Handler {
	mux := http.NewServeMux()
	requireAdmin := middleware.AuthMiddleware(d.JWTSecret)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(d.Hub, w, r, middleware.UserID(r))
	})
	mux.Handle("GET /ws", requireAdmin(wsHandler))

	// Public API
	stories := storyHandler.NewStoryHandler(d.Stories)
	contents := catalogHandler.NewCatalogHandler(d.Catalog)

	mux.HandleFunc("GET /api/stories", stories.ListStories)
	mux.HandleFunc("GET /api/stories/{slug}", stories.GetStory)
	mux.HandleFunc("GET /api/stories/{slug}/render", stories.RenderStory)
	mux.HandleFunc("GET /api/contents", contents.GetContents)
	mux.HandleFunc("GET /api/contents/{id}", contents.GetContent)
	mux.HandleFunc("GET /api/categories", contents.GetCategories)

	// Viewer pages
	viewer := handlers.NewViewerHandler(d.Stories)
	mux.HandleFunc("GET /{$}", viewer.Index)
	mux.HandleFunc("GET /stories/{slug}", viewer.Story)

	// Admin API
	login := auth.NewHandler(d.Auth)
	admin := func(h http.HandlerFunc) http.Handler { return requireAdmin(h) }

	mux.HandleFunc("POST /api/admin/login", login.Login)
	mux.Handle("GET /api/admin/renderers", admin(stories.Renderers))
	mux.Handle("POST /api/admin/slugs", admin(stories.SuggestSlug))
	mux.Handle("POST /api/admin/stories", admin(stories.CreateStory))
	mux.Handle("GET /api/admin/stories/{slug}/draft", admin(stories.Draft))
	mux.Handle("PUT /api/admin/stories/{slug}", admin(stories.SaveStory))
	mux.Handle("DELETE /api/admin/stories/{slug}", admin(stories.DeleteStory))
	mux.Handle("POST /api/admin/preview", admin(stories.Preview))
	mux.Handle("POST /api/admin/source/format", admin(stories.FormatSource))
	mux.Handle("PUT /api/admin/contents/{id}", admin(contents.UpdateContent))

	return middleware.RequestLogger(middleware.CORSMiddleware(d.AllowedOrigin)(mux))
}

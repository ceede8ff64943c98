package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// postsRoot is the posts directory assets are served from; empty disables
// the asset route.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler, postsRoot string) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/posts", h.ListPosts)
	r.Get("/posts/{slug}", h.GetPost)
	if postsRoot != "" {
		r.Get("/posts/{slug}/assets/*", NewAssetHandler(postsRoot).ServeFile)
	}

	r.Post("/compile", h.Compile)
	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

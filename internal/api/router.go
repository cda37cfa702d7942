package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/issueblog/internal/postservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced. A nil events
// handler leaves GET /events unrouted.
func NewRouter(svc *postservice.Service, authEnabled bool, token string, events http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Post("/sync", h.Sync)

	r.Get("/posts", h.ListPosts)
	r.Post("/posts", h.CreatePost)
	r.Get("/posts/{id}", h.GetPost)
	r.Post("/posts/{slug}/assets", h.UploadAsset)

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}

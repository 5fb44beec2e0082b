package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultlens/internal/noteservice"
)

// Publisher receives the outcome of index builds triggered over HTTP.
type Publisher interface {
	PublishChange(paths []string, stats any, err error)
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler, pub Publisher) chi.Router {
	h := NewHandler(svc, pub)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/health", h.Health)
	r.Get("/search", h.Search)
	r.Post("/index/build", h.BuildIndex)

	r.Get("/notes", h.ListNotes)
	r.Get("/notes/*", h.GetNote)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

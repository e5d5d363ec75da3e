package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/postservice"
	"github.com/starford/quire/internal/storage"
)

// RouterConfig holds the optional parts of the API router.
type RouterConfig struct {
	// AuthEnabled and Token guard the admin routes.
	AuthEnabled bool
	Token       string
	// Events, if non-nil, is mounted at GET /events and receives reload changes.
	Events interface {
		http.Handler
		Publisher
	}
	// Images, if non-nil, is served under ImagesPrefix.
	Images       *storage.FS
	ImagesPrefix string
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *postservice.Service, cfg RouterConfig) chi.Router {
	var events Publisher
	if cfg.Events != nil {
		events = cfg.Events
	}
	h := NewHandler(svc, events)

	r := chi.NewRouter()

	r.Get("/posts", h.ListPosts)
	r.Get("/posts/{id}", h.GetPost)
	r.Get("/tags", h.ListTags)
	r.Get("/search", h.Search)

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	if cfg.Images != nil && strings.HasPrefix(cfg.ImagesPrefix, "/") {
		ih := NewImageHandler(cfg.Images)
		r.Get(strings.TrimRight(cfg.ImagesPrefix, "/")+"/{id}/{filename}", ih.ServeFile)
	}

	r.Group(func(r chi.Router) {
		if cfg.AuthEnabled {
			r.Use(RequireBearer(cfg.Token))
		}
		r.Post("/admin/reload", h.Reload)
	})

	return r
}

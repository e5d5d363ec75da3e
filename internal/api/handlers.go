package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/locale"
	"github.com/starford/quire/internal/postservice"
	"github.com/starford/quire/internal/sse"
)

// Page size bounds for list and search endpoints.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Publisher receives post change notifications after a reload.
type Publisher interface {
	PublishPostEvent(kind, id, locale string)
}

// Handler holds API route handlers.
type Handler struct {
	svc    *postservice.Service
	events Publisher
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *postservice.Service, events Publisher) *Handler {
	return &Handler{svc: svc, events: events}
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return v
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// requestLocale resolves the locale query parameter against the loaded
// locales, falling back to Accept-Language.
func (h *Handler) requestLocale(r *http.Request) string {
	repo := h.svc.Repository()
	if repo == nil {
		return ""
	}
	if q := r.URL.Query().Get("locale"); q != "" {
		return locale.Normalize(q, repo.Locales(), repo.Locale())
	}
	return locale.Negotiate(r.Header.Get("Accept-Language"), repo.Locales(), repo.Locale())
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error, attrs ...any) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrNotReady), errors.Is(err, apperr.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error(op+" failed", append(attrs, slog.String("error", err.Error()))...)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ListPosts handles GET /posts.
//
//	@Summary		List posts newest first
//	@Tags			posts
//	@Produce		json
//	@Param			limit	query		int		false	"Page size (default 10, max 100)"
//	@Param			offset	query		int		false	"Number of posts to skip"
//	@Param			tag		query		string	false	"Only posts carrying this tag"
//	@Param			locale	query		string	false	"Locale variant"
//	@Success		200		{object}	PostListResponse
//	@Router			/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit := clampLimit(queryInt(r, "limit", DefaultLimit))
	offset := max(queryInt(r, "offset", 0), 0)
	loc := h.requestLocale(r)

	page, err := h.svc.ListPosts(r.Context(), loc, r.URL.Query().Get("tag"), limit, offset)
	if err != nil {
		h.writeServiceError(w, "list posts", err)
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{
		Posts:      summaryDTOs(page.Posts, h.svc.DefaultLocale()),
		HasNext:    page.HasNext,
		NextOffset: page.NextOffset,
	})
}

// GetPost handles GET /posts/{id}.
//
//	@Summary		Get a single post with rendered HTML
//	@Tags			posts
//	@Produce		json
//	@Param			id		path		string	true	"Post id (directory name)"
//	@Param			locale	query		string	false	"Locale variant"
//	@Success		200		{object}	PostDetailDTO
//	@Success		304		"Not modified"
//	@Failure		404		{object}	errResponse
//	@Router			/posts/{id} [get]
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	loc := h.requestLocale(r)

	p, err := h.svc.GetPost(r.Context(), id, loc)
	if err != nil {
		h.writeServiceError(w, "get post", err, slog.String("id", id))
		return
	}

	w.Header().Set("ETag", p.ETag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == p.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, PostDetailDTO{
		PostDetail: *p,
		URL:        locale.PostPath(p.ID, p.Locale, h.svc.DefaultLocale()),
	})
}

// ListTags handles GET /tags.
//
//	@Summary		List tags with post counts
//	@Tags			posts
//	@Produce		json
//	@Param			locale	query		string	false	"Locale variant"
//	@Success		200		{object}	TagListResponse
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context(), h.requestLocale(r))
	if err != nil {
		h.writeServiceError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// Search handles GET /search.
//
//	@Summary		Full-text search across posts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Param			locale	query		string	false	"Locale variant"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := clampLimit(queryInt(r, "limit", DefaultLimit))

	hits, err := h.svc.Search(r.Context(), q, h.requestLocale(r), limit)
	if err != nil {
		h.writeServiceError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: searchDTOs(hits, h.svc.DefaultLocale())})
}

// Reload handles POST /admin/reload.
//
//	@Summary		Reload the corpus from disk
//	@Tags			admin
//	@Produce		json
//	@Success		200		{object}	ReloadResponse
//	@Failure		401		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/admin/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	changes, err := h.svc.Reload(r.Context())
	if err != nil {
		slog.Error("reload failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	Publish(h.events, changes)
	if changes == nil {
		changes = []postservice.Change{}
	}
	writeJSON(w, http.StatusOK, ReloadResponse{Changes: changes})
}

// Publish forwards reload changes to events. A nil Publisher is a no-op.
func Publish(events Publisher, changes []postservice.Change) {
	if events == nil {
		return
	}
	for _, c := range changes {
		events.PublishPostEvent(c.Kind, c.ID, c.Locale)
	}
}

var _ Publisher = (*sse.Broker)(nil)

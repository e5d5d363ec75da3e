// Package postservice serves the current post corpus and swaps it on reload.
package postservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/metrics"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/post"
	"github.com/starford/quire/internal/render"
)

// Loader builds a fresh repository from the content roots.
type Loader func() (*post.Repository, error)

// PostDetail is a full post with its rendered body.
type PostDetail struct {
	models.Post
	HTML string `json:"html"`
	ETag string `json:"-"`
}

// Page is one slice of a listing. HasNext follows the full-page rule: a page
// holding exactly limit posts may be followed by more.
type Page struct {
	Posts      []models.PostSummary `json:"posts"`
	HasNext    bool                 `json:"hasNext"`
	NextOffset int                  `json:"nextOffset"`
}

// SearchHit is a matching post with a highlighted snippet.
type SearchHit struct {
	models.PostSummary
	Snippet string `json:"snippet"`
}

// snapshot pairs a repository with the HTML rendered from it.
type snapshot struct {
	repo *post.Repository
	html sync.Map // checksum -> rendered HTML
}

// Service coordinates the in-memory repository, the search index and the
// renderer.
type Service struct {
	load     Loader
	db       index.PostIndex
	renderer *render.Renderer
	metrics  metrics.Recorder
	logger   *slog.Logger

	current  atomic.Pointer[snapshot]
	reloadMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithIndex enables search and keeps db in sync with every load.
func WithIndex(db index.PostIndex) Option {
	return func(s *Service) { s.db = db }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New performs the initial load. A load failure is returned unchanged so the
// caller can abort startup.
func New(load Loader, opts ...Option) (*Service, error) {
	s := &Service{
		load:     load,
		renderer: render.New(),
		metrics:  metrics.Nop{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	start := time.Now()
	repo, err := load()
	if err != nil {
		s.metrics.RecordReload(metrics.ReloadFailed, time.Since(start))
		return nil, err
	}
	s.metrics.RecordReload(metrics.ReloadOK, time.Since(start))
	s.install(repo)
	s.syncIndex(repo)
	return s, nil
}

func (s *Service) install(repo *post.Repository) {
	s.current.Store(&snapshot{repo: repo})
	for _, loc := range repo.Locales() {
		s.metrics.SetPostsLoaded(loc, repo.In(loc).Len())
	}
}

func (s *Service) loaded() (*snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, apperr.ErrNotReady
	}
	return snap, nil
}

// Ready reports whether a corpus is loaded.
func (s *Service) Ready() bool {
	return s.current.Load() != nil
}

// Repository returns the current repository.
func (s *Service) Repository() *post.Repository {
	if snap := s.current.Load(); snap != nil {
		return snap.repo
	}
	return nil
}

// DefaultLocale returns the locale of index.md files.
func (s *Service) DefaultLocale() string {
	if repo := s.Repository(); repo != nil {
		return repo.Locale()
	}
	return ""
}

// GetPost returns post id in locale with its body rendered to HTML.
func (s *Service) GetPost(_ context.Context, id, locale string) (*PostDetail, error) {
	snap, err := s.loaded()
	if err != nil {
		return nil, err
	}
	p, err := snap.repo.In(locale).Get(id)
	if err != nil {
		return nil, err
	}

	html, err := s.html(snap, p)
	if err != nil {
		return nil, err
	}
	return &PostDetail{Post: *p, HTML: html, ETag: checksum.ETag(p.Checksum)}, nil
}

func (s *Service) html(snap *snapshot, p *models.Post) (string, error) {
	if v, ok := snap.html.Load(p.Checksum); ok {
		return v.(string), nil
	}
	out, err := s.renderer.HTML(p.Content)
	if err != nil {
		return "", fmt.Errorf("postservice: render %s: %w", p.ID, err)
	}
	snap.html.Store(p.Checksum, out)
	return out, nil
}

// ListPosts returns one page of summaries in locale, optionally restricted
// to tag.
func (s *Service) ListPosts(_ context.Context, locale, tag string, limit, offset int) (*Page, error) {
	snap, err := s.loaded()
	if err != nil {
		return nil, err
	}
	c := snap.repo.In(locale)

	var posts []models.PostSummary
	if tag != "" {
		posts = c.ListByTag(tag, limit, offset)
	} else {
		posts = c.List(limit, offset)
	}

	if offset < 0 {
		offset = 0
	}
	return &Page{
		Posts:      posts,
		HasNext:    limit > 0 && len(posts) == limit,
		NextOffset: offset + len(posts),
	}, nil
}

// Tags returns tag counts for locale.
func (s *Service) Tags(_ context.Context, locale string) ([]models.Tag, error) {
	snap, err := s.loaded()
	if err != nil {
		return nil, err
	}
	return snap.repo.In(locale).Tags(), nil
}

// Search runs a full-text query and returns at most limit hits visible in
// locale. A post with no variant in locale matches through its default-locale
// text.
func (s *Service) Search(_ context.Context, query, locale string, limit int) ([]SearchHit, error) {
	if s.db == nil {
		return nil, fmt.Errorf("postservice: search: %w", apperr.ErrUnavailable)
	}
	snap, err := s.loaded()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []SearchHit{}, nil
	}

	c := snap.repo.In(locale)
	// Each post can match once per indexed locale, so rows for other
	// locales are skipped and the next batch is fetched until limit is met.
	batch := limit * len(snap.repo.Locales())
	hits := make([]SearchHit, 0, limit)
	for offset := 0; ; offset += batch {
		results, err := s.db.Search(query, batch, offset)
		if err != nil {
			return nil, fmt.Errorf("postservice: search: %w", err)
		}
		for _, r := range results {
			p, err := c.Get(r.ID)
			if err != nil || p.Locale != r.Locale {
				continue
			}
			hits = append(hits, SearchHit{PostSummary: p.Summary(), Snippet: r.Snippet})
			if len(hits) == limit {
				return hits, nil
			}
		}
		if len(results) < batch {
			return hits, nil
		}
	}
}

// all returns every post of every locale variant, default locale first.
// Fallback entries are skipped so each (id, locale) appears once.
func all(repo *post.Repository) []*models.Post {
	var out []*models.Post
	for _, loc := range repo.Locales() {
		for _, p := range repo.In(loc).All() {
			if p.Locale == loc {
				out = append(out, p)
			}
		}
	}
	return out
}

func (s *Service) syncIndex(repo *post.Repository) {
	if s.db == nil {
		return
	}
	stats, err := index.Sync(s.db, all(repo), s.logger)
	if err != nil {
		s.logger.Warn("index sync failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("index synced",
		slog.Int("upserted", stats.Upserted),
		slog.Int("deleted", stats.Deleted))
}

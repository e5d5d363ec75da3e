// Package post loads blog posts from the content directory and serves them
// from memory.
//
// A Repository is built once by Load and never mutated afterwards, so it can
// be shared by any number of concurrent readers without locking.
package post

import (
	"cmp"
	"slices"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
)

// Collection is the sorted, indexed set of posts for one locale.
type Collection struct {
	locale string
	posts  []*models.Post
	byID   map[string]*models.Post
	byTag  map[string][]*models.Post
	tags   []models.Tag
}

func newCollection(locale string, posts []*models.Post, directoryOrder bool) *Collection {
	sortPosts(posts, directoryOrder)

	c := &Collection{
		locale: locale,
		posts:  posts,
		byID:   make(map[string]*models.Post, len(posts)),
		byTag:  make(map[string][]*models.Post),
	}
	for _, p := range posts {
		c.byID[p.ID] = p
		for _, t := range p.Tags {
			c.byTag[t] = append(c.byTag[t], p)
		}
	}

	c.tags = make([]models.Tag, 0, len(c.byTag))
	for name, tagged := range c.byTag {
		c.tags = append(c.tags, models.Tag{Name: name, NumberOfPosts: len(tagged)})
	}
	slices.SortFunc(c.tags, func(a, b models.Tag) int {
		if n := cmp.Compare(b.NumberOfPosts, a.NumberOfPosts); n != 0 {
			return n
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return c
}

// Locale returns the locale of the collection.
func (c *Collection) Locale() string {
	return c.locale
}

// Len returns the number of posts.
func (c *Collection) Len() int {
	return len(c.posts)
}

// Get returns a copy of the post with the given id.
func (c *Collection) Get(id string) (*models.Post, error) {
	p, ok := c.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return p.Clone(), nil
}

// List returns at most limit summaries starting at offset, newest first.
// An offset past the end yields an empty slice.
func (c *Collection) List(limit, offset int) []models.PostSummary {
	return page(c.posts, limit, offset)
}

// ListByTag is List restricted to posts carrying tag.
func (c *Collection) ListByTag(tag string, limit, offset int) []models.PostSummary {
	return page(c.byTag[tag], limit, offset)
}

// CountByTag returns how many posts carry tag.
func (c *Collection) CountByTag(tag string) int {
	return len(c.byTag[tag])
}

// Tags returns every tag with its post count, most used first.
func (c *Collection) Tags() []models.Tag {
	return slices.Clone(c.tags)
}

// All returns copies of every post in listing order.
func (c *Collection) All() []*models.Post {
	out := make([]*models.Post, len(c.posts))
	for i, p := range c.posts {
		out[i] = p.Clone()
	}
	return out
}

// Repository holds the default-locale collection plus one collection per
// extra locale. Posts without a variant appear in their default-locale form.
type Repository struct {
	*Collection
	locales map[string]*Collection
}

// In returns the collection for locale, or the default collection when the
// locale is empty or unknown.
func (r *Repository) In(locale string) *Collection {
	if c, ok := r.locales[locale]; ok {
		return c
	}
	return r.Collection
}

// Locales returns the default locale followed by the extra locales, sorted.
func (r *Repository) Locales() []string {
	extra := make([]string, 0, len(r.locales))
	for l := range r.locales {
		extra = append(extra, l)
	}
	slices.Sort(extra)
	return append([]string{r.locale}, extra...)
}

func page(posts []*models.Post, limit, offset int) []models.PostSummary {
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(posts) {
		return []models.PostSummary{}
	}
	end := len(posts)
	if limit < end-offset {
		end = offset + limit
	}
	out := make([]models.PostSummary, 0, end-offset)
	for _, p := range posts[offset:end] {
		out = append(out, p.Summary())
	}
	return out
}

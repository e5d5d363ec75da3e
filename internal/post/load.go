package post

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/parser"
	"github.com/starford/quire/internal/storage"
)

// IndexFile is the markdown file read from every post directory.
const IndexFile = "index.md"

// InvalidTimestamp is stored as PublishedAt when the date key cannot be
// parsed. It sorts after every valid date.
const InvalidTimestamp int64 = math.MinInt64

var requiredKeys = []string{"title", "description", "date"}

// Load reads every post directory below the posts root and builds an
// immutable Repository. images may be nil, in which case no post has a
// thumbnail. The first malformed post aborts the load.
func Load(posts, images storage.Provider, opts ...LoadOption) (*Repository, error) {
	o := newLoadOptions(opts)

	ids, err := posts.ListDirs("")
	if err != nil {
		return nil, fmt.Errorf("post: list content root: %w", err)
	}

	base := make([]*models.Post, 0, len(ids))
	variants := make(map[string][]*models.Post, len(o.locales))

	for _, id := range ids {
		if strings.HasPrefix(id, ".") {
			continue
		}

		thumb, err := thumbnailURL(images, id, o.urlPrefix)
		if err != nil {
			return nil, &LoadError{ID: id, Err: err}
		}

		p, err := readPost(posts, id, IndexFile, o.defaultLocale, o.logger)
		if err != nil {
			return nil, err
		}
		p.ThumbnailURL = thumb
		base = append(base, p)

		for _, loc := range o.locales {
			name := VariantFile(loc)
			ok, err := posts.Exists(filepath.Join(id, name))
			if err != nil {
				return nil, &LoadError{ID: id, File: name, Err: err}
			}
			if !ok {
				variants[loc] = append(variants[loc], p)
				continue
			}
			v, err := readPost(posts, id, name, loc, o.logger)
			if err != nil {
				return nil, err
			}
			v.ThumbnailURL = thumb
			variants[loc] = append(variants[loc], v)
		}
	}

	repo := &Repository{
		Collection: newCollection(o.defaultLocale, base, o.directoryOrder),
		locales:    make(map[string]*Collection, len(variants)),
	}
	for _, loc := range o.locales {
		repo.locales[loc] = newCollection(loc, variants[loc], o.directoryOrder)
	}
	return repo, nil
}

// VariantFile returns the file name of the locale variant of a post.
func VariantFile(locale string) string {
	return "index." + locale + ".md"
}

func readPost(posts storage.Provider, id, name, locale string, logger *slog.Logger) (*models.Post, error) {
	data, err := posts.Read(filepath.Join(id, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{ID: id, File: name, Err: ErrMissingFile}
		}
		return nil, &LoadError{ID: id, File: name, Err: err}
	}

	doc, err := parser.Parse(string(data))
	if err != nil {
		return nil, &LoadError{ID: id, File: name, Err: err}
	}
	for _, key := range requiredKeys {
		if _, ok := doc.Get(key); !ok {
			return nil, &LoadError{ID: id, File: name, Err: fmt.Errorf("%w: %s", ErrMissingMetadata, key)}
		}
	}

	date, _ := doc.Get("date")
	publishedAt, ok := parseDate(date)
	if !ok {
		logger.Warn("post: unparseable date",
			slog.String("id", id),
			slog.String("file", name),
			slog.String("date", date))
	}

	title, _ := doc.Get("title")
	description, _ := doc.Get("description")
	tags, _ := doc.Get("tags")

	return &models.Post{
		ID:          id,
		Title:       title,
		Description: description,
		Content:     doc.Content,
		PublishedAt: publishedAt,
		Tags:        parser.ParseList(tags),
		Locale:      locale,
		Checksum:    checksum.Sum(data),
	}, nil
}

// parseDate converts a front-matter date to Unix milliseconds. Dates without
// a zone are read as UTC.
func parseDate(s string) (int64, bool) {
	t, err := cast.ToTimeInDefaultLocationE(strings.TrimSpace(s), time.UTC)
	if err != nil {
		return InvalidTimestamp, false
	}
	return t.UnixMilli(), true
}

// thumbnailURL returns the public URL of the first "thumbnail.*" file in the
// post's image directory. A missing directory means no thumbnail.
func thumbnailURL(images storage.Provider, id, prefix string) (*string, error) {
	if images == nil {
		return nil, nil
	}
	entries, err := images.ReadDir(id)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "thumbnail.") {
			continue
		}
		u := strings.TrimRight(prefix, "/") + "/" + id + "/" + e.Name()
		return &u, nil
	}
	return nil, nil
}

func sortPosts(posts []*models.Post, directoryOrder bool) {
	slices.SortStableFunc(posts, func(a, b *models.Post) int {
		if !directoryOrder {
			if c := cmp.Compare(b.PublishedAt, a.PublishedAt); c != 0 {
				return c
			}
		}
		return cmp.Compare(b.ID, a.ID)
	})
}

package postservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/quire/internal/metrics"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/post"
)

// Change kinds.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// Change describes how one post variant differs between two corpora.
type Change struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Locale string `json:"locale"`
}

// Reload rebuilds the repository and swaps it in. On failure the current
// corpus keeps serving and the error is returned. Concurrent calls are
// serialised.
func (s *Service) Reload(ctx context.Context) ([]Change, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	repo, err := s.load()
	if err != nil {
		s.metrics.RecordReload(metrics.ReloadFailed, time.Since(start))
		s.logger.Error("reload failed, keeping current corpus", slog.String("error", err.Error()))
		return nil, fmt.Errorf("postservice: reload: %w", err)
	}
	s.metrics.RecordReload(metrics.ReloadOK, time.Since(start))

	var prev *post.Repository
	if snap := s.current.Load(); snap != nil {
		prev = snap.repo
	}
	s.install(repo)
	s.syncIndex(repo)

	changes := Diff(prev, repo)
	s.logger.Info("reload complete",
		slog.Int("posts", repo.Len()),
		slog.Int("changes", len(changes)),
		slog.Duration("took", time.Since(start)))
	return changes, nil
}

// Diff compares the post variants of two repositories by checksum. prev may
// be nil, in which case every post is reported as created. Changes are
// ordered by locale, then by listing order, with deletions last.
func Diff(prev, next *post.Repository) []Change {
	before := variants(prev)
	var changes []Change

	after := make(map[variantKey]struct{})
	for _, p := range all(next) {
		k := variantKey{id: p.ID, locale: p.Locale}
		after[k] = struct{}{}
		old, ok := before[k]
		switch {
		case !ok:
			changes = append(changes, Change{Kind: Created, ID: p.ID, Locale: p.Locale})
		case old.Checksum != p.Checksum || !sameThumbnail(old.ThumbnailURL, p.ThumbnailURL):
			changes = append(changes, Change{Kind: Updated, ID: p.ID, Locale: p.Locale})
		}
	}

	if prev != nil {
		for _, p := range all(prev) {
			k := variantKey{id: p.ID, locale: p.Locale}
			if _, ok := after[k]; !ok {
				changes = append(changes, Change{Kind: Deleted, ID: p.ID, Locale: p.Locale})
			}
		}
	}
	return changes
}

type variantKey struct {
	id, locale string
}

func variants(repo *post.Repository) map[variantKey]*models.Post {
	out := make(map[variantKey]*models.Post)
	if repo == nil {
		return out
	}
	for _, p := range all(repo) {
		out[variantKey{id: p.ID, locale: p.Locale}] = p
	}
	return out
}

func sameThumbnail(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

package index

import (
	"log/slog"

	"github.com/starford/quire/internal/models"
)

// SyncStats reports what a Sync changed.
type SyncStats struct {
	Upserted int
	Deleted  int
}

// Sync brings the index in line with posts:
//   - new/changed variants (by checksum) are upserted
//   - indexed variants missing from posts are deleted
//
// posts may contain the same variant more than once; later copies are skipped.
func Sync(db PostIndex, posts []*models.Post, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats

	checksums, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	seen := make(map[Key]struct{}, len(posts))
	for _, p := range posts {
		k := Key{ID: p.ID, Locale: p.Locale}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}

		if checksums[k] == p.Checksum && p.Checksum != "" {
			continue
		}
		if err := db.UpsertPost(rowFromPost(p)); err != nil {
			logger.Warn("sync: index failed", slog.String("id", p.ID), slog.String("locale", p.Locale), slog.String("error", err.Error()))
			continue
		}
		stats.Upserted++
		logger.Debug("sync: indexed", slog.String("id", p.ID), slog.String("locale", p.Locale))
	}

	for k := range checksums {
		if _, ok := seen[k]; ok {
			continue
		}
		if err := db.DeletePost(k); err != nil {
			logger.Warn("sync: delete failed", slog.String("id", k.ID), slog.String("error", err.Error()))
			continue
		}
		stats.Deleted++
		logger.Debug("sync: removed stale", slog.String("id", k.ID), slog.String("locale", k.Locale))
	}

	return stats, nil
}

func rowFromPost(p *models.Post) PostRow {
	return PostRow{
		Key:         Key{ID: p.ID, Locale: p.Locale},
		Title:       p.Title,
		Description: p.Description,
		Tags:        p.Tags,
		Body:        p.Content,
		PublishedAt: p.PublishedAt,
		Checksum:    p.Checksum,
	}
}

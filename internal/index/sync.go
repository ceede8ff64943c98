package index

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/readingtime"
)

// Sync brings the index in line with the content directory:
//   - new and changed posts are compiled and upserted
//   - posts that vanished, became drafts or stopped compiling are removed
//
// A post that fails to compile is logged and skipped; it does not abort
// the pass. cb may be nil.
func Sync(ctx context.Context, db PostIndex, posts Posts, logger *slog.Logger, cb EventCallback) error {
	sources, err := posts.Sources()
	if err != nil {
		return err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	handled := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		handled[src.Slug] = struct{}{}
		update(ctx, db, posts, src.Slug, checksums[src.Slug], logger, cb)
	}

	for slug := range checksums {
		if _, ok := handled[slug]; ok {
			continue
		}
		if err := db.DeletePost(slug); err != nil {
			logger.Warn("sync: delete failed", slog.String("slug", slug), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("slug", slug))
		if cb != nil {
			cb("deleted", slug)
		}
	}
	return nil
}

// update reindexes slug, logs the outcome and reports it to cb. prev is
// the checksum currently stored for slug.
func update(ctx context.Context, db PostIndex, posts Posts, slug, prev string, logger *slog.Logger, cb EventCallback) {
	kind, err := reindex(ctx, db, posts, slug, prev)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Warn("index: update failed", slog.String("slug", slug), slog.String("error", err.Error()))
		if prev == "" {
			return
		}
		// A post that no longer compiles leaves search.
		if err := db.DeletePost(slug); err != nil {
			return
		}
		kind = "deleted"
	}
	if kind == "" {
		return
	}
	logger.Debug("index: updated", slog.String("slug", slug), slog.String("op", kind))
	if cb != nil {
		cb(kind, slug)
	}
}

// reindex compiles slug and updates its row. It returns the kind of change
// made: "created", "updated", "deleted", or "" when the row was current.
// prev is the checksum currently stored for slug.
func reindex(ctx context.Context, db PostIndex, posts Posts, slug, prev string) (string, error) {
	p, err := posts.GetPost(ctx, slug)
	if errors.Is(err, apperr.ErrNotFound) || (err == nil && !posts.Listed(p)) {
		if prev == "" {
			return "", nil
		}
		if err := db.DeletePost(slug); err != nil {
			return "", err
		}
		return "deleted", nil
	}
	if err != nil {
		return "", err
	}
	if p.Checksum == prev {
		return "", nil
	}
	if err := db.UpsertPost(rowFor(p), p.ContentMarkdown); err != nil {
		return "", err
	}
	if prev == "" {
		return "created", nil
	}
	return "updated", nil
}

func rowFor(p *models.Post) PostRow {
	var words int
	if p.ReadingTime != nil {
		words = p.ReadingTime.Words
	} else {
		words = readingtime.CountWords(p.ContentMarkdown)
	}
	return PostRow{
		Slug:        p.Slug,
		Title:       p.Title,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		Words:       words,
		Checksum:    p.Checksum,
	}
}

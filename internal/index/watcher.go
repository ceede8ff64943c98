package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce delays used by Watch.
const (
	DefaultDebounce = 150 * time.Millisecond
	reconcileDelay  = 200 * time.Millisecond
)

// Watch follows changes under the content root until ctx is cancelled.
// For every post touched by a change it drops the cached compilation,
// reindexes the post and calls cb (if non-nil) when the index changed.
//
// Bursts of events for one post are collapsed: the post is processed once
// the burst has been quiet for DefaultDebounce. New directories are added
// to the watch list. Renames schedule a full Sync to pick up stragglers.
func Watch(ctx context.Context, db PostIndex, posts Posts, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	var flushTimer, reconcileTimer *time.Timer
	var flushCh, reconcileCh <-chan time.Time

	schedule := func(t **time.Timer, ch *<-chan time.Time, d time.Duration) {
		if *t == nil {
			*t = time.NewTimer(d)
			*ch = (*t).C
			return
		}
		(*t).Reset(d)
	}

	stop := func() {
		for _, t := range []*time.Timer{flushTimer, reconcileTimer} {
			if t != nil {
				t.Stop()
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			flushTimer, flushCh = nil, nil
			for slug := range pending {
				delete(pending, slug)
				posts.Invalidate(slug)
				prev, err := db.GetChecksum(slug)
				if err != nil {
					logger.Warn("watcher: checksum lookup failed", slog.String("slug", slug), slog.String("error", err.Error()))
					continue
				}
				update(ctx, db, posts, slug, prev, logger, cb)
			}

		case <-reconcileCh:
			reconcileTimer, reconcileCh = nil, nil
			if err := Sync(ctx, db, posts, logger, cb); err != nil && ctx.Err() == nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				stop()
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
				}
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			slug, ok := posts.SlugFor(filepath.ToSlash(rel))
			if !ok {
				continue
			}
			pending[slug] = struct{}{}
			schedule(&flushTimer, &flushCh, DefaultDebounce)

			if ev.Op&fsnotify.Rename != 0 {
				// fsnotify reports only the old name; the new one shows up
				// as a Create if it stays under a watched directory.
				schedule(&reconcileTimer, &reconcileCh, reconcileDelay)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				stop()
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and its non-hidden subdirectories to w.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

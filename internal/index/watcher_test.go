package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/storage"
)

func post(title string) []byte {
	return []byte("---\ntitle: " + title + "\ncreatedAt: \"2023-01-01\"\n---\n\n# " + title + "\n\nSome words about " + title + ".\n")
}

// watcherTestEnv sets up a content dir, a content service and a DB.
func watcherTestEnv(t *testing.T) (string, *content.Service, *DB) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	svc := content.NewService(store, pipeline.New(), content.WithHideDrafts(true))
	return root, svc, testDB(t)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) record(kind, slug string) {
	l.mu.Lock()
	l.events = append(l.events, kind+":"+slug)
	l.mu.Unlock()
}

func (l *eventLog) has(e string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.events {
		if got == e {
			return true
		}
	}
	return false
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func indexed(db *DB, slug string) func() bool {
	return func() bool {
		cs, _ := db.GetChecksum(slug)
		return cs != ""
	}
}

func TestSync(t *testing.T) {
	root, svc, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(root, "a.md"), post("Alpha"), 0o644)
	_ = os.MkdirAll(filepath.Join(root, "b"), 0o755)
	_ = os.WriteFile(filepath.Join(root, "b", "index.md"), post("Beta"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "broken.md"), []byte("---\ntitle: 1\n---\n"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "draft.md"), []byte("---\ntitle: D\ncreatedAt: \"2023-01-01\"\ndraft: true\n---\n"), 0o644)
	_ = db.UpsertPost(PostRow{Slug: "stale", Checksum: "old"}, "")

	var log eventLog
	if err := Sync(context.Background(), db, svc, quietLogger(), log.record); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	all, _ := db.AllChecksums()
	if len(all) != 2 || all["a"] == "" || all["b"] == "" {
		t.Errorf("indexed = %v, want a and b", all)
	}
	for _, e := range []string{"created:a", "created:b", "deleted:stale"} {
		if !log.has(e) {
			t.Errorf("missing event %s in %v", e, log.events)
		}
	}

	// A second pass over unchanged content does nothing.
	var again eventLog
	_ = Sync(context.Background(), db, svc, quietLogger(), again.record)
	if len(again.events) != 0 {
		t.Errorf("unexpected events on resync: %v", again.events)
	}

	results, _ := db.Search("Alpha", 10)
	if len(results) != 1 || results[0].Slug != "a" {
		t.Errorf("search = %+v", results)
	}
}

func TestSync_RemovesPostThatStopsCompiling(t *testing.T) {
	root, svc, db := watcherTestEnv(t)
	path := filepath.Join(root, "p.md")
	_ = os.WriteFile(path, post("P"), 0o644)
	_ = Sync(context.Background(), db, svc, quietLogger(), nil)

	_ = os.WriteFile(path, []byte("---\ntitle: [oops]\n---\n"), 0o644)
	svc.Invalidate("p")

	var log eventLog
	_ = Sync(context.Background(), db, svc, quietLogger(), log.record)
	if cs, _ := db.GetChecksum("p"); cs != "" {
		t.Error("invalid post still indexed")
	}
	if !log.has("deleted:p") {
		t.Errorf("events = %v, want deleted:p", log.events)
	}
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, svc, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var log eventLog
	go Watch(ctx, db, svc, root, quietLogger(), log.record)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "new.md"), post("New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, indexed(db, "new"), "new file not indexed by watcher")
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:new")
	}, "expected created:new callback")
}

func TestWatcher_UpdateInvalidatesCache(t *testing.T) {
	root, svc, db := watcherTestEnv(t)
	path := filepath.Join(root, "edit.md")
	_ = os.WriteFile(path, post("Before"), 0o644)
	_ = Sync(context.Background(), db, svc, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var log eventLog
	go Watch(ctx, db, svc, root, quietLogger(), log.record)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(path, post("After"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return log.has("updated:edit")
	}, "expected updated:edit callback")

	p, err := svc.GetPost(context.Background(), "edit")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if p.Title != "After" {
		t.Errorf("title = %q, want fresh compile", p.Title)
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, svc, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, svc, root, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(root, "deep")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "index.md"), post("Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, indexed(db, "deep"), "post in new dir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, svc, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(root, "del.md"), post("Delete Me"), 0o644)
	_ = Sync(context.Background(), db, svc, quietLogger(), nil)

	if cs, _ := db.GetChecksum("del"); cs == "" {
		t.Fatal("precondition: post should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, svc, root, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(root, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del")
		return cs == ""
	}, "deleted post still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, svc, db := watcherTestEnv(t)
	_ = os.WriteFile(filepath.Join(root, "old.md"), post("Rename"), 0o644)
	_ = Sync(context.Background(), db, svc, quietLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, svc, root, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(root, "old.md"), filepath.Join(root, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old")
		newCS, _ := db.GetChecksum("renamed")
		return oldCS == "" && newCS != ""
	}, "rename: old slug should be removed and new slug indexed")
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	root, svc, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, db, svc, root, quietLogger(), nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

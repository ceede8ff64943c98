// Package testutil provides shared test helpers for setting up content
// directories and search indexes.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary content directory with a storage.FS.
func TestStore(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestContent returns a content service over a fresh directory with drafts
// hidden, and the compiler it uses.
func TestContent(t *testing.T, opts ...content.Option) (*content.Service, *storage.FS) {
	t.Helper()
	store := TestStore(t)
	compiler := pipeline.New()
	opts = append([]content.Option{content.WithHideDrafts(true)}, opts...)
	return content.NewService(store, compiler, opts...), store
}

// WriteFile writes body to rel under root, creating parent directories.
func WriteFile(t *testing.T, root, rel, body string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

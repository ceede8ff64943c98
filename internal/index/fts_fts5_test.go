//go:build sqlite_fts5

package index

import (
	"strings"
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM posts_fts`).Scan(&count); err != nil {
		t.Fatalf("posts_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	row := PostRow{Slug: "fts", Title: "FTS Post", Checksum: "f1"}
	if err := db.UpsertPost(row, "Quire provides powerful full-text search capabilities."); err != nil {
		t.Fatalf("UpsertPost: %v", err)
	}

	results, err := db.Search("powerful", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Slug != "fts" {
		t.Errorf("slug = %q", results[0].Slug)
	}
	if !strings.Contains(results[0].Snippet, "<b>powerful</b>") {
		t.Errorf("snippet = %q, want highlighted match", results[0].Snippet)
	}
}

func TestFTS5_DeleteRemovesEntry(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPost(PostRow{Slug: "gone", Title: "Gone", Checksum: "1"}, "ephemeral words")
	if err := db.DeletePost("gone"); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	results, _ := db.Search("ephemeral", 10)
	if len(results) != 0 {
		t.Errorf("deleted post still matches: %+v", results)
	}
}

func TestFTS5_Diacritics(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPost(PostRow{Slug: "cafe", Title: "Café", Checksum: "1"}, "un café crème")
	results, _ := db.Search("creme", 10)
	if len(results) != 1 {
		t.Errorf("remove_diacritics not applied: %+v", results)
	}
}

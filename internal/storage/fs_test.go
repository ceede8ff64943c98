package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func tempContent(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestWriteAndRead(t *testing.T) {
	s := tempContent(t)
	content := []byte("---\ntitle: Hi\n---\n# Hello\n")
	if err := s.Write("hello.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("hello.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissing(t *testing.T) {
	s := tempContent(t)
	_, err := s.Read("nope.md")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want fs.ErrNotExist", err)
	}
	if _, err := s.Stat("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat err = %v, want fs.ErrNotExist", err)
	}
}

func TestReadDir(t *testing.T) {
	s := tempContent(t)
	_ = s.Write("b.md", []byte("b"))
	_ = s.Write("a/index.md", []byte("a"))
	_ = s.Write(".hidden.md", []byte("x"))

	entries, err := s.ReadDir("")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(entries), entries)
	}
	if entries[0].Name != "a" || !entries[0].IsDir || entries[0].Path != "a" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Name != "b.md" || entries[1].IsDir {
		t.Errorf("entries[1] = %+v", entries[1])
	}

	sub, err := s.ReadDir("a")
	if err != nil {
		t.Fatalf("ReadDir(a): %v", err)
	}
	if len(sub) != 1 || sub[0].Path != "a/index.md" {
		t.Errorf("sub = %+v", sub)
	}
}

func TestStat(t *testing.T) {
	s := tempContent(t)
	_ = s.Write("dir/post.md", []byte("x"))
	e, err := s.Stat("dir")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !e.IsDir || e.Path != "dir" {
		t.Errorf("Stat(dir) = %+v", e)
	}
}

func TestDelete(t *testing.T) {
	s := tempContent(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestRel(t *testing.T) {
	s := tempContent(t)
	rel, err := s.Rel(filepath.Join(s.Root(), "x", "y.md"))
	if err != nil || rel != "x/y.md" {
		t.Errorf("Rel = %q, %v", rel, err)
	}
	if _, err := s.Rel(filepath.Dir(s.Root())); err == nil {
		t.Error("expected error for path outside root")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempContent(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if _, err := s.ReadDir(p); err == nil {
			t.Errorf("expected error listing %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempContent(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, ".quire-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "quire-test-*")
	_ = f.Close()
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}

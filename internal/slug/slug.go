// Package slug derives document slugs from file paths and anchor ids from
// heading text.
package slug

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

// Extensions lists the document extensions a slug is stripped of.
var Extensions = []string{".md", ".mdx"}

// FromPath returns the slug for a document path. "blog/hello/index.md"
// becomes "hello" and "blog/hello.mdx" becomes "hello". Both the OS
// separator and "/" are accepted.
func FromPath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimRight(p, "/")
	dir, base := splitLast(p)
	for _, ext := range Extensions {
		if base == "index"+ext {
			_, parent := splitLast(dir)
			return parent
		}
	}
	for _, ext := range Extensions {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}

// IsDocument reports whether name carries a document extension.
func IsDocument(name string) bool {
	for _, ext := range Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func splitLast(p string) (dir, base string) {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

// Slugger hands out GitHub-style anchor ids, suffixing repeats with -1, -2...
// A Slugger is not safe for concurrent use; create one per document.
type Slugger struct {
	seen map[string]int
}

// NewSlugger returns an empty Slugger.
func NewSlugger() *Slugger {
	return &Slugger{seen: map[string]int{}}
}

// Slug returns a unique id for text.
func (s *Slugger) Slug(text string) string {
	base := Anchor(text)
	out := base
	for {
		if _, dup := s.seen[out]; !dup {
			break
		}
		s.seen[base]++
		out = base + "-" + strconv.Itoa(s.seen[base])
	}
	s.seen[out] = 0
	return out
}

// Reserve marks id as taken, so a later heading does not collide with an
// id the author set by hand.
func (s *Slugger) Reserve(id string) {
	if _, ok := s.seen[id]; !ok {
		s.seen[id] = 0
	}
}

// Anchor lowercases text, drops punctuation and turns spaces into hyphens.
func Anchor(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r == ' ':
			b.WriteByte('-')
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

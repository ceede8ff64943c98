// Package content locates posts in the content directory, compiles them and
// hands them out as models.Post, individually or as a sorted listing.
package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/bundler"
	"github.com/starford/quire/internal/cache"
	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/frontmatter"
	"github.com/starford/quire/internal/metrics"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/readingtime"
	"github.com/starford/quire/internal/slug"
	"github.com/starford/quire/internal/storage"
)

// postNamespace seeds the name-based post ids.
var postNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://quire.dev/posts"))

const cacheName = "posts"

// Kind is the source format of a post.
type Kind string

const (
	KindMarkdown Kind = "md"
	KindMDX      Kind = "mdx"
)

// Source is a located post file.
type Source struct {
	Slug string
	Path string
	Kind Kind
}

// ListOptions filters ListPosts.
type ListOptions struct {
	// IncludeDrafts overrides the service's draft hiding.
	IncludeDrafts bool
}

// Service coordinates storage, compilation and the post cache.
type Service struct {
	store      storage.Provider
	dir        string
	compiler   *pipeline.Compiler
	bundler    bundler.Bundler
	validator  frontmatter.Validator
	posts      *cache.LRU[*models.Post]
	hideDrafts bool
	recorder   metrics.Recorder
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDir sets the posts directory relative to the storage root.
func WithDir(dir string) Option {
	return func(s *Service) { s.dir = path.Clean(filepath.ToSlash(dir)) }
}

// WithBundler enables .mdx posts.
func WithBundler(b bundler.Bundler) Option {
	return func(s *Service) { s.bundler = b }
}

// WithValidator replaces frontmatter.PostValidator.
func WithValidator(v frontmatter.Validator) Option {
	return func(s *Service) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithPostCache replaces the post cache.
func WithPostCache(c *cache.LRU[*models.Post]) Option {
	return func(s *Service) {
		if c != nil {
			s.posts = c
		}
	}
}

// WithHideDrafts leaves drafts out of listings unless asked for.
func WithHideDrafts(hide bool) Option {
	return func(s *Service) { s.hideDrafts = hide }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) { s.recorder = metrics.OrNoop(r) }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a content service reading posts from store.
func NewService(store storage.Provider, compiler *pipeline.Compiler, opts ...Option) *Service {
	s := &Service{
		store:     store,
		dir:       ".",
		compiler:  compiler,
		validator: frontmatter.PostValidator,
		posts:     cache.New[*models.Post](cache.DefaultMaxEntries, cache.DefaultMaxBytes),
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compiler returns the pipeline used for Markdown posts.
func (s *Service) Compiler() *pipeline.Compiler { return s.compiler }

// GetPost returns the post for slug, or apperr.ErrNotFound.
func (s *Service) GetPost(ctx context.Context, slugName string) (*models.Post, error) {
	p, err := s.getPost(ctx, slugName, "")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

// ListPosts compiles every post and returns them newest first; posts with
// the same createdAt are ordered by slug. Missing posts and MDX posts
// without a bundler are skipped, an invalid one fails the whole listing.
func (s *Service) ListPosts(ctx context.Context, opts ListOptions) ([]*models.Post, error) {
	sources, err := s.Sources()
	if err != nil {
		return nil, err
	}

	results := make([]*models.Post, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range sources {
		g.Go(func() error {
			p, err := s.getPost(gctx, src.Slug, src.Kind)
			if errors.Is(err, apperr.ErrUnsupported) {
				s.logger.Warn("content: skipping post",
					slog.String("slug", src.Slug), slog.String("error", err.Error()))
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	posts := make([]*models.Post, 0, len(results))
	for _, p := range results {
		if p == nil {
			continue
		}
		if !opts.IncludeDrafts && !s.Listed(p) {
			continue
		}
		posts = append(posts, p)
	}
	SortPosts(posts)
	return posts, nil
}

// Listed reports whether p appears in listings by default.
func (s *Service) Listed(p *models.Post) bool {
	return !p.Draft || !s.hideDrafts
}

// SortPosts orders posts by createdAt descending, then slug ascending.
func SortPosts(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.Slug < b.Slug
	})
}

// Sources lists the post files in the posts directory: top-level .md and
// .mdx files and directories holding an index document.
func (s *Service) Sources() ([]Source, error) {
	entries, err := s.store.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("content: list posts: %w", err)
	}
	var out []Source
	for _, e := range entries {
		if !e.IsDir {
			if k, ok := kindOf(e.Name); ok {
				out = append(out, Source{Slug: slug.FromPath(e.Path), Path: e.Path, Kind: k})
			}
			continue
		}
		if src, ok := s.indexSource(e.Path); ok {
			out = append(out, src)
		}
	}
	return out, nil
}

// Locate finds the file for slug. A directory named slug wins over a file.
func (s *Service) Locate(slugName string, kind Kind) (Source, bool) {
	if slugName == "" || strings.ContainsAny(slugName, `/\`) || slugName == "." || slugName == ".." {
		return Source{}, false
	}
	base := path.Join(s.dir, slugName)
	if e, err := s.store.Stat(base); err == nil && e.IsDir {
		return s.indexSource(base)
	}
	for _, k := range kindsFor(kind) {
		p := base + "." + string(k)
		if e, err := s.store.Stat(p); err == nil && !e.IsDir {
			return Source{Slug: slugName, Path: p, Kind: k}, true
		}
	}
	return Source{}, false
}

// SlugFor maps a content path to the slug of the post it belongs to.
func (s *Service) SlugFor(p string) (string, bool) {
	p = filepath.ToSlash(p)
	rel := p
	if s.dir != "." {
		var ok bool
		if rel, ok = strings.CutPrefix(p, s.dir+"/"); !ok {
			return "", false
		}
	}
	first, _, nested := strings.Cut(rel, "/")
	if first == "" || strings.HasPrefix(first, ".") {
		return "", false
	}
	if nested {
		return first, true
	}
	if _, ok := kindOf(first); ok {
		return slug.FromPath(first), true
	}
	// Loose assets next to posts belong to no post.
	return first, !strings.Contains(first, ".")
}

// Invalidate drops every cached form of the post.
func (s *Service) Invalidate(slugName string) {
	s.posts.Delete(slugName)
	s.compiler.Invalidate(slugName)
	s.recorder.SetCacheBytes(cacheName, s.posts.Bytes())
}

func (s *Service) indexSource(dir string) (Source, bool) {
	for _, k := range []Kind{KindMarkdown, KindMDX} {
		p := path.Join(dir, "index."+string(k))
		if e, err := s.store.Stat(p); err == nil && !e.IsDir {
			return Source{Slug: path.Base(dir), Path: p, Kind: k}, true
		}
	}
	return Source{}, false
}

func kindOf(name string) (Kind, bool) {
	switch {
	case strings.HasSuffix(name, ".md"):
		return KindMarkdown, true
	case strings.HasSuffix(name, ".mdx"):
		return KindMDX, true
	}
	return "", false
}

func kindsFor(k Kind) []Kind {
	if k != "" {
		return []Kind{k}
	}
	return []Kind{KindMarkdown, KindMDX}
}

// getPost returns (nil, nil) when slug has no readable source.
func (s *Service) getPost(ctx context.Context, slugName string, kind Kind) (*models.Post, error) {
	if p, ok := s.posts.Get(slugName); ok {
		s.recorder.IncCacheResult(cacheName, true)
		return p, nil
	}
	s.recorder.IncCacheResult(cacheName, false)

	src, ok := s.Locate(slugName, kind)
	if !ok {
		return nil, nil
	}
	raw, err := s.store.Read(src.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var res *pipeline.Result
	switch src.Kind {
	case KindMDX:
		res, err = s.compileMDX(ctx, src, string(raw))
	default:
		res, err = s.compiler.Compile(ctx, src.Slug, string(raw), s.validator)
	}
	if err != nil {
		return nil, err
	}

	p := toPost(res)
	s.posts.Set(slugName, p)
	s.recorder.SetCacheBytes(cacheName, s.posts.Bytes())
	return p, nil
}

func (s *Service) compileMDX(ctx context.Context, src Source, raw string) (*pipeline.Result, error) {
	if s.bundler == nil {
		return nil, fmt.Errorf("content: %s: %w", src.Path, apperr.ErrUnsupported)
	}
	out, err := s.bundler.Bundle(ctx, bundler.Request{
		Slug:   src.Slug,
		Source: raw,
		Cwd:    filepath.Join(s.store.Root(), filepath.FromSlash(path.Dir(src.Path))),
	})
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(src.Slug, out.Frontmatter); err != nil {
		return nil, err
	}
	_, body := frontmatter.Split(raw)
	rt := readingtime.Estimate(raw)
	return &pipeline.Result{
		Slug:        src.Slug,
		Markdown:    body,
		Frontmatter: out.Frontmatter,
		ReadingTime: &rt,
		Code:        out.Code,
		Checksum:    checksum.Sum([]byte(raw)),
	}, nil
}

// PostID returns the stable id of the post with the given slug.
func PostID(slugName string) string {
	return uuid.NewSHA1(postNamespace, []byte(slugName)).String()
}

func toPost(res *pipeline.Result) *models.Post {
	fm := frontmatter.Decode(res.Frontmatter)
	p := &models.Post{
		ID:              PostID(res.Slug),
		Slug:            res.Slug,
		Title:           fm.Title,
		CreatedAt:       fm.Created(),
		Description:     fm.Description,
		Excerpt:         fm.Excerpt,
		Draft:           fm.Draft,
		ContentHTML:     res.HTML,
		ContentMarkdown: res.Markdown,
		Code:            res.Code,
		ReadingTime:     res.ReadingTime,
		Checksum:        res.Checksum,
	}
	if fm.UpdatedAt != "" {
		if t := fm.Updated(); !t.IsZero() {
			p.UpdatedAt = &t
		}
	}
	return p
}

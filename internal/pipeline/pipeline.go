// Package pipeline compiles Markdown documents into HTML: frontmatter is
// split off, the body is parsed, transformed in a fixed stage order and
// rendered, and the result is validated and cached.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"github.com/starford/quire/internal/cache"
	"github.com/starford/quire/internal/checksum"
	"github.com/starford/quire/internal/frontmatter"
	"github.com/starford/quire/internal/highlight"
	"github.com/starford/quire/internal/markup"
	"github.com/starford/quire/internal/mdast"
	"github.com/starford/quire/internal/metrics"
	"github.com/starford/quire/internal/readingtime"
	"github.com/starford/quire/internal/transform"
)

// Result is a compiled document. Results are shared through the cache and
// must not be modified.
type Result struct {
	Slug        string              `json:"slug"`
	HTML        string              `json:"html"`
	Markdown    string              `json:"markdown"`
	Frontmatter map[string]any      `json:"frontmatter"`
	ReadingTime *readingtime.Result `json:"readingTime,omitempty"`
	Code        string              `json:"code,omitempty"`
	Checksum    string              `json:"checksum"`
}

// Stage names, in execution order.
const (
	StageLinks      = "links"
	StageCodeBlocks = "codeblocks"
	StageEmbeds     = "embeds"
	StageGFM        = "gfm"
	StageMarkup     = "markup"
	StageUnwrapPre  = "unwrap-pre"
	StageHeadingIDs = "heading-slugs"
)

const cacheName = "compile"

type treeStage struct {
	name string
	run  transform.Stage
}

type htmlStage struct {
	name string
	run  transform.HTMLStage
}

// Compiler runs the compilation pipeline. It is safe for concurrent use.
type Compiler struct {
	opts       options
	treeStages []treeStage
	htmlStages []htmlStage
}

// New returns a Compiler. Without WithHighlighter the embedded base16 theme
// and default languages are used.
func New(opts ...Option) *Compiler {
	o := options{
		headingPrefix: DefaultHeadingIDPrefix,
		recorder:      metrics.NoopRecorder{},
		logger:        slog.Default(),
		readingTime:   true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.highlighter == nil {
		o.highlighter = highlight.NewProvider(highlight.DefaultTheme, nil)
	}
	if o.cache == nil {
		o.cache = cache.New[*Result](cache.DefaultMaxEntries, cache.DefaultMaxBytes)
	}

	return &Compiler{
		opts: o,
		treeStages: []treeStage{
			{StageLinks, transform.Links(o.resolveHref)},
			{StageCodeBlocks, transform.CodeBlocks(o.highlighter)},
			{StageEmbeds, transform.Embeds(o.embeds, o.logger)},
			{StageGFM, transform.TaskLists()},
		},
		htmlStages: []htmlStage{
			{StageUnwrapPre, transform.UnwrapPre()},
			{StageHeadingIDs, transform.HeadingIDs(o.headingPrefix)},
		},
	}
}

// Compile returns the compiled form of raw. key identifies the document: it
// is the cache key and the slug reported in errors. An empty key bypasses
// the cache. A nil validator accepts any frontmatter.
func (c *Compiler) Compile(ctx context.Context, key, raw string, v frontmatter.Validator) (*Result, error) {
	rec := c.opts.recorder
	if key != "" {
		if res, ok := c.opts.cache.Get(key); ok {
			rec.IncCacheResult(cacheName, true)
			rec.IncCompileOutcome(metrics.OutcomeCached)
			return res, nil
		}
		rec.IncCacheResult(cacheName, false)
	}

	start := time.Now()
	res, err := c.compile(ctx, key, raw, v)
	rec.ObserveCompileDuration(time.Since(start))
	if err != nil {
		rec.IncCompileOutcome(outcome(err))
		return nil, err
	}
	rec.IncCompileOutcome(metrics.OutcomeSuccess)

	if key != "" {
		if !c.opts.cache.Set(key, res) {
			c.opts.logger.Debug("result too large to cache", slog.String("key", key))
		}
		rec.SetCacheBytes(cacheName, c.opts.cache.Bytes())
	}
	return res, nil
}

// Invalidate drops the cached result for key.
func (c *Compiler) Invalidate(key string) {
	if c.opts.cache.Delete(key) {
		c.opts.recorder.SetCacheBytes(cacheName, c.opts.cache.Bytes())
	}
}

// Purge drops every cached result.
func (c *Compiler) Purge() {
	c.opts.cache.Purge()
	c.opts.recorder.SetCacheBytes(cacheName, 0)
}

func (c *Compiler) compile(ctx context.Context, key, raw string, v frontmatter.Validator) (*Result, error) {
	attrs, body := frontmatter.Split(raw)
	root := mdast.Parse(body)

	for _, s := range c.treeStages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		started := time.Now()
		if err := s.run(ctx, root); err != nil {
			return nil, fmt.Errorf("pipeline: %s stage: %w", s.name, err)
		}
		c.opts.recorder.ObserveStageDuration(s.name, time.Since(started))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	started := time.Now()
	doc, err := toHTML(root)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %s stage: %w", StageMarkup, err)
	}
	c.opts.recorder.ObserveStageDuration(StageMarkup, time.Since(started))

	for _, s := range c.htmlStages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		started := time.Now()
		s.run(doc)
		c.opts.recorder.ObserveStageDuration(s.name, time.Since(started))
	}

	out, err := markup.Render(doc)
	if err != nil {
		return nil, fmt.Errorf("pipeline: render: %w", err)
	}

	if v != nil {
		if err := v.Validate(key, attrs); err != nil {
			return nil, err
		}
	}

	res := &Result{
		Slug:        key,
		HTML:        out,
		Markdown:    body,
		Frontmatter: attrs,
		Checksum:    checksum.Sum([]byte(raw)),
	}
	if c.opts.readingTime {
		rt := readingtime.Estimate(body)
		res.ReadingTime = &rt
	}
	return res, nil
}

// toHTML renders the tree and reparses it, so raw HTML from the source and
// from embeds becomes part of the tree the later stages see.
func toHTML(root *mdast.Root) (*html.Node, error) {
	s, err := markup.Render(mdast.ToHTML(root))
	if err != nil {
		return nil, err
	}
	nodes, err := markup.ParseFragment(s)
	if err != nil {
		return nil, err
	}
	return markup.Fragment(nodes...), nil
}

func outcome(err error) metrics.Outcome {
	switch {
	case errors.Is(err, frontmatter.ErrInvalid):
		return metrics.OutcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	}
	return metrics.OutcomeFailed
}

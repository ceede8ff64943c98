package pipeline

import (
	"log/slog"

	"github.com/starford/quire/internal/cache"
	"github.com/starford/quire/internal/metrics"
	"github.com/starford/quire/internal/transform"
)

// DefaultHeadingIDPrefix is prepended to generated heading ids.
const DefaultHeadingIDPrefix = "md-"

type options struct {
	highlighter   transform.HighlighterSource
	resolveHref   func(string) string
	embeds        transform.EmbedResolver
	headingPrefix string
	cache         *cache.LRU[*Result]
	recorder      metrics.Recorder
	logger        *slog.Logger
	readingTime   bool
}

// Option configures a Compiler.
type Option func(*options)

// WithHighlighter sets the highlighter source for code blocks.
func WithHighlighter(h transform.HighlighterSource) Option {
	return func(o *options) { o.highlighter = h }
}

// WithResolveHref rewrites relative link targets.
func WithResolveHref(fn func(string) string) Option {
	return func(o *options) { o.resolveHref = fn }
}

// WithEmbedResolver turns bare URL paragraphs into embeds.
func WithEmbedResolver(r transform.EmbedResolver) Option {
	return func(o *options) { o.embeds = r }
}

// WithHeadingIDPrefix overrides DefaultHeadingIDPrefix.
func WithHeadingIDPrefix(prefix string) Option {
	return func(o *options) { o.headingPrefix = prefix }
}

// WithCache replaces the result cache.
func WithCache(c *cache.LRU[*Result]) Option {
	return func(o *options) {
		if c != nil {
			o.cache = c
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) { o.recorder = metrics.OrNoop(r) }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithReadingTime toggles the reading time estimate on results.
func WithReadingTime(enabled bool) Option {
	return func(o *options) { o.readingTime = enabled }
}

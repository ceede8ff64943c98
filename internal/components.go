package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/starford/quire/internal/bundler"
	"github.com/starford/quire/internal/cache"
	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/embed"
	"github.com/starford/quire/internal/highlight"
	"github.com/starford/quire/internal/metrics"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/queue"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/transform"
)

var errConfigRequired = errors.New("config is required")

// components are the services shared by every command.
type components struct {
	store    *storage.FS
	recorder *metrics.PrometheusRecorder
	compiler *pipeline.Compiler
	posts    *content.Service
}

func buildComponents(cfg *Config, logger *slog.Logger) (*components, error) {
	if err := os.MkdirAll(cfg.Content.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Content.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	recorder := metrics.NewPrometheusRecorder(prom.NewRegistry())

	compilerOpts := []pipeline.Option{
		pipeline.WithHighlighter(highlight.NewProvider(cfg.Highlight.Theme, cfg.Highlight.Languages)),
		pipeline.WithHeadingIDPrefix(cfg.Content.HeadingPrefix()),
		pipeline.WithCache(cache.New[*pipeline.Result](cfg.Cache.MaxEntries, cfg.Cache.MaxBytes)),
		pipeline.WithRecorder(recorder),
		pipeline.WithLogger(logger),
	}
	if resolve := transform.ResolveAgainst(cfg.Content.BaseURL); resolve != nil {
		compilerOpts = append(compilerOpts, pipeline.WithResolveHref(resolve))
	}
	if cfg.Embed.Enabled {
		compilerOpts = append(compilerOpts, pipeline.WithEmbedResolver(embed.New(
			embed.WithTimeout(cfg.Embed.Timeout),
			embed.WithCache(cache.New[string](cfg.Cache.MaxEntries, cfg.Cache.MaxBytes)),
			embed.WithLogger(logger),
			embed.WithRecorder(recorder),
		)))
	}
	compiler := pipeline.New(compilerOpts...)

	postOpts := []content.Option{
		content.WithHideDrafts(cfg.Content.HideDrafts),
		content.WithPostCache(cache.New[*models.Post](cfg.Cache.MaxEntries, cfg.Cache.MaxBytes)),
		content.WithRecorder(recorder),
		content.WithLogger(logger),
	}
	if cfg.Bundler.Enabled() {
		q := queue.New(cfg.Queue.Concurrency, recorder)
		exec := bundler.NewExec(cfg.Bundler.Command,
			bundler.WithDir(cfg.Bundler.Dir),
			bundler.WithLogger(logger),
		)
		postOpts = append(postOpts, content.WithBundler(bundler.Queued(exec, q)))
	}

	return &components{
		store:    store,
		recorder: recorder,
		compiler: compiler,
		posts:    content.NewService(store, compiler, postOpts...),
	}, nil
}

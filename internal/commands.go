package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/frontmatter"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/slug"
)

// Compile compiles the Markdown file at path and writes the result to w as
// JSON. MDX needs the content directory and is served by Run instead.
func Compile(ctx context.Context, w io.Writer, path string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()

	if filepath.Ext(path) == ".mdx" {
		return fmt.Errorf("compile %s: %w", path, apperr.ErrUnsupported)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	c, err := buildComponents(app.config, logger)
	if err != nil {
		return err
	}
	res, err := c.compiler.Compile(ctx, slug.FromPath(path), string(raw), frontmatter.PostValidator)
	if err != nil {
		return err
	}
	return writeJSON(w, res)
}

// List writes the summaries of every post in the content directory to w.
func List(ctx context.Context, w io.Writer, drafts bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()

	c, err := buildComponents(app.config, logger)
	if err != nil {
		return err
	}
	posts, err := c.posts.ListPosts(ctx, content.ListOptions{IncludeDrafts: drafts})
	if err != nil {
		return err
	}
	summaries := make([]models.PostSummary, 0, len(posts))
	for _, p := range posts {
		summaries = append(summaries, p.Summary())
	}
	return writeJSON(w, summaries)
}

// ServeMCP serves the MCP tools over stdio until the client disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	c, err := buildComponents(cfg, logger)
	if err != nil {
		return err
	}

	var search mcpserver.Searcher
	if cfg.Index.Enabled {
		db, err := index.Open(cfg.Index.DSN)
		if err != nil {
			return fmt.Errorf("init index: %w", err)
		}
		defer db.Close()
		if err := index.Sync(ctx, db, c.posts, logger, nil); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
		search = db
	}

	logger.Info("Serving MCP over stdio", slog.String("version", app.version))
	return mcpserver.New(c.posts, c.compiler, search, app.version).ServeStdio()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Package bundler compiles MDX documents with an external toolchain. The
// toolchain is memory hungry, so calls are funnelled through a queue.
package bundler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/starford/quire/internal/queue"
)

// ErrNoCommand is returned by Exec when no toolchain command is configured.
var ErrNoCommand = errors.New("bundler: no command configured")

// Request is one document to bundle.
type Request struct {
	Slug   string `json:"-"`
	Source string `json:"source"`
	Cwd    string `json:"cwd,omitempty"`
}

// Output is the toolchain's reply.
type Output struct {
	Code        string         `json:"code"`
	Frontmatter map[string]any `json:"frontmatter"`
}

// Bundler turns MDX source into executable code plus its frontmatter.
type Bundler interface {
	Bundle(ctx context.Context, req Request) (*Output, error)
}

// ToolchainError reports a failed compilation of one document.
type ToolchainError struct {
	Slug string
	Err  error
}

func (e *ToolchainError) Error() string {
	return fmt.Sprintf("compilation error for slug %q: %v", e.Slug, e.Err)
}

func (e *ToolchainError) Unwrap() error { return e.Err }

// Exec runs an external command per document: the request is written to its
// stdin as JSON and an Output is read back from stdout.
type Exec struct {
	command []string
	dir     string
	logger  *slog.Logger
}

// Option configures Exec.
type Option func(*Exec)

// WithDir sets the working directory of the command.
func WithDir(dir string) Option {
	return func(e *Exec) { e.dir = dir }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Exec) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExec returns a Bundler running command. The first element is the
// program, the rest its arguments.
func NewExec(command []string, opts ...Option) *Exec {
	e := &Exec{command: command, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exec) Bundle(ctx context.Context, req Request) (*Output, error) {
	out, err := e.run(ctx, req)
	if err != nil {
		e.logger.Error("compilation error", slog.String("slug", req.Slug), slog.String("error", err.Error()))
		return nil, &ToolchainError{Slug: req.Slug, Err: err}
	}
	return out, nil
}

func (e *Exec) run(ctx context.Context, req Request) (*Output, error) {
	if len(e.command) == 0 {
		return nil, ErrNoCommand
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.command[0], e.command[1:]...)
	cmd.Dir = e.dir
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}

	var out Output
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	if out.Frontmatter == nil {
		out.Frontmatter = map[string]any{}
	}
	return &out, nil
}

type queued struct {
	next Bundler
	q    *queue.Queue
}

// Queued serializes calls to b through q.
func Queued(b Bundler, q *queue.Queue) Bundler {
	return &queued{next: b, q: q}
}

func (b *queued) Bundle(ctx context.Context, req Request) (*Output, error) {
	return queue.Submit(ctx, b.q, func(ctx context.Context) (*Output, error) {
		return b.next.Bundle(ctx, req)
	})
}

package bundler

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/quire/internal/queue"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecBundle(t *testing.T) {
	requireShell(t)
	script := `cat >/dev/null; printf '{"code":"var x=1","frontmatter":{"title":"Hi"}}'`
	b := NewExec([]string{"sh", "-c", script})

	out, err := b.Bundle(context.Background(), Request{Slug: "hi", Source: "# Hi"})
	require.NoError(t, err)
	require.Equal(t, "var x=1", out.Code)
	require.Equal(t, map[string]any{"title": "Hi"}, out.Frontmatter)
}

func TestExecReceivesRequest(t *testing.T) {
	requireShell(t)
	// Echo the request back as the code field.
	script := `printf '{"code":%s}' "$(cat | sed 's/"/\\"/g; s/^/"/; s/$/"/')"`
	b := NewExec([]string{"sh", "-c", script}, WithDir(t.TempDir()))

	out, err := b.Bundle(context.Background(), Request{Slug: "x", Source: "abc", Cwd: "/content"})
	require.NoError(t, err)
	require.Equal(t, `{"source":"abc","cwd":"/content"}`, out.Code)
	require.NotNil(t, out.Frontmatter)
}

func TestExecFailure(t *testing.T) {
	requireShell(t)
	b := NewExec([]string{"sh", "-c", "echo 'syntax error' >&2; exit 3"})

	_, err := b.Bundle(context.Background(), Request{Slug: "broken"})
	var terr *ToolchainError
	require.True(t, errors.As(err, &terr))
	require.Equal(t, "broken", terr.Slug)
	require.ErrorContains(t, err, "syntax error")
}

func TestExecBadOutput(t *testing.T) {
	requireShell(t)
	b := NewExec([]string{"sh", "-c", "echo not-json"})
	_, err := b.Bundle(context.Background(), Request{Slug: "x"})
	require.ErrorContains(t, err, "decode output")
}

func TestExecNoCommand(t *testing.T) {
	_, err := NewExec(nil).Bundle(context.Background(), Request{Slug: "x"})
	require.ErrorIs(t, err, ErrNoCommand)
}

type slowBundler struct {
	active, peak atomic.Int32
}

func (s *slowBundler) Bundle(ctx context.Context, req Request) (*Output, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return &Output{Code: req.Slug}, nil
}

func TestQueuedSerializes(t *testing.T) {
	inner := &slowBundler{}
	b := Queued(inner, queue.New(1, nil))

	var wg sync.WaitGroup
	for _, slug := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := b.Bundle(context.Background(), Request{Slug: slug})
			if err != nil || out.Code != slug {
				t.Errorf("Bundle(%s) = %v, %v", slug, out, err)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, inner.peak.Load())
}

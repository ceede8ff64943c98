package highlight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeColor(t *testing.T) {
	tests := map[string]string{
		"#FFFF0E": "var(--base0E)",
		"#ffff0a": "var(--base0A)",
		"#ff0000": "#ff0000",
		"":        "",
		"#FFFFFF": "var(--baseFF)",
	}
	for in, want := range tests {
		require.Equal(t, want, NormalizeColor(in), in)
	}
}

func TestDefaultThemeForeground(t *testing.T) {
	h, err := New("", nil)
	require.NoError(t, err)
	require.Equal(t, "base16", h.Theme())
	require.Equal(t, "var(--base05)", h.Foreground())
}

func TestSupports(t *testing.T) {
	h, err := New(DefaultTheme, []string{"go", "JS"})
	require.NoError(t, err)
	require.True(t, h.Supports("go"))
	require.True(t, h.Supports("js"))
	require.False(t, h.Supports("python"))
	require.False(t, h.Supports(""))
}

func TestTokenizeLineCount(t *testing.T) {
	h, err := New(DefaultTheme, nil)
	require.NoError(t, err)

	for _, code := range []string{
		"const a = 1",
		"const a = 1\nconst b = 2",
		"a\n\nb\n",
		"line\r\nline",
	} {
		lines, err := h.Tokenize(code, "js")
		require.NoError(t, err)
		want := strings.Count(strings.ReplaceAll(code, "\r\n", "\n"), "\n") + 1
		require.Len(t, lines, want, "%q", code)
	}
}

func TestTokenizePreservesText(t *testing.T) {
	h, err := New(DefaultTheme, nil)
	require.NoError(t, err)

	code := "function add(a, b) {\n  return a + b // sum\n}"
	lines, err := h.Tokenize(code, "typescript")
	require.NoError(t, err)

	var rebuilt []string
	colored := false
	for _, line := range lines {
		var b strings.Builder
		for _, tok := range line {
			b.WriteString(tok.Content)
			if tok.Color != "" && tok.Color != h.Foreground() {
				colored = true
			}
		}
		rebuilt = append(rebuilt, b.String())
	}
	require.Equal(t, code, strings.Join(rebuilt, "\n"))
	require.True(t, colored, "expected at least one coloured token")
}

func TestTokenizeUnknownLanguageFallsBack(t *testing.T) {
	h, err := New(DefaultTheme, nil)
	require.NoError(t, err)

	lines, err := h.Tokenize("just text", "no-such-language")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "just text", lines[0][0].Content)
}

func TestLoadTheme(t *testing.T) {
	_, err := LoadTheme("definitely-not-a-theme")
	require.Error(t, err)

	style, err := LoadTheme("monokai")
	require.NoError(t, err)
	require.Equal(t, "monokai", style.Name)

	path := filepath.Join(t.TempDir(), "mine.yaml")
	data := "name: mine\nforeground: \"#112233\"\ntokens:\n  Keyword: \"#445566\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	h, err := New(path, nil)
	require.NoError(t, err)
	require.Equal(t, "mine", h.Theme())
	require.Equal(t, "#112233", h.Foreground())
}

func TestLoadThemeRejectsUnknownToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\ntokens:\n  NotAToken: \"#000000\"\n"), 0o644))
	_, err := LoadTheme(path)
	require.ErrorContains(t, err, "NotAToken")
}

func TestProviderBuildsOnce(t *testing.T) {
	p := NewProvider(DefaultTheme, nil)

	var wg sync.WaitGroup
	results := make([]*Highlighter, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := p.Get(context.Background())
			require.NoError(t, err)
			results[i] = h
		}()
	}
	wg.Wait()

	for _, h := range results {
		require.Same(t, results[0], h)
	}
	require.EqualValues(t, 1, p.Builds())
}

func TestProviderRetriesAfterFailure(t *testing.T) {
	p := NewProvider("definitely-not-a-theme", nil)
	_, err := p.Get(context.Background())
	require.Error(t, err)
	_, err = p.Get(context.Background())
	require.Error(t, err)
	require.EqualValues(t, 2, p.Builds())
}

func TestProviderCanceled(t *testing.T) {
	p := NewProvider(DefaultTheme, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h, err := p.Get(ctx)
	if err == nil {
		require.NotNil(t, h)
		return
	}
	require.ErrorIs(t, err, context.Canceled)
}

// Package highlight tokenizes source code into coloured spans.
package highlight

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// DefaultLanguages are the fence languages decorated by default.
var DefaultLanguages = []string{
	"css", "diff", "html", "js", "javascript", "json", "jsx", "markdown", "md",
	"mdx", "prisma", "scss", "shellscript", "ts", "typescript", "tsx",
}

// lexerNames maps fence languages to chroma lexer names where they differ.
var lexerNames = map[string]string{
	"js":          "javascript",
	"ts":          "typescript",
	"jsx":         "react",
	"tsx":         "typescript",
	"md":          "markdown",
	"mdx":         "markdown",
	"shellscript": "bash",
}

// Token is a run of text drawn in one colour. Color is empty when the theme
// sets none.
type Token struct {
	Content string `json:"content"`
	Color   string `json:"color,omitempty"`
}

// Highlighter tokenizes code with a fixed theme. It is safe for concurrent use.
type Highlighter struct {
	theme     string
	style     *chroma.Style
	languages map[string]struct{}
}

// New builds a Highlighter for theme (see LoadTheme) and languages. An empty
// language list means DefaultLanguages.
func New(theme string, languages []string) (*Highlighter, error) {
	style, err := LoadTheme(theme)
	if err != nil {
		return nil, err
	}
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	langs := make(map[string]struct{}, len(languages))
	for _, l := range languages {
		langs[strings.ToLower(l)] = struct{}{}
	}
	return &Highlighter{theme: style.Name, style: style, languages: langs}, nil
}

// Theme returns the name of the loaded style.
func (h *Highlighter) Theme() string { return h.theme }

// Supports reports whether lang is in the configured language set.
func (h *Highlighter) Supports(lang string) bool {
	_, ok := h.languages[strings.ToLower(lang)]
	return ok
}

// Foreground returns the theme's default text colour, normalized.
func (h *Highlighter) Foreground() string {
	return colourString(h.style.Get(chroma.Background).Colour)
}

// Tokenize splits code into one token slice per source line. The result
// always has exactly strings.Count(code, "\n")+1 lines.
func (h *Highlighter) Tokenize(code, lang string) ([][]Token, error) {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	it, err := lexerFor(lang).Tokenise(nil, code)
	if err != nil {
		return nil, fmt.Errorf("highlight: tokenise %s: %w", lang, err)
	}

	want := strings.Count(code, "\n") + 1
	lines := make([][]Token, 0, want)
	var cur []Token
	for _, tok := range it.Tokens() {
		color := colourString(h.style.Get(tok.Type).Colour)
		parts := strings.Split(tok.Value, "\n")
		for i, part := range parts {
			if i > 0 {
				lines = append(lines, cur)
				cur = nil
			}
			if part != "" {
				cur = appendToken(cur, Token{Content: part, Color: color})
			}
		}
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}

	// Lexers may add a trailing newline; pad or trim to the source line count.
	for len(lines) < want {
		lines = append(lines, nil)
	}
	return lines[:want], nil
}

func appendToken(line []Token, t Token) []Token {
	if n := len(line); n > 0 && line[n-1].Color == t.Color {
		line[n-1].Content += t.Content
		return line
	}
	return append(line, t)
}

func lexerFor(lang string) chroma.Lexer {
	lang = strings.ToLower(lang)
	name := lang
	if alias, ok := lexerNames[lang]; ok {
		name = alias
	}
	l := lexers.Get(name)
	if l == nil {
		l = lexers.Get(lang)
	}
	if l == nil {
		l = lexers.Fallback
	}
	return chroma.Coalesce(l)
}

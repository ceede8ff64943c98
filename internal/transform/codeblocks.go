package transform

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/quire/internal/highlight"
	"github.com/starford/quire/internal/linerange"
	"github.com/starford/quire/internal/markup"
	"github.com/starford/quire/internal/mdast"
)

var langAliases = map[string]string{
	"js": "javascript",
	"ts": "typescript",
}

var linesShorthand = regexp.MustCompile(`^\[(.+)\]$`)

// HighlighterSource yields the shared highlighter; *highlight.Provider
// satisfies it.
type HighlighterSource interface {
	Get(ctx context.Context) (*highlight.Highlighter, error)
}

// CodeBlocks replaces each code block in a supported language with
// pre-rendered, line-numbered markup. Blocks without a language, with an
// unsupported one or with no content are left alone.
func CodeBlocks(src HighlighterSource) Stage {
	return func(ctx context.Context, root *mdast.Root) error {
		var h *highlight.Highlighter
		var err error
		mdast.Walk(root, func(n mdast.Node, parent mdast.Parent, _ int) (mdast.Action, mdast.Node) {
			code, ok := n.(*mdast.CodeBlock)
			if !ok || err != nil || parent == nil {
				return mdast.Continue, nil
			}
			if code.Lang == "" || code.Value == "" {
				return mdast.SkipChildren, nil
			}
			if h == nil {
				if h, err = src.Get(ctx); err != nil {
					return mdast.SkipChildren, nil
				}
			}
			if !h.Supports(code.Lang) {
				return mdast.SkipChildren, nil
			}
			var el *mdast.Element
			if el, err = decorate(h, code); err != nil {
				return mdast.SkipChildren, nil
			}
			return mdast.ReplaceAndSkip, el
		})
		return err
	}
}

// MetaParam is one key of a code fence's meta string.
type MetaParam struct {
	Key   string
	Value string
}

// MetaParams is an ordered, de-duplicated parameter list. A repeated key
// keeps its first position and its last value.
type MetaParams []MetaParam

// Get returns the value of key.
func (p MetaParams) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

func (p MetaParams) set(key, val string) MetaParams {
	for i := range p {
		if p[i].Key == key {
			p[i].Value = val
			return p
		}
	}
	return append(p, MetaParam{Key: key, Value: val})
}

// ParseMeta reads a fence meta string. "[1,3-4]" alone is shorthand for
// lines=[1,3-4]; otherwise whitespace separated key or key=value tokens are
// decoded with query string rules.
func ParseMeta(meta string) MetaParams {
	var params MetaParams
	if meta == "" {
		return params
	}
	if m := linesShorthand.FindString(meta); m != "" {
		return params.set("lines", m)
	}
	for _, tok := range strings.Fields(meta) {
		for _, pair := range strings.Split(tok, "&") {
			if pair == "" {
				continue
			}
			k, v, _ := strings.Cut(pair, "=")
			params = params.set(queryUnescape(k), queryUnescape(v))
		}
	}
	return params
}

// queryUnescape decodes like URLSearchParams: "+" is a space and malformed
// escapes stay as written.
func queryUnescape(s string) string {
	if out, err := url.QueryUnescape(s); err == nil {
		return out
	}
	return strings.ReplaceAll(s, "+", " ")
}

func decorate(h *highlight.Highlighter, code *mdast.CodeBlock) (*mdast.Element, error) {
	lang := strings.ToLower(code.Lang)
	if alias, ok := langAliases[lang]; ok {
		lang = alias
	}
	params := ParseMeta(code.Meta)
	lines, _ := params.Get("lines")
	highlighted := linerange.Parse(lines)
	_, nonumber := params.Get("nonumber")

	tokens, err := h.Tokenize(code.Value, lang)
	if err != nil {
		return nil, err
	}
	fg := h.Foreground()

	codeEl := markup.Element("code")
	for i, line := range tokens {
		n := i + 1
		span := markup.Element("span", "class", "codeblock-line")
		if highlighted.Has(n) {
			markup.SetAttr(span, "data-highlight", "true")
		}
		markup.SetAttr(span, "data-line-number", strconv.Itoa(n))
		for _, tok := range line {
			color := highlight.NormalizeColor(tok.Color)
			if color == "" || color == fg {
				markup.Append(span, markup.Text(tok.Content))
				continue
			}
			markup.Append(span, markup.Append(
				markup.Element("span", "style", "color: "+color),
				markup.Text(tok.Content),
			))
		}
		markup.Append(span, markup.Text("\n"))
		markup.Append(codeEl, span)
	}

	pre := markup.Element("pre")
	for _, kv := range params {
		if kv.Key == "lines" {
			continue
		}
		markup.SetAttr(pre, "data-"+kv.Key, kv.Value)
	}
	numbers := "true"
	if nonumber {
		numbers = "false"
	}
	markup.SetAttr(pre, "data-line-numbers", numbers)
	markup.SetAttr(pre, "data-lang", lang)
	markup.SetAttr(pre, "style", "color: "+fg+";")
	markup.Append(pre, codeEl)

	return &mdast.Element{RenderAs: "div", Markup: []*html.Node{pre}}, nil
}

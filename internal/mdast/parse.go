package mdast

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var gfm = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Parse reads CommonMark with the GitHub extensions (tables, strikethrough,
// task lists and autolinks) into a tree.
func Parse(src string) *Root {
	source := []byte(src)
	doc := gfm.Parser().Parse(text.NewReader(source))
	c := converter{source: source}
	root := &Root{}
	root.Nodes = c.children(doc)
	return root
}

type converter struct {
	source []byte
}

func (c converter) children(n gast.Node) []Node {
	var out []Node
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		out = c.appendNode(out, child)
	}
	return out
}

func (c converter) appendNode(out []Node, n gast.Node) []Node {
	switch n := n.(type) {
	case *gast.Paragraph, *gast.TextBlock:
		return append(out, &Paragraph{Branch{c.children(n)}})
	case *gast.Heading:
		return append(out, &Heading{Branch: Branch{c.children(n)}, Depth: n.Level})
	case *gast.Blockquote:
		return append(out, &Blockquote{Branch{c.children(n)}})
	case *gast.List:
		return append(out, &List{
			Branch:  Branch{c.children(n)},
			Ordered: n.IsOrdered(),
			Start:   n.Start,
			Spread:  !n.IsTight,
		})
	case *gast.ListItem:
		return append(out, &ListItem{Branch: Branch{c.children(n)}})
	case *gast.ThematicBreak:
		return append(out, &ThematicBreak{})
	case *gast.FencedCodeBlock:
		code := &CodeBlock{Value: c.lines(n)}
		if n.Info != nil {
			info := strings.TrimSpace(unescape(n.Info.Segment.Value(c.source)))
			code.Lang = info
			if i := strings.IndexFunc(info, unicode.IsSpace); i >= 0 {
				code.Lang = info[:i]
				code.Meta = strings.TrimSpace(info[i:])
			}
		}
		return append(out, code)
	case *gast.CodeBlock:
		return append(out, &CodeBlock{Value: c.lines(n)})
	case *gast.HTMLBlock:
		var b strings.Builder
		for i := 0; i < n.Lines().Len(); i++ {
			seg := n.Lines().At(i)
			b.Write(seg.Value(c.source))
		}
		if n.HasClosure() {
			b.Write(n.ClosureLine.Value(c.source))
		}
		return append(out, &HTML{Value: strings.TrimRight(b.String(), "\n")})
	case *gast.Text:
		out = appendText(out, unescapeText(n.Segment.Value(c.source), n.IsRaw()))
		if n.HardLineBreak() {
			return append(out, &Break{})
		}
		if n.SoftLineBreak() {
			return appendText(out, "\n")
		}
		return out
	case *gast.String:
		return appendText(out, unescapeText(n.Value, n.IsRaw() || n.IsCode()))
	case *gast.CodeSpan:
		var b strings.Builder
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			if t, ok := child.(*gast.Text); ok {
				v := t.Segment.Value(c.source)
				if bytes.HasSuffix(v, []byte("\n")) {
					v = append(v[:len(v)-1:len(v)-1], ' ')
				}
				b.Write(v)
			}
		}
		return append(out, &InlineCode{Value: b.String()})
	case *gast.Emphasis:
		if n.Level >= 2 {
			return append(out, &Strong{Branch{c.children(n)}})
		}
		return append(out, &Emphasis{Branch{c.children(n)}})
	case *gast.Link:
		return append(out, &Link{
			Branch: Branch{c.children(n)},
			URL:    unescape(n.Destination),
			Title:  unescape(n.Title),
		})
	case *gast.Image:
		return append(out, &Image{
			URL:   unescape(n.Destination),
			Title: unescape(n.Title),
			Alt:   TextContent(&Paragraph{Branch{c.children(n)}}),
		})
	case *gast.AutoLink:
		url := string(n.URL(c.source))
		if n.AutoLinkType == gast.AutoLinkEmail && !strings.HasPrefix(strings.ToLower(url), "mailto:") {
			url = "mailto:" + url
		}
		return append(out, &Link{
			Branch: Branch{[]Node{&Text{Value: string(n.Label(c.source))}}},
			URL:    url,
		})
	case *gast.RawHTML:
		var b strings.Builder
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(c.source))
		}
		return append(out, &HTML{Value: b.String()})
	case *east.Strikethrough:
		return append(out, &Strikethrough{Branch{c.children(n)}})
	case *east.TaskCheckBox:
		return append(out, &TaskMarker{Checked: n.IsChecked})
	case *east.Table:
		table := &Table{}
		for _, a := range n.Alignments {
			table.Align = append(table.Align, align(a))
		}
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			row := &TableRow{Branch: Branch{c.children(child)}}
			_, row.Header = child.(*east.TableHeader)
			table.Nodes = append(table.Nodes, row)
		}
		return append(out, table)
	case *east.TableCell:
		return append(out, &TableCell{Branch: Branch{c.children(n)}, Align: align(n.Alignment)})
	}
	// Unknown kinds keep their content.
	return append(out, c.children(n)...)
}

func (c converter) lines(n gast.Node) string {
	var b strings.Builder
	for i := 0; i < n.Lines().Len(); i++ {
		seg := n.Lines().At(i)
		b.Write(seg.Value(c.source))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func align(a east.Alignment) Align {
	switch a {
	case east.AlignLeft:
		return AlignLeft
	case east.AlignRight:
		return AlignRight
	case east.AlignCenter:
		return AlignCenter
	}
	return AlignNone
}

// appendText merges adjacent text so transforms see one node per run.
func appendText(out []Node, v string) []Node {
	if v == "" {
		return out
	}
	if len(out) > 0 {
		if t, ok := out[len(out)-1].(*Text); ok {
			t.Value += v
			return out
		}
	}
	return append(out, &Text{Value: v})
}

func unescapeText(v []byte, raw bool) string {
	if raw {
		return string(v)
	}
	return unescape(v)
}

func unescape(v []byte) string {
	if len(v) == 0 {
		return ""
	}
	v = util.UnescapePunctuations(v)
	v = util.ResolveNumericReferences(v)
	v = util.ResolveEntityNames(v)
	return string(v)
}

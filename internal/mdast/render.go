package mdast

import (
	"strconv"

	"github.com/yuin/goldmark/util"
	"golang.org/x/net/html"

	"github.com/starford/quire/internal/markup"
)

// ToHTML converts the tree into an HTML fragment. Block siblings are
// separated by newline text nodes; raw HTML becomes verbatim nodes and
// Element markup is copied, so the tree can be rendered more than once.
func ToHTML(root *Root) *html.Node {
	doc := markup.Fragment()
	markup.Append(doc, blocks(root.Nodes)...)
	return doc
}

func blocks(nodes []Node) []*html.Node {
	var out []*html.Node
	for i, n := range nodes {
		if i > 0 {
			out = append(out, markup.Text("\n"))
		}
		out = append(out, render(n)...)
	}
	return out
}

// wrapped surrounds block content with newlines, as loose containers are.
func wrapped(nodes []Node) []*html.Node {
	out := []*html.Node{markup.Text("\n")}
	out = append(out, blocks(nodes)...)
	if len(nodes) > 0 {
		out = append(out, markup.Text("\n"))
	}
	return out
}

func inline(nodes []Node) []*html.Node {
	var out []*html.Node
	for _, n := range nodes {
		out = append(out, render(n)...)
	}
	return out
}

func elem(tag string, children []*html.Node, attrs ...string) *html.Node {
	return markup.Append(markup.Element(tag, attrs...), children...)
}

func render(n Node) []*html.Node {
	switch n := n.(type) {
	case *Paragraph:
		return one(elem("p", inline(n.Nodes)))
	case *Heading:
		depth := min(max(n.Depth, 1), 6)
		return one(elem("h"+strconv.Itoa(depth), inline(n.Nodes)))
	case *Blockquote:
		return one(elem("blockquote", wrapped(n.Nodes)))
	case *List:
		return one(renderList(n))
	case *ListItem:
		return one(renderItem(n, true))
	case *ThematicBreak:
		return one(markup.Element("hr"))
	case *CodeBlock:
		var attrs []string
		if n.Lang != "" {
			attrs = []string{"class", "language-" + n.Lang}
		}
		var body []*html.Node
		if n.Value != "" {
			body = one(markup.Text(n.Value + "\n"))
		}
		return one(elem("pre", one(elem("code", body, attrs...))))
	case *HTML:
		return one(markup.Raw(n.Value))
	case *Text:
		return one(markup.Text(n.Value))
	case *Emphasis:
		return one(elem("em", inline(n.Nodes)))
	case *Strong:
		return one(elem("strong", inline(n.Nodes)))
	case *Strikethrough:
		return one(elem("del", inline(n.Nodes)))
	case *InlineCode:
		return one(elem("code", one(markup.Text(n.Value))))
	case *Break:
		return []*html.Node{markup.Element("br"), markup.Text("\n")}
	case *Link:
		attrs := []string{"href", escapeURL(n.URL)}
		if n.Title != "" {
			attrs = append(attrs, "title", n.Title)
		}
		return one(elem("a", inline(n.Nodes), attrs...))
	case *Image:
		attrs := []string{"src", escapeURL(n.URL), "alt", n.Alt}
		if n.Title != "" {
			attrs = append(attrs, "title", n.Title)
		}
		return one(markup.Element("img", attrs...))
	case *TaskMarker:
		return one(checkbox(n.Checked))
	case *Table:
		return one(renderTable(n))
	case *TableRow:
		return one(renderRow(n, nil))
	case *TableCell:
		return one(elem("td", inline(n.Nodes)))
	case *Element:
		var children []*html.Node
		for _, m := range n.Markup {
			children = append(children, markup.Clone(m))
		}
		if n.RenderAs == "" {
			return children
		}
		e := markup.Append(markup.Element(n.RenderAs), children...)
		e.Attr = append([]html.Attribute(nil), n.Attr...)
		return one(e)
	}
	return nil
}

func one(n *html.Node) []*html.Node { return []*html.Node{n} }

func escapeURL(u string) string {
	return string(util.URLEscape([]byte(u), false))
}

func checkbox(checked bool) *html.Node {
	box := markup.Element("input", "type", "checkbox", "disabled", "")
	if checked {
		box.Attr = append(box.Attr, html.Attribute{Key: "checked"})
	}
	return box
}

func renderList(l *List) *html.Node {
	tag := "ul"
	var attrs []string
	if l.Ordered {
		tag = "ol"
		if l.Start != 1 {
			attrs = append(attrs, "start", strconv.Itoa(l.Start))
		}
	}
	if l.TaskList {
		attrs = append(attrs, "class", "contains-task-list")
	}
	children := []*html.Node{markup.Text("\n")}
	for i, item := range l.Nodes {
		if i > 0 {
			children = append(children, markup.Text("\n"))
		}
		if li, ok := item.(*ListItem); ok {
			children = append(children, renderItem(li, l.Spread))
			continue
		}
		children = append(children, render(item)...)
	}
	if len(l.Nodes) > 0 {
		children = append(children, markup.Text("\n"))
	}
	return elem(tag, children, attrs...)
}

// renderItem renders a list item. Paragraphs of tight items are unwrapped
// and the checkbox of a task item leads its first paragraph.
func renderItem(li *ListItem, spread bool) *html.Node {
	var attrs []string
	if li.Checked != nil {
		attrs = []string{"class", "task-list-item"}
	}
	var children []*html.Node
	if spread {
		children = append(children, markup.Text("\n"))
	}
	boxed := li.Checked == nil
	for i, c := range li.Nodes {
		if i > 0 {
			children = append(children, markup.Text("\n"))
		}
		p, isPara := c.(*Paragraph)
		var content []*html.Node
		if isPara {
			content = inline(p.Nodes)
		} else {
			content = render(c)
		}
		if !boxed && i == 0 && isPara {
			content = append([]*html.Node{checkbox(*li.Checked), markup.Text(" ")}, content...)
			boxed = true
		}
		if isPara && spread {
			children = append(children, elem("p", content))
			continue
		}
		children = append(children, content...)
	}
	if !boxed {
		children = append([]*html.Node{checkbox(*li.Checked), markup.Text(" ")}, children...)
	}
	if spread && len(li.Nodes) > 0 {
		children = append(children, markup.Text("\n"))
	}
	return elem("li", children, attrs...)
}

func renderTable(t *Table) *html.Node {
	var head, body []*html.Node
	for _, n := range t.Nodes {
		row, ok := n.(*TableRow)
		if !ok {
			continue
		}
		r := renderRow(row, t.Align)
		if row.Header {
			head = append(head, markup.Text("\n"), r)
		} else {
			body = append(body, markup.Text("\n"), r)
		}
	}
	children := []*html.Node{markup.Text("\n")}
	if len(head) > 0 {
		children = append(children, elem("thead", append(head, markup.Text("\n"))))
	}
	if len(body) > 0 {
		children = append(children, markup.Text("\n"), elem("tbody", append(body, markup.Text("\n"))))
	}
	children = append(children, markup.Text("\n"))
	return elem("table", children)
}

func renderRow(row *TableRow, align []Align) *html.Node {
	tag := "td"
	if row.Header {
		tag = "th"
	}
	var cells []*html.Node
	for i, n := range row.Nodes {
		cell, ok := n.(*TableCell)
		if !ok {
			continue
		}
		a := cell.Align
		if a == AlignNone && i < len(align) {
			a = align[i]
		}
		var attrs []string
		if a != AlignNone {
			attrs = []string{"align", string(a)}
		}
		cells = append(cells, markup.Text("\n"), elem(tag, inline(cell.Nodes), attrs...))
	}
	cells = append(cells, markup.Text("\n"))
	return elem("tr", cells)
}

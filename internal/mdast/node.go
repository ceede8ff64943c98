// Package mdast is the Markdown syntax tree the compiler transforms: a closed
// set of node types, a visitor with explicit skip and replace results,
// conversion from goldmark's AST and rendering to an HTML tree.
package mdast

import "golang.org/x/net/html"

// Node is implemented by every node type in this package and only by them.
type Node interface {
	Type() string
	node()
}

// Parent is a node that owns an ordered list of children.
type Parent interface {
	Node
	Children() []Node
	SetChildren([]Node)
}

// Branch carries the children of a parent node.
type Branch struct {
	Nodes []Node
}

// Children returns the child list. Callers must not keep it across mutations.
func (b *Branch) Children() []Node { return b.Nodes }

// SetChildren replaces the child list.
func (b *Branch) SetChildren(nodes []Node) { b.Nodes = nodes }

func (*Branch) node() {}

type leaf struct{}

func (leaf) node() {}

// Root is the top of every document tree.
type Root struct{ Branch }

type Paragraph struct{ Branch }

type Heading struct {
	Branch
	Depth int
}

type Blockquote struct{ Branch }

// List is an ordered or bullet list. Spread lists wrap item text in <p>.
// TaskList is set once any item carries a checkbox.
type List struct {
	Branch
	Ordered  bool
	Start    int
	Spread   bool
	TaskList bool
}

// ListItem is a list entry. Checked is non-nil for GFM task items.
type ListItem struct {
	Branch
	Checked *bool
}

// TaskMarker is the "[ ]" or "[x]" prefix of a task item as parsed. It is
// folded into ListItem.Checked by the gfm stage.
type TaskMarker struct {
	leaf
	Checked bool
}

type ThematicBreak struct{ leaf }

// CodeBlock is a fenced or indented code block. Value has no trailing newline.
type CodeBlock struct {
	leaf
	Lang  string
	Meta  string
	Value string
}

// HTML is raw markup from the source, emitted verbatim.
type HTML struct {
	leaf
	Value string
}

type Text struct {
	leaf
	Value string
}

type Emphasis struct{ Branch }

type Strong struct{ Branch }

type Strikethrough struct{ Branch }

type InlineCode struct {
	leaf
	Value string
}

// Break is a hard line break.
type Break struct{ leaf }

type Link struct {
	Branch
	URL   string
	Title string
}

type Image struct {
	leaf
	URL   string
	Title string
	Alt   string
}

// Align is a table column alignment.
type Align string

const (
	AlignNone   Align = ""
	AlignLeft   Align = "left"
	AlignRight  Align = "right"
	AlignCenter Align = "center"
)

type Table struct {
	Branch
	Align []Align
}

// TableRow is a table row; the first row of a table is its Header.
type TableRow struct {
	Branch
	Header bool
}

type TableCell struct {
	Branch
	Align Align
}

// Element is output produced by a transform: Markup is rendered as-is,
// wrapped in a RenderAs element when that is set. Later stages treat it as
// opaque.
type Element struct {
	leaf
	RenderAs string
	Attr     []html.Attribute
	Markup   []*html.Node
}

func (*Root) Type() string          { return "root" }
func (*Paragraph) Type() string     { return "paragraph" }
func (*Heading) Type() string       { return "heading" }
func (*Blockquote) Type() string    { return "blockquote" }
func (*List) Type() string          { return "list" }
func (*ListItem) Type() string      { return "listItem" }
func (*TaskMarker) Type() string    { return "taskMarker" }
func (*ThematicBreak) Type() string { return "thematicBreak" }
func (*CodeBlock) Type() string     { return "code" }
func (*HTML) Type() string          { return "html" }
func (*Text) Type() string          { return "text" }
func (*Emphasis) Type() string      { return "emphasis" }
func (*Strong) Type() string        { return "strong" }
func (*Strikethrough) Type() string { return "delete" }
func (*InlineCode) Type() string    { return "inlineCode" }
func (*Break) Type() string         { return "break" }
func (*Link) Type() string          { return "link" }
func (*Image) Type() string         { return "image" }
func (*Table) Type() string         { return "table" }
func (*TableRow) Type() string      { return "tableRow" }
func (*TableCell) Type() string     { return "tableCell" }
func (*Element) Type() string       { return "element" }

// TextContent concatenates the text below n, including inline code and
// image alt text.
func TextContent(n Node) string {
	var out []byte
	Walk(n, func(n Node, _ Parent, _ int) (Action, Node) {
		switch n := n.(type) {
		case *Text:
			out = append(out, n.Value...)
		case *InlineCode:
			out = append(out, n.Value...)
		case *Image:
			out = append(out, n.Alt...)
		}
		return Continue, nil
	})
	return string(out)
}

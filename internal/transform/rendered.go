package transform

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/quire/internal/markup"
	"github.com/starford/quire/internal/slug"
)

// HTMLStage rewrites the rendered HTML tree in place.
type HTMLStage func(doc *html.Node)

// UnwrapPre replaces a div whose only element child is a pre with that pre,
// so decorated code blocks are not nested in a container.
func UnwrapPre() HTMLStage {
	return func(doc *html.Node) {
		markup.Walk(doc, func(n *html.Node) bool {
			if !markup.IsElement(n, "div") {
				return true
			}
			pre := onlyElementChild(n)
			if !markup.IsElement(pre, "pre") {
				return true
			}
			markup.Replace(n, pre)
			return false
		})
	}
}

func onlyElementChild(n *html.Node) *html.Node {
	var only *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			if only != nil {
				return nil
			}
			only = c
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return nil
			}
		case html.CommentNode:
		default:
			return nil
		}
	}
	return only
}

var headingTags = map[string]bool{"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true}

// HeadingIDs gives every heading without an id one derived from its text,
// prefixed with prefix. Ids the author already set are never reused.
func HeadingIDs(prefix string) HTMLStage {
	return func(doc *html.Node) {
		s := slug.NewSlugger()
		var pending []*html.Node
		markup.Walk(doc, func(n *html.Node) bool {
			if n.Type != html.ElementNode || !headingTags[n.Data] {
				return true
			}
			if id, ok := markup.Attr(n, "id"); ok {
				s.Reserve(strings.TrimPrefix(id, prefix))
			} else {
				pending = append(pending, n)
			}
			return false
		})
		for _, n := range pending {
			markup.SetAttr(n, "id", prefix+s.Slug(markup.TextContent(n)))
		}
	}
}

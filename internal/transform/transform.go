// Package transform holds the compilation stages that rewrite a parsed
// document: link resolution, code block decoration, embeds and GFM task
// lists on the Markdown tree, then container unwrapping and heading ids on
// the rendered HTML tree.
package transform

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/starford/quire/internal/mdast"
)

// Stage rewrites the Markdown tree in place.
type Stage func(ctx context.Context, root *mdast.Root) error

var absoluteURL = regexp.MustCompile(`(?i)^(?:[a-z]+:)?//`)

// IsRelativeURL reports whether u has neither a scheme nor a protocol
// relative "//" prefix.
func IsRelativeURL(u string) bool {
	return !absoluteURL.MatchString(u)
}

// ResolveAgainst returns a resolver that interprets relative link targets
// against base, so "./other" under "/blog/" becomes "/blog/other". Fragment
// and query-only targets are kept. An empty base returns nil.
func ResolveAgainst(base string) func(string) string {
	if base == "" {
		return nil
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	b, err := url.Parse(base)
	if err != nil {
		return nil
	}
	return func(u string) string {
		if u == "" || strings.HasPrefix(u, "#") || strings.HasPrefix(u, "?") {
			return u
		}
		ref, err := url.Parse(u)
		if err != nil {
			return u
		}
		return b.ResolveReference(ref).String()
	}
}

// Links replaces every relative link with a copy whose URL is resolve(url).
// A nil resolve leaves the tree untouched.
func Links(resolve func(string) string) Stage {
	return func(_ context.Context, root *mdast.Root) error {
		if resolve == nil {
			return nil
		}
		mdast.Walk(root, func(n mdast.Node, parent mdast.Parent, _ int) (mdast.Action, mdast.Node) {
			link, ok := n.(*mdast.Link)
			if !ok || parent == nil || !IsRelativeURL(link.URL) {
				return mdast.Continue, nil
			}
			cp := *link
			cp.URL = resolve(link.URL)
			return mdast.ReplaceAndSkip, &cp
		})
		return nil
	}
}

// TaskLists folds the checkbox marker that opens a list item into the item
// and flags the enclosing list.
func TaskLists() Stage {
	return func(_ context.Context, root *mdast.Root) error {
		mdast.Walk(root, func(n mdast.Node, _ mdast.Parent, _ int) (mdast.Action, mdast.Node) {
			list, ok := n.(*mdast.List)
			if !ok {
				return mdast.Continue, nil
			}
			for _, c := range list.Nodes {
				item, ok := c.(*mdast.ListItem)
				if !ok || len(item.Nodes) == 0 {
					continue
				}
				p, ok := item.Nodes[0].(*mdast.Paragraph)
				if !ok || len(p.Nodes) == 0 {
					continue
				}
				marker, ok := p.Nodes[0].(*mdast.TaskMarker)
				if !ok {
					continue
				}
				checked := marker.Checked
				item.Checked = &checked
				p.Nodes = p.Nodes[1:]
				list.TaskList = true
			}
			return mdast.Continue, nil
		})
		return nil
	}
}

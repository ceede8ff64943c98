package transform

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/markup"
	"github.com/starford/quire/internal/mdast"
)

// EmbedResolver turns a bare URL into embeddable HTML. ok is false when the
// URL has no embed and the paragraph should stay a link.
type EmbedResolver interface {
	Resolve(ctx context.Context, url string) (html string, ok bool, err error)
}

// EmbedResolverFunc adapts a function to EmbedResolver.
type EmbedResolverFunc func(ctx context.Context, url string) (string, bool, error)

func (f EmbedResolverFunc) Resolve(ctx context.Context, url string) (string, bool, error) {
	return f(ctx, url)
}

// maxParallelEmbeds bounds concurrent resolver calls for one document.
const maxParallelEmbeds = 4

var youtubeHost = regexp.MustCompile(`youtu\.?be`)

type embedSite struct {
	parent mdast.Parent
	index  int
	url    string
	html   string
	ok     bool
	err    error
}

// Embeds replaces paragraphs that hold nothing but a bare http(s) URL with
// the resolver's markup. A failing resolver yields an inline error notice
// for that URL; only cancellation fails the stage.
func Embeds(resolver EmbedResolver, logger *slog.Logger) Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, root *mdast.Root) error {
		if resolver == nil {
			return nil
		}
		var sites []*embedSite
		mdast.Walk(root, func(n mdast.Node, parent mdast.Parent, index int) (mdast.Action, mdast.Node) {
			p, ok := n.(*mdast.Paragraph)
			if !ok || parent == nil {
				return mdast.Continue, nil
			}
			if u, ok := bareURL(p); ok {
				sites = append(sites, &embedSite{parent: parent, index: index, url: u})
			}
			return mdast.SkipChildren, nil
		})
		if len(sites) == 0 {
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxParallelEmbeds)
		for _, s := range sites {
			g.Go(func() error {
				s.html, s.ok, s.err = resolver.Resolve(gctx, s.url)
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, s := range sites {
			var nodes []*html.Node
			switch {
			case s.err != nil:
				logger.Warn("embed failed", slog.String("url", s.url), slog.String("error", s.err.Error()))
				nodes = []*html.Node{embedError(s.url)}
			case !s.ok || s.html == "":
				continue
			default:
				nodes = wrapEmbed(s.url, s.html)
			}
			s.parent.Children()[s.index] = &mdast.Element{Markup: nodes}
		}
		return nil
	}
}

// bareURL reports whether p is a single link whose text is its own absolute
// http(s) URL.
func bareURL(p *mdast.Paragraph) (string, bool) {
	if len(p.Nodes) != 1 {
		return "", false
	}
	link, ok := p.Nodes[0].(*mdast.Link)
	if !ok || mdast.TextContent(link) != link.URL {
		return "", false
	}
	u, err := url.Parse(link.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return link.URL, true
}

func embedError(u string) *html.Node {
	p := markup.Element("p")
	markup.Append(p,
		markup.Text("Error embedding "),
		markup.Append(markup.Element("a", "href", u), markup.Text(u)),
		markup.Text("."),
	)
	return p
}

func wrapEmbed(rawURL, snippet string) []*html.Node {
	nodes, err := markup.ParseFragment(snippet)
	if err != nil {
		nodes = []*html.Node{markup.Raw(snippet)}
	}
	u, _ := url.Parse(rawURL)
	switch {
	case youtubeHost.MatchString(u.Hostname()):
		return []*html.Node{responsive("youtube", "56.25%", nodes)}
	case strings.Contains(u.Hostname(), "codesandbox.io"):
		return []*html.Node{responsive("codesandbox", "80%", nodes)}
	}
	return nodes
}

func responsive(kind, ratio string, content []*html.Node) *html.Node {
	inner := markup.Append(markup.Element("div", "style", "padding-bottom: "+ratio), content...)
	return markup.Append(markup.Element("div", "class", "embed", "data-embed-type", kind), inner)
}

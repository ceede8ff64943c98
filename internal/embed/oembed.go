// Package embed resolves bare links to embeddable HTML through oEmbed
// endpoints.
package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/starford/quire/internal/cache"
	"github.com/starford/quire/internal/metrics"
)

// DefaultTimeout bounds a single oEmbed request.
const DefaultTimeout = 5 * time.Second

const (
	defaultCacheEntries = 512
	defaultCacheBytes   = 4 * 1024 * 1024
	maxResponseBytes    = 1 << 20
)

// ErrStatus is returned for non-2xx endpoint responses.
var ErrStatus = errors.New("embed: unexpected status")

// Provider is an oEmbed endpoint and the URL patterns it serves.
type Provider struct {
	Name     string
	Endpoint string
	Schemes  []*regexp.Regexp
}

// Match reports whether p serves u.
func (p Provider) Match(u string) bool {
	for _, re := range p.Schemes {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}

// DefaultProviders covers the sites posts link to most.
var DefaultProviders = []Provider{
	{
		Name:     "youtube",
		Endpoint: "https://www.youtube.com/oembed",
		Schemes: []*regexp.Regexp{
			regexp.MustCompile(`^https?://(www\.|m\.)?youtube\.com/(watch|shorts/|embed/)`),
			regexp.MustCompile(`^https?://youtu\.be/`),
		},
	},
	{
		Name:     "codesandbox",
		Endpoint: "https://codesandbox.io/oembed",
		Schemes:  []*regexp.Regexp{regexp.MustCompile(`^https?://codesandbox\.io/(s|p)/`)},
	},
	{
		Name:     "vimeo",
		Endpoint: "https://vimeo.com/api/oembed.json",
		Schemes:  []*regexp.Regexp{regexp.MustCompile(`^https?://(www\.|player\.)?vimeo\.com/`)},
	},
	{
		Name:     "twitter",
		Endpoint: "https://publish.twitter.com/oembed",
		Schemes:  []*regexp.Regexp{regexp.MustCompile(`^https?://(www\.|mobile\.)?(twitter|x)\.com/[^/]+/status/`)},
	},
}

// response is the subset of an oEmbed reply that is rendered.
type response struct {
	Type  string `json:"type"`
	HTML  string `json:"html"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// OEmbed resolves URLs against a provider table. Successful lookups are
// cached; failures are retried on the next call.
type OEmbed struct {
	client    *http.Client
	providers []Provider
	timeout   time.Duration
	cache     *cache.LRU[string]
	logger    *slog.Logger
	recorder  metrics.Recorder
}

// Option configures an OEmbed resolver.
type Option func(*OEmbed)

// WithHTTPClient sets the client used for endpoint requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *OEmbed) {
		if c != nil {
			o.client = c
		}
	}
}

// WithProviders replaces the provider table.
func WithProviders(p ...Provider) Option {
	return func(o *OEmbed) { o.providers = p }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *OEmbed) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithCache replaces the response cache.
func WithCache(c *cache.LRU[string]) Option {
	return func(o *OEmbed) { o.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *OEmbed) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(o *OEmbed) { o.recorder = metrics.OrNoop(r) }
}

// New returns a resolver over DefaultProviders.
func New(opts ...Option) *OEmbed {
	o := &OEmbed{
		client:    http.DefaultClient,
		providers: DefaultProviders,
		timeout:   DefaultTimeout,
		cache:     cache.New[string](defaultCacheEntries, defaultCacheBytes),
		logger:    slog.Default(),
		recorder:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Resolve returns the embed HTML for rawURL. ok is false when no provider
// serves the URL.
func (o *OEmbed) Resolve(ctx context.Context, rawURL string) (string, bool, error) {
	p, found := o.provider(rawURL)
	if !found {
		return "", false, nil
	}
	if h, ok := o.cache.Get(rawURL); ok {
		return h, true, nil
	}

	h, err := o.fetch(ctx, p, rawURL)
	o.recorder.IncEmbedResult(p.Name, err == nil && h != "")
	if err != nil {
		return "", false, fmt.Errorf("embed: %s: %w", p.Name, err)
	}
	if h == "" {
		return "", false, nil
	}
	o.cache.Set(rawURL, h)
	o.logger.Debug("embed resolved", slog.String("provider", p.Name), slog.String("url", rawURL))
	return h, true, nil
}

func (o *OEmbed) provider(u string) (Provider, bool) {
	for _, p := range o.providers {
		if p.Match(u) {
			return p, true
		}
	}
	return Provider{}, false
}

func (o *OEmbed) fetch(ctx context.Context, p Provider, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	endpoint, err := url.Parse(p.Endpoint)
	if err != nil {
		return "", fmt.Errorf("endpoint: %w", err)
	}
	q := endpoint.Query()
	q.Set("url", rawURL)
	q.Set("format", "json")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return body.markup(), nil
}

func (r response) markup() string {
	if r.HTML != "" {
		return r.HTML
	}
	if r.Type == "photo" && r.URL != "" {
		return fmt.Sprintf(`<img src="%s" alt="%s">`, html.EscapeString(r.URL), html.EscapeString(r.Title))
	}
	return ""
}

package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/quire/internal/cache"
	"github.com/starford/quire/internal/embed"
	"github.com/starford/quire/internal/highlight"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/queue"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Content   ContentConfig     `yaml:"content"`
	Cache     CacheConfig       `yaml:"cache"`
	Queue     QueueConfig       `yaml:"queue"`
	Highlight HighlightConfig   `yaml:"highlight"`
	Embed     EmbedConfig       `yaml:"embed"`
	Bundler   BundlerConfig     `yaml:"bundler"`
	Index     IndexConfig       `yaml:"index"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Content, &c.Cache, &c.Queue, &c.Highlight, &c.Embed, &c.Bundler, &c.Index, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig says where posts live and how they are presented.
type ContentConfig struct {
	// Dir is the posts directory.
	Dir        string `yaml:"dir"`
	HideDrafts bool   `yaml:"hide_drafts"`
	// HeadingIDPrefix is prepended to generated heading ids. A nil value
	// means pipeline.DefaultHeadingIDPrefix; "" disables the prefix.
	HeadingIDPrefix *string `yaml:"heading_id_prefix"`
	// BaseURL, when set, is what relative links are resolved against.
	BaseURL string `yaml:"base_url"`
}

// HeadingPrefix returns the effective heading id prefix.
func (c *ContentConfig) HeadingPrefix() string {
	if c.HeadingIDPrefix == nil {
		return pipeline.DefaultHeadingIDPrefix
	}
	return *c.HeadingIDPrefix
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// CacheConfig bounds each of the in-memory caches.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
	MaxBytes   int `yaml:"max_bytes"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxEntries, validation.Min(0)),
		validation.Field(&c.MaxBytes, validation.Min(0)),
	)
}

// QueueConfig bounds concurrent toolchain compilations.
type QueueConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Validate validates the queue configuration.
func (c *QueueConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1)),
	)
}

// HighlightConfig selects the code theme and the highlighted languages.
type HighlightConfig struct {
	// Theme is a chroma style name, "base16", or a path to a YAML theme.
	Theme     string   `yaml:"theme"`
	Languages []string `yaml:"languages"`
}

// Validate validates the highlight configuration.
func (c *HighlightConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Theme, validation.Required),
	)
}

// EmbedConfig controls oEmbed resolution of bare URLs.
type EmbedConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the embed configuration.
func (c *EmbedConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// BundlerConfig names the external MDX toolchain. An empty command
// disables .mdx posts.
type BundlerConfig struct {
	Command []string `yaml:"command"`
	Dir     string   `yaml:"dir"`
}

// Enabled reports whether a toolchain is configured.
func (c *BundlerConfig) Enabled() bool { return len(c.Command) > 0 }

// Validate validates the bundler configuration.
func (c *BundlerConfig) Validate() error {
	if c.Enabled() && c.Command[0] == "" {
		return fmt.Errorf("bundler: command must start with an executable")
	}
	return nil
}

// IndexConfig controls the search index and the content watcher.
type IndexConfig struct {
	Enabled bool `yaml:"enabled"`
	// DSN is a SQLite path or URI; empty means an in-memory database.
	DSN   string `yaml:"dsn"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	if c.Watch && !c.Enabled {
		return fmt.Errorf("index: watch requires the index to be enabled")
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			Dir: "./content/blog",
		},
		Cache: CacheConfig{
			MaxEntries: cache.DefaultMaxEntries,
			MaxBytes:   cache.DefaultMaxBytes,
		},
		Queue: QueueConfig{
			Concurrency: queue.DefaultConcurrency,
		},
		Highlight: HighlightConfig{
			Theme: highlight.DefaultTheme,
		},
		Embed: EmbedConfig{
			Enabled: true,
			Timeout: embed.DefaultTimeout,
		},
		Index: IndexConfig{
			Enabled: true,
			DSN:     index.DefaultDSN,
			Watch:   true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

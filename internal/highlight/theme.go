package highlight

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/starford/quire/internal/yamlutil"
)

// DefaultTheme is the embedded base16 theme.
const DefaultTheme = "base16"

//go:embed themes/*.yaml
var themeFS embed.FS

// Theme is the YAML form of a colour theme. Token keys are chroma token type
// names such as Keyword or LiteralString.
type Theme struct {
	Name       string            `yaml:"name"`
	Background string            `yaml:"background"`
	Foreground string            `yaml:"foreground"`
	Tokens     map[string]string `yaml:"tokens"`
}

var tokenTypes = func() map[string]chroma.TokenType {
	m := make(map[string]chroma.TokenType, len(chroma.StandardTypes))
	for tt := range chroma.StandardTypes {
		m[tt.String()] = tt
	}
	return m
}()

// Style converts the theme into a chroma style.
func (t *Theme) Style() (*chroma.Style, error) {
	entries := chroma.StyleEntries{}
	var bg []string
	if t.Foreground != "" {
		bg = append(bg, t.Foreground)
	}
	if t.Background != "" {
		bg = append(bg, "bg:"+t.Background)
	}
	if len(bg) > 0 {
		entries[chroma.Background] = strings.Join(bg, " ")
	}
	for name, spec := range t.Tokens {
		tt, ok := tokenTypes[name]
		if !ok {
			return nil, fmt.Errorf("highlight: theme %q: unknown token type %q", t.Name, name)
		}
		entries[tt] = spec
	}
	style, err := chroma.NewStyle(t.Name, entries)
	if err != nil {
		return nil, fmt.Errorf("highlight: theme %q: %w", t.Name, err)
	}
	return style, nil
}

// LoadTheme resolves name to a style. name may be the embedded theme, a path
// to a YAML theme file or the name of a stock chroma style.
func LoadTheme(name string) (*chroma.Style, error) {
	if name == "" {
		name = DefaultTheme
	}
	if data, err := themeFS.ReadFile("themes/" + name + ".yaml"); err == nil {
		return parseTheme(data)
	}
	if ext := filepath.Ext(name); ext == ".yaml" || ext == ".yml" {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("highlight: read theme: %w", err)
		}
		return parseTheme(data)
	}
	if style, ok := styles.Registry[strings.ToLower(name)]; ok {
		return style, nil
	}
	return nil, fmt.Errorf("highlight: unknown theme %q", name)
}

func parseTheme(data []byte) (*chroma.Style, error) {
	var t Theme
	if err := yamlutil.UnmarshalStrict(data, &t); err != nil {
		return nil, fmt.Errorf("highlight: parse theme: %w", err)
	}
	if t.Name == "" {
		return nil, fmt.Errorf("highlight: theme has no name")
	}
	return t.Style()
}

// Themes encode base16 slots as the reserved colour #FFFFxx because the
// style grammar only accepts hex colours.
var fakeHex = regexp.MustCompile(`(?i)^#ffff(.+)$`)

// NormalizeColor rewrites a reserved #FFFFxx colour into var(--basexx) and
// returns any other colour unchanged.
func NormalizeColor(c string) string {
	m := fakeHex.FindStringSubmatch(c)
	if m == nil {
		return c
	}
	return "var(--base" + strings.ToUpper(m[1]) + ")"
}

func colourString(c chroma.Colour) string {
	if !c.IsSet() {
		return ""
	}
	return NormalizeColor(c.String())
}

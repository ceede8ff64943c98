// Package frontmatter splits the leading YAML block off a Markdown document
// and validates it against the post schema.
package frontmatter

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	delim    = "---"
	altClose = "..."
)

// Split separates YAML frontmatter (between leading --- delimiters) from the
// Markdown body. A missing block, a block without a closing delimiter or a
// block that is not a YAML mapping all yield an empty map and the full text
// as body.
func Split(raw string) (map[string]any, string) {
	text := strings.TrimPrefix(raw, "\ufeff")
	text = strings.TrimLeft(text, "\r\n")

	first, rest, ok := cutLine(text)
	if !ok || trimLine(first) != delim {
		return map[string]any{}, raw
	}

	var block strings.Builder
	for {
		line, next, more := cutLine(rest)
		if l := trimLine(line); l == delim || l == altClose {
			attrs, ok := decode(block.String())
			if !ok {
				return map[string]any{}, raw
			}
			return attrs, next
		}
		if !more {
			// No closing delimiter.
			return map[string]any{}, raw
		}
		block.WriteString(line)
		block.WriteByte('\n')
		rest = next
	}
}

func decode(block string) (map[string]any, bool) {
	attrs := map[string]any{}
	if strings.TrimSpace(block) == "" {
		return attrs, true
	}
	if err := yaml.Unmarshal([]byte(block), &attrs); err != nil {
		return nil, false
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	return attrs, true
}

// cutLine returns the first line of s without its terminator, the remainder
// after the terminator, and whether a terminator was found.
func cutLine(s string) (line, rest string, found bool) {
	line, rest, found = strings.Cut(s, "\n")
	return strings.TrimSuffix(line, "\r"), rest, found
}

func trimLine(s string) string {
	return strings.TrimRight(s, " \t")
}

package frontmatter

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrInvalid matches every *Error via errors.Is.
var ErrInvalid = errors.New("invalid frontmatter")

// Error reports frontmatter that does not match the post schema. It carries
// the offending slug and the attributes exactly as they were decoded.
type Error struct {
	Slug     string
	Received map[string]any
	Fields   validation.Errors
}

func (e *Error) Error() string {
	received, err := json.Marshal(e.Received)
	if err != nil {
		received = []byte(fmt.Sprintf("%v", e.Received))
	}
	return fmt.Sprintf("Invalid frontmatter in %s. Received: %s", e.Slug, received)
}

func (e *Error) Unwrap() error { return ErrInvalid }

// Validator checks decoded attributes for the document identified by slug.
type Validator interface {
	Validate(slug string, attrs map[string]any) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(slug string, attrs map[string]any) error

// Validate calls f.
func (f ValidatorFunc) Validate(slug string, attrs map[string]any) error { return f(slug, attrs) }

// PostValidator enforces the post schema: title and createdAt are required
// strings, description, excerpt and updatedAt are optional strings and draft
// is an optional bool.
var PostValidator Validator = ValidatorFunc(Validate)

var (
	isString = validation.By(func(v any) error {
		if _, ok := v.(string); !ok {
			return errors.New("must be a string")
		}
		return nil
	})
	isBool = validation.By(func(v any) error {
		if _, ok := v.(bool); !ok {
			return errors.New("must be a boolean")
		}
		return nil
	})

	postRules = validation.Map(
		validation.Key("title", isString),
		validation.Key("createdAt", isString),
		validation.Key("description", isString).Optional(),
		validation.Key("excerpt", isString).Optional(),
		validation.Key("updatedAt", isString).Optional(),
		validation.Key("draft", isBool).Optional(),
	).AllowExtraKeys()
)

// Validate checks attrs against the post schema.
func Validate(slug string, attrs map[string]any) error {
	if attrs == nil {
		attrs = map[string]any{}
	}
	err := validation.Validate(attrs, postRules)
	if err == nil {
		return nil
	}
	fe := &Error{Slug: slug, Received: attrs}
	var fields validation.Errors
	if errors.As(err, &fields) {
		fe.Fields = fields
	}
	return fe
}

// Post is the typed form of validated post attributes.
type Post struct {
	Title       string `json:"title"`
	CreatedAt   string `json:"createdAt"`
	Description string `json:"description,omitempty"`
	Excerpt     string `json:"excerpt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	Draft       bool   `json:"draft,omitempty"`
}

// Decode reads the post attributes out of attrs. Values of the wrong type
// are left zero; call Validate first to reject them.
func Decode(attrs map[string]any) Post {
	str := func(k string) string {
		s, _ := attrs[k].(string)
		return s
	}
	draft, _ := attrs["draft"].(bool)
	return Post{
		Title:       str("title"),
		CreatedAt:   str("createdAt"),
		Description: str("description"),
		Excerpt:     str("excerpt"),
		UpdatedAt:   str("updatedAt"),
		Draft:       draft,
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate parses the date formats authors use in createdAt and updatedAt.
// It returns the zero time when none match.
func ParseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Created returns the parsed createdAt, or the zero time.
func (p Post) Created() time.Time { return ParseDate(p.CreatedAt) }

// Updated returns the parsed updatedAt, or the zero time.
func (p Post) Updated() time.Time { return ParseDate(p.UpdatedAt) }

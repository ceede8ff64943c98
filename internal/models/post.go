// Package models defines the shapes handed to API and tool callers.
package models

import (
	"time"

	"github.com/starford/quire/internal/readingtime"
)

// Post is a compiled blog post.
type Post struct {
	ID              string              `json:"id"`
	Slug            string              `json:"slug"`
	Title           string              `json:"title"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       *time.Time          `json:"updatedAt,omitempty"`
	Description     string              `json:"description,omitempty"`
	Excerpt         string              `json:"excerpt,omitempty"`
	Draft           bool                `json:"draft"`
	ContentHTML     string              `json:"contentHtml"`
	ContentMarkdown string              `json:"contentMarkdown"`
	Code            string              `json:"code,omitempty"`
	ReadingTime     *readingtime.Result `json:"readingTime,omitempty"`
	Checksum        string              `json:"checksum"`
}

// PostSummary is the listing form of a post, without content.
type PostSummary struct {
	ID          string              `json:"id"`
	Slug        string              `json:"slug"`
	Title       string              `json:"title"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   *time.Time          `json:"updatedAt,omitempty"`
	Description string              `json:"description,omitempty"`
	Excerpt     string              `json:"excerpt,omitempty"`
	Draft       bool                `json:"draft"`
	ReadingTime *readingtime.Result `json:"readingTime,omitempty"`
	Checksum    string              `json:"checksum"`
}

// Summary strips the content from p.
func (p *Post) Summary() PostSummary {
	return PostSummary{
		ID:          p.ID,
		Slug:        p.Slug,
		Title:       p.Title,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Description: p.Description,
		Excerpt:     p.Excerpt,
		Draft:       p.Draft,
		ReadingTime: p.ReadingTime,
		Checksum:    p.Checksum,
	}
}

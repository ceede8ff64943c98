package api

import (
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pipeline"
)

// CompileRequest is the request body for POST /api/compile.
type CompileRequest struct {
	// Key caches the result under a slug; empty compiles uncached.
	Key     string `json:"key,omitempty" example:"hello-world"`
	Content string `json:"content" example:"---\ntitle: Hi\ncreatedAt: 2024-01-01\n---\n# Hi" validate:"required"`
}

// CompileResponse is the compiled document.
type CompileResponse = pipeline.Result

// FrontmatterErrorResponse is returned with 422 when frontmatter does not
// match the post schema.
type FrontmatterErrorResponse struct {
	Error    string            `json:"error" validate:"required"`
	Slug     string            `json:"slug" example:"hello-world"`
	Received map[string]any    `json:"received"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// PostDetail is a full post.
type PostDetail = models.Post

// PostListResponse wraps post listings.
type PostListResponse struct {
	Posts []models.PostSummary `json:"posts" validate:"required"`
	Total int                  `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

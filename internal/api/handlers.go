package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/frontmatter"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pipeline"
)

const maxCompileBytes = 10 << 20

// Posts is the read side of the content service.
type Posts interface {
	GetPost(ctx context.Context, slug string) (*models.Post, error)
	ListPosts(ctx context.Context, opts content.ListOptions) ([]*models.Post, error)
}

// Compiler compiles ad-hoc Markdown.
type Compiler interface {
	Compile(ctx context.Context, key, raw string, v frontmatter.Validator) (*pipeline.Result, error)
}

// Searcher answers full-text queries.
type Searcher interface {
	Search(query string, limit int) ([]index.SearchResult, error)
}

// Handler holds API route handlers.
type Handler struct {
	posts    Posts
	compiler Compiler
	search   Searcher
}

// NewHandler creates a Handler. search may be nil, in which case the search
// endpoint reports 503.
func NewHandler(posts Posts, compiler Compiler, search Searcher) *Handler {
	return &Handler{posts: posts, compiler: compiler, search: search}
}

// ListPosts handles GET /api/posts.
//
//	@Summary		List posts, newest first
//	@Tags			posts
//	@Produce		json
//	@Param			drafts	query		bool	false	"Include drafts"
//	@Success		200		{object}	PostListResponse
//	@Failure		422		{object}	FrontmatterErrorResponse
//	@Security		BearerAuth
//	@Router			/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	drafts, _ := strconv.ParseBool(r.URL.Query().Get("drafts"))

	posts, err := h.posts.ListPosts(r.Context(), content.ListOptions{IncludeDrafts: drafts})
	if err != nil {
		writeCompileError(w, "list posts failed", "", err)
		return
	}
	items := make([]models.PostSummary, 0, len(posts))
	for _, p := range posts {
		items = append(items, p.Summary())
	}
	writeJSON(w, http.StatusOK, PostListResponse{Posts: items, Total: len(items)})
}

// GetPost handles GET /api/posts/{slug}.
//
//	@Summary		Get a compiled post
//	@Tags			posts
//	@Produce		json
//	@Param			slug			path		string	true	"Post slug"
//	@Param			If-None-Match	header		string	false	"Checksum from a previous ETag"
//	@Success		200				{object}	PostDetail
//	@Success		304				"Not modified"
//	@Failure		404				{object}	errResponse
//	@Failure		422				{object}	FrontmatterErrorResponse
//	@Security		BearerAuth
//	@Router			/posts/{slug} [get]
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	post, err := h.posts.GetPost(r.Context(), slug)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		writeCompileError(w, "get post failed", slug, err)
		return
	}

	etag := `"` + post.Checksum + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Compile handles POST /api/compile.
//
//	@Summary		Compile Markdown with frontmatter
//	@Tags			compile
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CompileRequest	true	"Document to compile"
//	@Success		200		{object}	CompileResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	FrontmatterErrorResponse
//	@Security		BearerAuth
//	@Router			/compile [post]
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCompileBytes)
	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	res, err := h.compiler.Compile(r.Context(), req.Key, req.Content, frontmatter.PostValidator)
	if err != nil {
		writeCompileError(w, "compile failed", req.Key, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across posts
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if h.search == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search index disabled"))
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.search.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// writeCompileError maps compilation failures to responses. Frontmatter
// errors are the caller's fault and come back as 422 with the attributes
// that were received.
func writeCompileError(w http.ResponseWriter, msg, slug string, err error) {
	var fe *frontmatter.Error
	switch {
	case errors.As(err, &fe):
		resp := FrontmatterErrorResponse{Error: fe.Error(), Slug: fe.Slug, Received: fe.Received}
		if len(fe.Fields) > 0 {
			resp.Fields = make(map[string]string, len(fe.Fields))
			for k, v := range fe.Fields {
				resp.Fields[k] = v.Error()
			}
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.Is(err, apperr.ErrUnsupported):
		writeJSON(w, http.StatusNotImplemented, errorBody(err.Error()))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("request cancelled"))
	default:
		slog.Error(msg, slog.String("slug", slug), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

// Package mcpserver exposes the post compiler and the post collection as
// MCP (Model Context Protocol) tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/frontmatter"
	"github.com/starford/quire/internal/index"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/pipeline"
	"github.com/starford/quire/internal/readingtime"
)

// PostFormatURI is the resource holding PostFormatContract.
const PostFormatURI = "quire://post-format"

const defaultSearchLimit = 20

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

// Server wraps the MCP server with the quire tools.
type Server struct {
	mcp      *server.MCPServer
	posts    Posts
	compiler Compiler
	search   Searcher
}

// New creates an MCP server with all tools registered. search may be nil.
func New(posts Posts, compiler Compiler, search Searcher, version string) *Server {
	s := &Server{posts: posts, compiler: compiler, search: search}

	s.mcp = server.NewMCPServer(
		"Quire",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List posts newest first, without their content."),
		mcp.WithBoolean("drafts", mcp.Description("Include drafts")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("get_post",
		mcp.WithDescription("Get one compiled post, including its HTML and Markdown."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Post slug (file name without extension)")),
	), s.getPost)

	s.mcp.AddTool(mcp.NewTool("compile_markdown",
		mcp.WithDescription("Compile Markdown with YAML frontmatter to HTML. "+
			"The frontmatter must follow the post format; read it first via "+
			"get_post_format or the "+PostFormatURI+" resource."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown source including frontmatter")),
		mcp.WithString("key", mcp.Description("Optional slug to cache the result under")),
	), s.compileMarkdown)

	s.mcp.AddTool(mcp.NewTool("reading_time",
		mcp.WithDescription("Estimate the reading time of a text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to measure")),
		mcp.WithNumber("words_per_minute", mcp.Description("Reading speed, default 200")),
	), s.readingTime)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Full-text search through post titles, descriptions and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of hits, default 20")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("get_post_format",
		mcp.WithDescription("Returns the post format: file layout, frontmatter schema and Markdown features."),
	), s.getPostFormat)

	s.mcp.AddResource(
		mcp.NewResource(PostFormatURI, "Post Format",
			mcp.WithResourceDescription("File layout and frontmatter schema every post must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPostFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	posts, err := s.posts.ListPosts(ctx, content.ListOptions{IncludeDrafts: req.GetBool("drafts", false)})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items := make([]models.PostSummary, 0, len(posts))
	for _, p := range posts {
		items = append(items, p.Summary())
	}
	return jsonResult(items)
}

func (s *Server) getPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	post, err := s.posts.GetPost(ctx, slug)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(post)
}

func (s *Server) compileMarkdown(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.compiler.Compile(ctx, req.GetString("key", ""), src, frontmatter.PostValidator)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) readingTime(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	wpm := req.GetInt("words_per_minute", readingtime.DefaultWordsPerMinute)
	return jsonResult(readingtime.Estimate(text, readingtime.WithWordsPerMinute(wpm)))
}

func (s *Server) searchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.search == nil {
		return mcp.NewToolResultError("search index disabled"), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.search.Search(query, req.GetInt("limit", defaultSearchLimit))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	return jsonResult(results)
}

func (s *Server) getPostFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PostFormatContract), nil
}

func (s *Server) readPostFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      PostFormatURI,
			MIMEType: "text/markdown",
			Text:     PostFormatContract,
		},
	}, nil
}

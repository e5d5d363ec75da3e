// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes read-only Quire tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/postservice"
)

// PostFormatURI is the resource URI of the post format contract.
const PostFormatURI = "quire://post-format"

const (
	defaultListLimit   = 10
	defaultSearchLimit = 20
	maxLimit           = 100
)

// Server wraps the MCP server with Quire tools.
type Server struct {
	mcp *server.MCPServer
	svc *postservice.Service
}

// New creates a new MCP server with all Quire tools registered.
func New(svc *postservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Quire",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List blog posts newest first. Returns summaries without bodies; "+
			"page with offset while hasNext is true."),
		mcp.WithNumber("limit", mcp.Description("Page size (default 10, max 100)")),
		mcp.WithNumber("offset", mcp.Description("Number of posts to skip")),
		mcp.WithString("tag", mcp.Description("Only posts carrying this tag")),
		mcp.WithString("locale", mcp.Description("Locale variant, e.g. en (empty for the default locale)")),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("read_post",
		mcp.WithDescription("Read one post with its metadata and Markdown body."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Post id (its directory name)")),
		mcp.WithString("locale", mcp.Description("Locale variant (falls back to the default locale)")),
	), s.readPost)

	s.mcp.AddTool(mcp.NewTool("search_posts",
		mcp.WithDescription("Full-text search through post titles, descriptions, tags and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
		mcp.WithString("locale", mcp.Description("Locale variant")),
	), s.searchPosts)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List every tag with the number of posts carrying it, most used first."),
		mcp.WithString("locale", mcp.Description("Locale variant")),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_post_format",
		mcp.WithDescription("Returns the post file format: directory layout and front-matter rules."),
	), s.getPostFormat)

	s.mcp.AddResource(
		mcp.NewResource(PostFormatURI, "Post Format Contract",
			mcp.WithResourceDescription("Directory layout and front-matter format of Quire posts."),
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

func limitArg(req mcp.CallToolRequest, def int) int {
	n := req.GetInt("limit", def)
	switch {
	case n <= 0:
		return def
	case n > maxLimit:
		return maxLimit
	}
	return n
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := s.svc.ListPosts(ctx,
		req.GetString("locale", ""),
		req.GetString("tag", ""),
		limitArg(req, defaultListLimit),
		max(req.GetInt("offset", 0), 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(page)
}

// postView is a post without the rendered HTML.
type postView struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PublishedAt  int64    `json:"publishedAt"`
	ThumbnailURL *string  `json:"thumbnailURL"`
	Tags         []string `json:"tags"`
	Locale       string   `json:"locale"`
	Content      string   `json:"content"`
}

func (s *Server) readPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.svc.GetPost(ctx, id, req.GetString("locale", ""))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(postView{
		ID:           p.ID,
		Title:        p.Title,
		Description:  p.Description,
		PublishedAt:  p.PublishedAt,
		ThumbnailURL: p.ThumbnailURL,
		Tags:         p.Tags,
		Locale:       p.Locale,
		Content:      p.Content,
	})
}

func (s *Server) searchPosts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.Search(ctx, query, req.GetString("locale", ""), limitArg(req, defaultSearchLimit))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no posts found"), nil
	}
	return jsonResult(hits)
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.svc.Tags(ctx, req.GetString("locale", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(tags)
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

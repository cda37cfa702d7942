// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the blog's posts and sync pass to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/issueblog/internal/apperr"
	"github.com/starford/issueblog/internal/postservice"
	"github.com/starford/issueblog/internal/scaffold"
)

const postFormatURI = "issueblog://post-format"

// Server wraps the MCP server with blog tools.
type Server struct {
	mcp *server.MCPServer
	svc *postservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *postservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"issueblog",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List valid posts and the directories skipped by sync, with the reason for each skip."),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("get_post",
		mcp.WithDescription("Read one post by id: its source document and the issue body sync will publish."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Six-character post id")),
	), s.getPost)

	s.mcp.AddTool(mcp.NewTool("create_post",
		mcp.WithDescription("Create a new post directory with an index.md skeleton and an assets folder. "+
			"Read the format via get_post_format or the "+postFormatURI+" resource before editing it."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Post title")),
		mcp.WithString("label", mcp.Description("Optional label; defaults to the configured label")),
	), s.createPost)

	s.mcp.AddTool(mcp.NewTool("sync_posts",
		mcp.WithDescription("Mirror all posts to GitHub issues, close issues of deleted posts and refresh the table of contents."),
	), s.syncPosts)

	s.mcp.AddTool(mcp.NewTool("upload_asset",
		mcp.WithDescription("Store an image in a post's assets folder from an http(s) URL or a base64 data URI."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Post directory name")),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:<mime>;base64,<data> URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
	), s.uploadAsset)

	s.mcp.AddTool(mcp.NewTool("get_post_format",
		mcp.WithDescription("Returns the post directory and front matter format."),
	), s.getPostFormat)

	s.mcp.AddResource(
		mcp.NewResource(postFormatURI, "Post Format",
			mcp.WithResourceDescription("Layout and front matter every post must follow."),
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

func (s *Server) listPosts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.ListPosts(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (s *Server) getPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	post, err := s.svc.GetPost(ctx, id)
	if err != nil {
		if postservice.IsNotExist(err) {
			return mcp.NewToolResultError(fmt.Sprintf("post not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(post)
}

func (s *Server) createPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	label := ""
	if v, lErr := req.RequireString("label"); lErr == nil {
		label = v
	}

	created, err := s.svc.CreatePost(ctx, scaffold.Request{Title: title, Label: label})
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return mcp.NewToolResultError(fmt.Sprintf("post already exists: %s", title)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(created)
}

func (s *Server) syncPosts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Sync(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sync failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (s *Server) getPostFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PostFormatContract), nil
}

func (s *Server) readPostFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      postFormatURI,
			MIMEType: "text/markdown",
			Text:     PostFormatContract,
		},
	}, nil
}

// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the wiki's subjects as tools for LLM integration via
// stdio transport.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/veleda/ansuz/internal/storage"
)

// Server wraps the MCP server with wiki tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
}

// New creates a new MCP server with all wiki tools registered.
func New(store storage.Provider) *Server {
	s := &Server{store: store}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_subjects",
		mcp.WithDescription("List the names of all wiki subjects."),
	), s.listSubjects)

	s.mcp.AddTool(mcp.NewTool("read_subject",
		mcp.WithDescription("Read the full Markdown content of a wiki subject."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Subject name (e.g. quantum physics)")),
	), s.readSubject)

	s.mcp.AddTool(mcp.NewTool("create_subject",
		mcp.WithDescription("Create a new wiki subject with the given Markdown content. "+
			"Fails if a subject with that name already exists."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name for the new subject")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content of the subject")),
	), s.createSubject)

	s.mcp.AddTool(mcp.NewTool("update_subject",
		mcp.WithDescription("Replace the Markdown content of an existing wiki subject."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the subject to update")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown content")),
	), s.updateSubject)

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

func (s *Server) listSubjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.store.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no subjects"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) readSubject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createSubject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	exists, err := s.store.Exists(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if exists {
		return mcp.NewToolResultError(fmt.Sprintf("subject already exists: %s", name)), nil
	}

	if err := s.store.Write(name, []byte(content)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", name)), nil
}

func (s *Server) updateSubject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	exists, err := s.store.Exists(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !exists {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", name)), nil
	}

	if err := s.store.Write(name, []byte(content)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", name)), nil
}

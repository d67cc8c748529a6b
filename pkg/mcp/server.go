// Package mcp exposes ember route inspection over the Model Context
// Protocol, so editors and agents can list, resolve and lint the routes of
// a project without running it.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/abdul-hamid-achik/ember/internal/version"
)

// Server is an MCP server bound to one project directory.
type Server struct {
	workdir   string
	mcpServer *server.MCPServer
}

// NewServer creates a server for the project in workdir and registers
// its tools.
func NewServer(workdir string) *Server {
	s := &Server{
		workdir:   workdir,
		mcpServer: server.NewMCPServer("ember", version.GetVersion(), server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

// ServeStdio serves MCP over stdin and stdout until the client hangs up.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("ember_list_routes",
		mcp.WithDescription("List the route table in match order: method, URL pattern, handler file and signature shape."),
		mcp.WithString("method", mcp.Description("Only list entries for this HTTP method")),
	), s.handleListRoutes)

	s.mcpServer.AddTool(mcp.NewTool("ember_resolve_route",
		mcp.WithDescription("Resolve a request path to the first matching route entry and its parameters."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Request path, e.g. /users/42")),
		mcp.WithString("method", mcp.Description("HTTP method (default: GET)")),
	), s.handleResolveRoute)

	s.mcpServer.AddTool(mcp.NewTool("ember_scan_warnings",
		mcp.WithDescription("Report scan warnings: unreadable files, unsupported handler signatures, shadowed functions and overlapping routes."),
	), s.handleScanWarnings)

	s.mcpServer.AddTool(mcp.NewTool("ember_generate_route",
		mcp.WithDescription("Create a handler file under the route root with one stub per method."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Route path with bracketed dynamic segments, e.g. users/[id]")),
		mcp.WithString("methods", mcp.Description("Comma-separated HTTP methods (default: GET)")),
		mcp.WithBoolean("ui", mcp.Description("Mark the file as a ui route instead of api")),
	), s.handleGenerateRoute)

	s.mcpServer.AddTool(mcp.NewTool("ember_info",
		mcp.WithDescription("Describe the project: config file, go.mod module, route root and handler counts."),
	), s.handleInfo)
}

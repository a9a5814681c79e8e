// Package mcpserver exposes the engine's operations as MCP tools over
// stdio. Handlers validate arguments, call the engine and return JSON text
// results; every handler failure becomes a tool-error result, never a
// transport error, so a misconfigured collaborator degrades to a readable
// message in the client.
package mcpserver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mbagrov/bimtally/internal/engine"
)

// Server wraps the MCP server around the engine.
type Server struct {
	engine *engine.Engine
	mcp    *server.MCPServer
}

// New creates the tool server and registers the full tool set.
func New(eng *engine.Engine, version string) *Server {
	s := &Server{engine: eng}

	s.mcp = server.NewMCPServer(
		"bimtally",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.registerModelTools()
	s.registerVORTools()
	s.registerNavisworksTools()
	return s
}

// Server returns the underlying MCP server, for transports other than
// stdio.
func (s *Server) Server() *server.MCPServer {
	return s.mcp
}

// ServeStdio blocks serving the stdio transport until the client
// disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// jsonResult marshals v into an indented JSON text result.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to serialize result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

func errorResult(op string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", op, err))
}

// splitList turns a comma-separated argument into a trimmed slice. Empty
// input yields nil, which every engine operation reads as "default set".
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

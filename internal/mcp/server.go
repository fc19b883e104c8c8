package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/capyBearista/better-gemini-mcp/internal/chunk"
	"github.com/capyBearista/better-gemini-mcp/internal/config"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"gemini_research": {
		def:     researchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleResearch },
	},
	"gemini_fetch_chunk": {
		def:     fetchChunkToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetchChunk },
	},
	"gemini_chunk_info": {
		def:     chunkInfoToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleChunkInfo },
	},
	"gemini_validate_path": {
		def:     validatePathToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleValidatePath },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the research tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(h *Handlers, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"better-gemini-mcp",
		version,
		server.WithToolCapabilities(true),
	)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(exec Executor, store *chunk.Store, cfg *config.Config, trustedRoot, version string) error {
	h := NewHandlers(exec, store, cfg, trustedRoot)
	s := NewServer(h, cfg, version)
	return server.ServeStdio(s)
}

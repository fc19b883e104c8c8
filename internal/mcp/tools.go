package mcp

import "github.com/mark3labs/mcp-go/mcp"

var researchToolDef = mcp.NewTool("gemini_research",
	mcp.WithDescription(
		"Run a research question against the Gemini CLI with its large context window. "+
			"Reference files and directories inside the project with @path syntax. "+
			"Oversized answers are chunked; the result then carries a chunk_key for "+
			"gemini_fetch_chunk. The engine runs read-only and cannot modify anything.",
	),
	mcp.WithString("prompt",
		mcp.Required(),
		mcp.Description("The research question. @path references are validated against the trusted root."),
	),
	mcp.WithString("mode",
		mcp.Description("Request class: \"fast\" (default) for quick lookups, \"deep\" for large-context analysis."),
	),
	mcp.WithArray("directories",
		mcp.Description("Directories to bring into scope, relative to the trusted root."),
		mcp.WithStringItems(),
	),
)

var fetchChunkToolDef = mcp.NewTool("gemini_fetch_chunk",
	mcp.WithDescription(
		"Fetch one chunk of a previously chunked research answer. Chunks are 1-indexed "+
			"and expire with the bundle's TTL.",
	),
	mcp.WithString("chunk_key",
		mcp.Required(),
		mcp.Description("The chunk_key returned by gemini_research."),
	),
	mcp.WithNumber("index",
		mcp.Required(),
		mcp.Description("1-based chunk index."),
	),
)

var chunkInfoToolDef = mcp.NewTool("gemini_chunk_info",
	mcp.WithDescription("Report chunk count and expiry for a cached research answer."),
	mcp.WithString("chunk_key",
		mcp.Required(),
		mcp.Description("The chunk_key returned by gemini_research."),
	),
)

var validatePathToolDef = mcp.NewTool("gemini_validate_path",
	mcp.WithDescription(
		"Check whether a path resolves inside the trusted root. Returns a verdict; "+
			"a disallowed path is reported, not an error.",
	),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Absolute path, or path relative to the trusted root."),
	),
)

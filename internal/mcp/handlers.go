package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/capyBearista/better-gemini-mcp/internal/chunk"
	"github.com/capyBearista/better-gemini-mcp/internal/config"
	"github.com/capyBearista/better-gemini-mcp/internal/errors"
	"github.com/capyBearista/better-gemini-mcp/internal/gemini"
	"github.com/capyBearista/better-gemini-mcp/internal/pathguard"
)

// Executor runs an orchestrated research call.
type Executor interface {
	Execute(ctx context.Context, prompt string, class gemini.RequestClass, progress gemini.Progress) (*gemini.Result, error)
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	exec  Executor
	store *chunk.Store
	cfg   *config.Config
	root  string
}

// NewHandlers creates a new Handlers instance. root is the trusted root,
// absolute and cleaned.
func NewHandlers(exec Executor, store *chunk.Store, cfg *config.Config, root string) *Handlers {
	return &Handlers{exec: exec, store: store, cfg: cfg, root: root}
}

// Request types for each tool

// ResearchRequest represents the arguments for gemini_research.
type ResearchRequest struct {
	Prompt      string   `json:"prompt"`
	Mode        string   `json:"mode,omitempty"`
	Directories []string `json:"directories,omitempty"`
}

// FetchChunkRequest represents the arguments for gemini_fetch_chunk.
type FetchChunkRequest struct {
	ChunkKey string `json:"chunk_key"`
	Index    int    `json:"index"`
}

// ChunkInfoRequest represents the arguments for gemini_chunk_info.
type ChunkInfoRequest struct {
	ChunkKey string `json:"chunk_key"`
}

// ValidatePathRequest represents the arguments for gemini_validate_path.
type ValidatePathRequest struct {
	Path string `json:"path"`
}

// Handler implementations

// HandleResearch handles the gemini_research tool call.
func (h *Handlers) HandleResearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ResearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if strings.TrimSpace(input.Prompt) == "" {
		return errorResult(errors.NewInvalidRequest("prompt is required")), nil
	}

	class := gemini.ClassFast
	switch input.Mode {
	case "", "fast":
	case "deep":
		class = gemini.ClassDeep
	default:
		return errorResult(errors.NewInvalidRequest(
			fmt.Sprintf("mode must be \"fast\" or \"deep\", got %q", input.Mode))), nil
	}

	// The security boundary: every path reference is validated before
	// the engine is invoked.
	if res := h.checkPaths(input); res != nil {
		return res, nil
	}

	prompt := input.Prompt
	if len(input.Directories) > 0 {
		refs := make([]string, len(input.Directories))
		for i, d := range input.Directories {
			refs[i] = "@" + d
		}
		prompt += "\n\nDirectories in scope: " + strings.Join(refs, " ")
	}

	progress, finish := h.progressFor(ctx, req)
	result, err := h.exec.Execute(ctx, prompt, class, progress)
	if err != nil {
		finish(outcomeOf(err))
		return errorResult(err), nil
	}
	finish("completed")

	return h.researchResult(result)
}

// checkPaths validates the prompt's @refs and the directory list.
// Returns a non-nil error result when anything escapes the trusted root.
func (h *Handlers) checkPaths(input ResearchRequest) *mcp.CallToolResult {
	batch := pathguard.ValidateAll(input.Prompt, h.root)
	for _, d := range input.Directories {
		if v := pathguard.Validate(d, h.root); !v.Allowed {
			batch.AllValid = false
			batch.Invalid = append(batch.Invalid, v)
		}
	}
	if batch.AllValid {
		return nil
	}

	first := batch.Invalid[0]
	perr := errors.NewPathOutsideRoot(first.Input, first.Reason)
	perr.Details["invalid"] = batch.Invalid
	perr.Details["trusted_root"] = h.root
	return errorResult(perr)
}

// researchResult shapes the success payload, chunking oversized text.
func (h *Handlers) researchResult(result *gemini.Result) (*mcp.CallToolResult, error) {
	payload := map[string]any{
		"model_used": result.ModelUsed,
		"latency_ms": result.LatencyMs,
		"attempts":   result.Attempts,
		"chunked":    false,
	}
	if result.TokensUsed > 0 {
		payload["tokens_used"] = result.TokensUsed
	}
	if result.APICalls > 0 {
		payload["api_calls"] = result.APICalls
	}
	if len(result.FilesReferenced) > 0 {
		payload["files_referenced"] = result.FilesReferenced
	}

	segments := chunk.Split(result.Text, h.cfg.ChunkSizeBytes)
	if len(segments) == 1 {
		payload["response"] = result.Text
		return successResult(payload)
	}

	key := h.store.Put(segments)
	md, _ := h.store.Info(key)
	payload["response"] = segments[0].Content
	payload["chunked"] = true
	payload["chunk_key"] = key
	payload["chunk_index"] = 1
	payload["total_chunks"] = md.Total
	payload["expires_at"] = md.ExpiresAt.UTC().Format(time.RFC3339)
	payload["note"] = fmt.Sprintf(
		"response was split into %d chunks; fetch the rest with gemini_fetch_chunk", md.Total)
	return successResult(payload)
}

// HandleFetchChunk handles the gemini_fetch_chunk tool call.
func (h *Handlers) HandleFetchChunk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchChunkRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ChunkKey == "" {
		return errorResult(errors.NewInvalidRequest("chunk_key is required")), nil
	}

	md, ok := h.store.Info(input.ChunkKey)
	if !ok {
		return errorResult(errors.NewCacheMiss(input.ChunkKey)), nil
	}
	seg, ok := h.store.GetSegment(input.ChunkKey, input.Index)
	if !ok {
		return errorResult(errors.NewInvalidIndex(input.ChunkKey, input.Index, md.Total)), nil
	}

	return successResult(map[string]any{
		"chunk_key":    input.ChunkKey,
		"chunk_index":  seg.Index,
		"total_chunks": seg.Total,
		"content":      seg.Content,
	})
}

// HandleChunkInfo handles the gemini_chunk_info tool call.
func (h *Handlers) HandleChunkInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ChunkInfoRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ChunkKey == "" {
		return errorResult(errors.NewInvalidRequest("chunk_key is required")), nil
	}

	md, ok := h.store.Info(input.ChunkKey)
	if !ok {
		return errorResult(errors.NewCacheMiss(input.ChunkKey)), nil
	}

	return successResult(map[string]any{
		"chunk_key":    md.Key,
		"total_chunks": md.Total,
		"bytes":        md.Bytes,
		"created_at":   md.CreatedAt.UTC().Format(time.RFC3339),
		"expires_at":   md.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// HandleValidatePath handles the gemini_validate_path tool call. The
// verdict is returned as data even when the path is disallowed.
func (h *Handlers) HandleValidatePath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ValidatePathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Path == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}

	v := pathguard.Validate(input.Path, h.root)
	return successResult(map[string]any{
		"verdict":      v,
		"trusted_root": h.root,
	})
}

// Progress plumbing

// progressFor builds the per-call progress observer. Progress is opt-in:
// without a progress token from the caller, no notifications are emitted
// and the orchestrator runs silently.
func (h *Handlers) progressFor(ctx context.Context, req mcp.CallToolRequest) (gemini.Progress, func(outcome string)) {
	token := progressToken(req)
	if token == nil {
		return nil, func(string) {}
	}

	hb := gemini.NewHeartbeat("gemini research", gemini.HeartbeatInterval, notifySink(ctx, token))
	hb.Start()
	return hb, hb.Stop
}

// notifySink adapts heartbeat messages to MCP progress notifications.
func notifySink(ctx context.Context, token any) gemini.Sink {
	srv := server.ServerFromContext(ctx)
	if srv == nil {
		return func(string) {}
	}
	start := time.Now()
	return func(msg string) {
		_ = srv.SendNotificationToClient(ctx, "notifications/progress", map[string]any{
			"progressToken": token,
			"progress":      time.Since(start).Round(time.Second).Seconds(),
			"message":       msg,
		})
	}
}

// outcomeOf renders a failure for the final liveness status.
func outcomeOf(err error) string {
	if perr, ok := err.(*errors.ProxyError); ok {
		return fmt.Sprintf("failed (%s)", perr.Code)
	}
	return "failed"
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if perr, ok := err.(*errors.ProxyError); ok {
		errorObj := map[string]any{
			"code":    perr.Code,
			"message": perr.Message,
			"status":  perr.Status,
		}
		if perr.Hint != "" {
			errorObj["hint"] = perr.Hint
		}
		if perr.Details != nil {
			errorObj["details"] = perr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

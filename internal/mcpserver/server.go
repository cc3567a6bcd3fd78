// Package mcpserver exposes the transcription history to MCP clients over
// stdio as read-only tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	verrors "vaibvoice/internal/errors"
	"vaibvoice/internal/history"
)

// History is the read side of the transcription log.
type History interface {
	Recent(ctx context.Context, limit int) ([]history.Transcription, error)
	GetByID(ctx context.Context, id int64) (history.Transcription, error)
	Stats(ctx context.Context) (history.Stats, error)
}

const defaultListLimit = 20

var (
	listToolDef = mcp.NewTool("transcription_list",
		mcp.WithDescription("List recent dictated transcriptions, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of entries to return (default 20, -1 for all).")),
	)
	getToolDef = mcp.NewTool("transcription_get",
		mcp.WithDescription("Fetch a single transcription by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Transcription id.")),
	)
	statsToolDef = mcp.NewTool("transcription_stats",
		mcp.WithDescription("Aggregate dictation statistics: totals, words per minute, today's activity."),
	)
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	history History
}

// NewServer creates an MCP server with the transcription tools registered.
func NewServer(h History, version string) *server.MCPServer {
	s := server.NewMCPServer("vaibvoice", version, server.WithToolCapabilities(true))
	handlers := &Handlers{history: h}
	s.AddTool(listToolDef, handlers.HandleList)
	s.AddTool(getToolDef, handlers.HandleGet)
	s.AddTool(statsToolDef, handlers.HandleStats)
	return s
}

// Run serves the tools on stdio until the client disconnects.
func Run(h History, version string) error {
	return server.ServeStdio(NewServer(h, version))
}

type listRequest struct {
	Limit *int `json:"limit,omitempty"`
}

type getRequest struct {
	ID *int64 `json:"id"`
}

// HandleList handles transcription_list.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[listRequest](req)
	if err != nil {
		return errorResult(verrors.NewInvalidRequest(err.Error())), nil
	}
	limit := defaultListLimit
	if input.Limit != nil {
		limit = *input.Limit
	}
	if limit == 0 || limit < -1 {
		return errorResult(verrors.NewInvalidRequest("limit must be positive or -1")), nil
	}
	items, err := h.history.Recent(ctx, limit)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultJSON(map[string]any{"items": items, "count": len(items)})
}

// HandleGet handles transcription_get.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[getRequest](req)
	if err != nil {
		return errorResult(verrors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == nil {
		return errorResult(verrors.NewInvalidRequest("id is required")), nil
	}
	t, err := h.history.GetByID(ctx, *input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultJSON(t)
}

// HandleStats handles transcription_stats.
func (h *Handlers) HandleStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.history.Stats(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultJSON(stats)
}

func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

func errorResult(err error) *mcp.CallToolResult {
	ve := verrors.As(err)
	errorObj := map[string]any{
		"code":    ve.Code,
		"message": ve.Message,
		"status":  ve.Status,
	}
	if ve.Code == verrors.ErrInternal || ve.Code == verrors.ErrStorage {
		errorObj["message"] = "an internal error occurred"
	} else if ve.Details != nil {
		errorObj["details"] = ve.Details
	}
	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

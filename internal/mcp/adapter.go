package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"investai/internal/tool"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// caller is what the adapter needs from a connected upstream server.
type caller interface {
	Name() string
	CallTool(ctx context.Context, toolName string, arguments map[string]any) (*mcp.CallToolResult, error)
}

// ToolAdapter exposes an upstream MCP tool as a callable registry tool.
type ToolAdapter struct {
	client         caller
	mcpTool        *mcp.Tool
	namespacedName string // e.g. "filings_latest_10k"
}

func NewToolAdapter(client caller, mcpTool *mcp.Tool) *ToolAdapter {
	return &ToolAdapter{
		client:         client,
		mcpTool:        mcpTool,
		namespacedName: fmt.Sprintf("%s_%s", client.Name(), mcpTool.Name),
	}
}

// Name returns the namespaced tool name (server_tool)
func (a *ToolAdapter) Name() string {
	return a.namespacedName
}

func (a *ToolAdapter) Description() string {
	desc := a.mcpTool.Description
	if desc == "" {
		desc = fmt.Sprintf("MCP tool from %s server", a.client.Name())
	}
	return fmt.Sprintf("%s\n\n[MCP Server: %s]", desc, a.client.Name())
}

// Parameters returns the upstream input schema as a plain JSON object.
func (a *ToolAdapter) Parameters() map[string]any {
	empty := map[string]any{"type": "object", "properties": map[string]any{}}
	if a.mcpTool.InputSchema == nil {
		return empty
	}
	if schema, ok := a.mcpTool.InputSchema.(map[string]any); ok {
		return schema
	}

	data, err := json.Marshal(a.mcpTool.InputSchema)
	if err != nil {
		return empty
	}
	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return empty
	}
	return schema
}

func (a *ToolAdapter) Execute(ctx context.Context, params json.RawMessage) (*tool.Result, error) {
	args := map[string]any{}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return tool.Failure(fmt.Errorf("invalid parameters: %w", err)), nil
		}
	}

	result, err := a.client.CallTool(ctx, a.mcpTool.Name, args)
	if err != nil {
		return nil, fmt.Errorf("MCP tool execution failed: %w", err)
	}

	if result.IsError {
		msg := formatContent(result.Content)
		if msg == "" {
			msg = "MCP tool returned an error"
		}
		return &tool.Result{Success: false, Error: msg}, nil
	}

	return &tool.Result{
		Success: true,
		Output:  formatContent(result.Content),
		Data: map[string]any{
			"mcp_server": a.client.Name(),
			"mcp_tool":   a.mcpTool.Name,
		},
	}, nil
}

// formatContent flattens MCP content into text for the transcript.
func formatContent(content []mcp.Content) string {
	var parts []string
	for _, item := range content {
		switch c := item.(type) {
		case *mcp.TextContent:
			parts = append(parts, c.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[Image: %s]", c.MIMEType))
		case *mcp.AudioContent:
			parts = append(parts, fmt.Sprintf("[Audio: %s]", c.MIMEType))
		default:
			data, err := json.Marshal(item)
			if err != nil {
				parts = append(parts, fmt.Sprintf("[Unknown content type: %T]", item))
			} else {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}

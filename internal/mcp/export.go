package mcp

import (
	"context"

	"investai/internal/tool"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP peers.
const Version = "1.0.0"

// NewExportServer serves tools to MCP clients. Each call runs the tool's
// Execute; tool failures are returned as error results, not protocol errors.
func NewExportServer(tools []tool.Callable) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "investai", Version: Version}, nil)
	for _, t := range tools {
		server.AddTool(&mcp.Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Parameters(),
		}, exportHandler(t))
	}
	return server
}

func exportHandler(t tool.Callable) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := t.Execute(ctx, req.Params.Arguments)
		if err != nil {
			result = tool.Failure(err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result.Content()}},
			IsError: !result.Success,
		}, nil
	}
}

// ServeStdio runs the export server on stdin/stdout until ctx is done or
// the client disconnects.
func ServeStdio(ctx context.Context, tools []tool.Callable) error {
	return NewExportServer(tools).Run(ctx, &mcp.StdioTransport{})
}

// Package mcpbridge exposes the gateway's command set as MCP tools.
//
// Every command kind becomes one tool whose arguments are forwarded
// unchanged as the command's params. The gateway does all validation, so
// the bridge holds no host state and can be restarted freely. One extra
// tool, list_documentation, is answered locally from the embedded
// reference.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/roach88/graphgate/internal/command"
	"github.com/roach88/graphgate/internal/docs"
)

// Name is the MCP implementation name.
const Name = "graphgate"

// DocumentationTool is the locally answered reference tool.
const DocumentationTool = "list_documentation"

// Sender forwards one command to the gateway.
type Sender interface {
	Send(ctx context.Context, kind string, params any) (json.RawMessage, error)
}

// NewServer builds an MCP server with one tool per command kind plus the
// documentation tool.
func NewServer(s Sender, ref *docs.Base, version string, logger *slog.Logger) *mcp.Server {
	if logger == nil {
		logger = slog.Default()
	}
	server := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, nil)
	for _, k := range command.Kinds() {
		mcp.AddTool(server, commandTool(k), commandHandler(s, k, logger))
	}
	mcp.AddTool(server, documentationTool(), documentationHandler(ref))
	return server
}

// Run serves NewServer over stdio until ctx is cancelled or the client
// disconnects.
func Run(ctx context.Context, s Sender, ref *docs.Base, version string, logger *slog.Logger) error {
	if err := NewServer(s, ref, version, logger).Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

func commandTool(k command.Kind) *mcp.Tool {
	annotations := &mcp.ToolAnnotations{ReadOnlyHint: !k.Mutates()}
	switch k {
	case command.DeleteGraph, command.DeleteNode, command.DisconnectNodes:
		destructive := true
		annotations.DestructiveHint = &destructive
	}
	return &mcp.Tool{
		Name:        string(k),
		Description: k.Description(),
		Annotations: annotations,
	}
}

func commandHandler(s Sender, k command.Kind, logger *slog.Logger) mcp.ToolHandlerFor[map[string]any, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		if args == nil {
			args = map[string]any{}
		}
		res, err := s.Send(ctx, string(k), args)
		if err != nil {
			logger.Warn("tool call failed", "tool", k, "error", err)
			return errorResult(err), nil, nil
		}
		return jsonResult(res)
	}
}

func documentationTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        DocumentationTool,
		Description: "Browse the embedded node reference: atomic and library nodes, blend modes, port ids, output usages and workflow. Use action=categories to list sections or action=search with query to search.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}
}

func documentationHandler(ref *docs.Base) mcp.ToolHandlerFor[docs.Query, any] {
	return func(_ context.Context, _ *mcp.CallToolRequest, q docs.Query) (*mcp.CallToolResult, any, error) {
		if ref == nil {
			return errorResult(fmt.Errorf("documentation not loaded")), nil, nil
		}
		res, err := ref.Lookup(q)
		if err != nil {
			return errorResult(err), nil, nil
		}
		data, err := json.Marshal(res)
		if err != nil {
			return errorResult(err), nil, nil
		}
		return jsonResult(data)
	}
}

// jsonResult returns raw as indented text content.
func jsonResult(raw json.RawMessage) (*mcp.CallToolResult, any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return errorResult(fmt.Errorf("decode result: %w", err)), nil, nil
	}
	text, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err)), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
	}, nil, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
	}
}

package mcpbridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphgate/internal/client"
	"github.com/roach88/graphgate/internal/command"
	"github.com/roach88/graphgate/internal/docs"
	"github.com/roach88/graphgate/internal/testutil"
)

// connect serves the bridge over in-memory transports backed by a live
// gateway and returns the client side.
func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	s := testutil.NewSession(t)
	addr := testutil.StartGateway(t, command.New(s.Host, s.Bridge))

	ref, err := docs.Load()
	require.NoError(t, err)
	server := NewServer(client.New(addr, client.WithRetries(0, 0)), ref, "test", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	c := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := c.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return res, text.Text
}

func TestListToolsCoversEveryKind(t *testing.T) {
	session := connect(t)

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	tools := map[string]*mcp.Tool{}
	for _, tool := range res.Tools {
		tools[tool.Name] = tool
	}
	for _, k := range command.Kinds() {
		tool, ok := tools[string(k)]
		if !assert.True(t, ok, "missing tool %s", k) {
			continue
		}
		assert.Equal(t, k.Description(), tool.Description)
		require.NotNil(t, tool.Annotations)
		assert.Equal(t, !k.Mutates(), tool.Annotations.ReadOnlyHint, "%s", k)
	}
	assert.Contains(t, tools, DocumentationTool)
	assert.Len(t, tools, len(command.Kinds())+1)
}

func TestCommandToolRelaysToGateway(t *testing.T) {
	session := connect(t)

	res, text := callTool(t, session, "create_batch_graph", map[string]any{
		"graph_name": "Relayed",
		"nodes": []any{
			map[string]any{"kind": "output", "alias": "h", "usage": "height"},
		},
	})
	assert.False(t, res.IsError, text)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &report))
	assert.EqualValues(t, 1, report["nodes_created"])
	assert.Equal(t, "Relayed", report["graph_identifier"])
}

func TestCommandToolError(t *testing.T) {
	session := connect(t)

	res, text := callTool(t, session, "get_node_info", map[string]any{"node_id": "nope"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "Error: ")
}

func TestDocumentationToolIsLocal(t *testing.T) {
	session := connect(t)

	res, text := callTool(t, session, DocumentationTool, map[string]any{"node_name": "blend"})
	assert.False(t, res.IsError, text)
	assert.Contains(t, text, "sbs::compositing::blend")

	res, text = callTool(t, session, DocumentationTool, map[string]any{"category": "cooking"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "unknown category 'cooking'")
}

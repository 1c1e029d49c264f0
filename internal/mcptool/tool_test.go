package mcptool

import (
	"context"
	"testing"

	"github.com/hyperjump/webrag/internal/client"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingAsker struct {
	calls []client.AskParams
	reply string
}

func (r *recordingAsker) Ask(_ context.Context, p client.AskParams) string {
	r.calls = append(r.calls, p)
	return r.reply
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok, "content should be text")
	return tc.Text
}

func TestArgsParams(t *testing.T) {
	off := false
	tests := []struct {
		name string
		args Args
		want client.AskParams
	}{
		{
			name: "defaults",
			args: Args{Query: " channels "},
			want: client.AskParams{Query: "channels", Scope: "global", Search: true, K: 6, MaxSearchResults: 5},
		},
		{
			name: "explicit",
			args: Args{Query: "q", Scope: "react", Search: &off, K: 3, MaxSearchResults: 2, ForceRefresh: true},
			want: client.AskParams{Query: "q", Scope: "react", Search: false, K: 3, MaxSearchResults: 2, ForceRefresh: true},
		},
		{
			name: "clamped",
			args: Args{Query: "q", K: 99, MaxSearchResults: -4},
			want: client.AskParams{Query: "q", Scope: "global", Search: true, K: 20, MaxSearchResults: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.args.params())
		})
	}
}

func TestTool_Handle(t *testing.T) {
	asker := &recordingAsker{reply: "You can use the following retrieved documentation excerpts."}
	tool := New(asker, nil)

	res, _, err := tool.Handle(context.Background(), nil, Args{Query: "context deadlines", Scope: "go"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, asker.reply, textOf(t, res))
	require.Len(t, asker.calls, 1)
	assert.Equal(t, "go", asker.calls[0].Scope)
}

func TestTool_HandleEmptyQuery(t *testing.T) {
	asker := &recordingAsker{}
	res, _, err := New(asker, nil).Handle(context.Background(), nil, Args{Query: "  "})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "[web_rag error]")
	assert.Empty(t, asker.calls)
}

func TestServer_InMemory(t *testing.T) {
	ctx := context.Background()
	asker := &recordingAsker{reply: "SOURCE: https://go.dev/doc"}
	server := NewServer(New(asker, nil), "test")

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	c := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := c.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 1)
	assert.Equal(t, ToolName, tools.Tools[0].Name)

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      ToolName,
		Arguments: map[string]any{"query": "modules", "k": 2},
	})
	require.NoError(t, err)
	assert.Equal(t, "SOURCE: https://go.dev/doc", textOf(t, res))
	require.Len(t, asker.calls, 1)
	assert.Equal(t, 2, asker.calls[0].K)
}

// Package mcptool exposes WebRAG retrieval as the web_rag MCP tool.
package mcptool

import (
	"context"
	"strings"

	"github.com/hyperjump/webrag/internal/client"
	"github.com/hyperjump/webrag/internal/models"
	"github.com/hyperjump/webrag/pkg/utils"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// ToolName is the name agents call the tool by.
const ToolName = "web_rag"

const toolDescription = "Search and retrieve relevant documentation excerpts from the web (cached via local RAG). " +
	"Use it when you need up-to-date API docs or examples for a library/tool. " +
	"Returns SOURCE URLs + excerpts."

// Asker runs an ask round trip. *client.Client implements it.
type Asker interface {
	Ask(ctx context.Context, p client.AskParams) string
}

// Args are the web_rag tool arguments.
type Args struct {
	Query            string `json:"query" jsonschema:"question to ask, e.g. how to configure CORS middleware"`
	Scope            string `json:"scope,omitempty" jsonschema:"namespace for cached docs such as fastapi or react (default global)"`
	Search           *bool  `json:"search,omitempty" jsonschema:"search the web and ingest top results before querying (default true)"`
	K                int    `json:"k,omitempty" jsonschema:"how many chunks to retrieve, 1 to 20 (default 6)"`
	MaxSearchResults int    `json:"max_search_results,omitempty" jsonschema:"how many web search results to consider, 1 to 10 (default 5)"`
	ForceRefresh     bool   `json:"force_refresh,omitempty" jsonschema:"re-download and re-index URLs even if already cached"`
}

// params applies the tool defaults and bounds to a.
func (a Args) params() client.AskParams {
	p := client.DefaultAskParams(strings.TrimSpace(a.Query))
	if s := strings.TrimSpace(a.Scope); s != "" {
		p.Scope = s
	}
	if a.Search != nil {
		p.Search = *a.Search
	}
	if a.K != 0 {
		p.K = utils.ClampInt(a.K, 1, 20)
	}
	if a.MaxSearchResults != 0 {
		p.MaxSearchResults = utils.ClampInt(a.MaxSearchResults, 1, 10)
	}
	p.ForceRefresh = a.ForceRefresh
	return p
}

// Tool serves web_rag calls by forwarding them to the WebRAG service.
type Tool struct {
	asker  Asker
	logger *zap.Logger
}

// New returns a tool backed by asker.
func New(asker Asker, logger *zap.Logger) *Tool {
	return &Tool{asker: asker, logger: utils.LoggerOrNop(logger)}
}

// Handle answers one web_rag call with the retrieved context as text. Service failures
// are reported inside the text so the calling agent can read them.
func (t *Tool) Handle(ctx context.Context, _ *mcp.CallToolRequest, args Args) (*mcp.CallToolResult, any, error) {
	p := args.params()
	if p.Query == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: "[web_rag error] " + models.ErrEmptyQuery.Error()}},
		}, nil, nil
	}
	t.logger.Debug("web_rag call",
		zap.String("query", p.Query), zap.String("scope", p.Scope), zap.Bool("search", p.Search))
	text := t.asker.Ask(ctx, p)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// NewServer returns an MCP server with the web_rag tool registered.
func NewServer(t *Tool, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "webrag",
		Version: version,
	}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolName,
		Description: toolDescription,
	}, t.Handle)
	return server
}

// Run serves the tool over stdio until ctx is cancelled or the client disconnects.
func Run(ctx context.Context, t *Tool, version string) error {
	return NewServer(t, version).Run(ctx, &mcp.StdioTransport{})
}

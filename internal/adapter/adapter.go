// Package adapter exposes the tools of a remote MCP server as humcp
// registrations, so the REST surface can serve them unchanged.
//
// The remote tool list is read once. Each tool keeps its own input schema
// and calling it forwards the arguments to the remote server.
package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/registry"
)

// DefaultCallTimeout bounds a single request to the remote server.
const DefaultCallTimeout = 300 * time.Second

// ClientName identifies the adapter to remote servers.
const ClientName = "humcp-adapter"

// ErrNoTools is returned by Load when the remote server lists no usable tools.
var ErrNoTools = errors.New("remote MCP server lists no tools")

// Client is the part of an MCP client the adapter uses.
type Client interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// URL returns the streamable HTTP endpoint for a server base URL: "/mcp" is
// appended unless the URL already ends with it.
func URL(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if strings.HasSuffix(base, "/mcp") {
		return base
	}
	return base + "/mcp"
}

// Connect opens and initializes a streamable HTTP session with the server at
// url. The caller closes the returned client.
func Connect(ctx context.Context, url string, logger *common.Logger) (*client.Client, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	c, err := client.NewStreamableHttpClient(url, transport.WithHTTPTimeout(DefaultCallTimeout))
	if err != nil {
		return nil, fmt.Errorf("create MCP client for %s: %w", url, err)
	}
	if err := c.Start(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("start MCP client for %s: %w", url, err)
	}
	if err := Initialize(ctx, c); err != nil {
		c.Close()
		return nil, fmt.Errorf("initialize MCP session with %s: %w", url, err)
	}
	logger.Info().Str("url", url).Msg("connected to remote MCP server")
	return c, nil
}

// Initialize performs the MCP handshake on c.
func Initialize(ctx context.Context, c *client.Client) error {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: ClientName, Version: common.GetVersion()}
	_, err := c.Initialize(ctx, req)
	return err
}

// Adapter forwards tool calls to a remote MCP server.
type Adapter struct {
	client Client
	logger *common.Logger
}

// New creates an adapter for c.
func New(c Client, logger *common.Logger) *Adapter {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Adapter{client: c, logger: logger}
}

// ListTools returns every tool the remote server lists, following
// pagination cursors.
func (a *Adapter) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	var (
		tools  []mcp.Tool
		cursor mcp.Cursor
	)
	for {
		req := mcp.ListToolsRequest{}
		req.Params.Cursor = cursor
		res, err := a.client.ListTools(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("list remote tools: %w", err)
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" || res.NextCursor == cursor {
			return tools, nil
		}
		cursor = res.NextCursor
	}
}

// Load lists the remote tools and registers one proxy per tool in r. Tools
// with an empty name, an unreadable schema or a name already taken are
// skipped with a warning. It returns the number of tools registered.
func (a *Adapter) Load(ctx context.Context, r registry.Registrar) (int, error) {
	tools, err := a.ListTools(ctx)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, tool := range tools {
		t, err := a.toolFor(tool)
		if err != nil {
			a.logger.Warn().Str("tool", tool.Name).Err(err).Msg("skipping remote tool")
			continue
		}
		if _, err := r.Register(t); err != nil {
			a.logger.Warn().Str("tool", tool.Name).Err(err).Msg("skipping remote tool")
			continue
		}
		loaded++
	}
	if loaded == 0 {
		return 0, ErrNoTools
	}
	a.logger.Info().Int("tools", loaded).Int("listed", len(tools)).Msg("loaded remote tools")
	return loaded, nil
}

// LocalName maps a remote tool name onto a REST path segment and its
// category: "math/add" becomes ("math_add", "math"); a name without "/" is
// uncategorized.
func LocalName(remote string) (name, category string) {
	name = strings.ReplaceAll(remote, "/", "_")
	if i := strings.Index(remote, "/"); i > 0 {
		return name, remote[:i]
	}
	return name, registry.Uncategorized
}

func (a *Adapter) toolFor(tool mcp.Tool) (registry.Tool, error) {
	if strings.TrimSpace(tool.Name) == "" {
		return registry.Tool{}, errors.New("tool has empty name")
	}
	schema, err := inputSchema(tool)
	if err != nil {
		return registry.Tool{}, err
	}
	name, category := LocalName(tool.Name)
	return registry.Tool{
		Name:        name,
		Category:    category,
		Description: tool.Description,
		InputSchema: schema,
		Func:        a.callable(tool.Name),
	}, nil
}

// inputSchema returns the tool's input schema as a plain map, whether the
// server sent it structured or raw.
func inputSchema(tool mcp.Tool) (map[string]any, error) {
	raw, err := json.Marshal(tool)
	if err != nil {
		return nil, fmt.Errorf("encode tool: %w", err)
	}
	var doc struct {
		InputSchema map[string]any `json:"inputSchema"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}
	if doc.InputSchema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	return doc.InputSchema, nil
}

func (a *Adapter) callable(remote string) registry.Func {
	return func(ctx context.Context, args map[string]any) (any, error) {
		req := mcp.CallToolRequest{}
		req.Params.Name = remote
		req.Params.Arguments = args

		logger := a.logger.ForContext(ctx)
		start := time.Now()
		res, err := a.client.CallTool(ctx, req)
		duration := time.Since(start)
		if err != nil {
			logger.Error().Str("tool", remote).Int64("duration_ms", duration.Milliseconds()).Err(err).Msg("remote tool call failed")
			return nil, fmt.Errorf("call remote tool %s: %w", remote, err)
		}
		logger.Debug().Str("tool", remote).Int64("duration_ms", duration.Milliseconds()).Bool("is_error", res.IsError).Msg("remote tool call")

		texts := contentText(res.Content)
		if res.IsError {
			return nil, &registry.HTTPError{
				Status:  http.StatusBadGateway,
				Message: "Tool execution failed: " + strings.Join(texts, "\n"),
			}
		}
		return texts, nil
	}
}

// contentText renders each content item as a string: text items give their
// text, anything else its JSON encoding.
func contentText(content []mcp.Content) []string {
	out := make([]string, 0, len(content))
	for _, c := range content {
		switch t := c.(type) {
		case mcp.TextContent:
			out = append(out, t.Text)
		case *mcp.TextContent:
			out = append(out, t.Text)
		default:
			raw, err := json.Marshal(c)
			if err != nil {
				out = append(out, fmt.Sprint(c))
				continue
			}
			out = append(out, string(raw))
		}
	}
	return out
}

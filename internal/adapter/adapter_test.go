package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/rest"
)

func remoteServer() *server.MCPServer {
	s := server.NewMCPServer("remote", "0.0.1", server.WithToolCapabilities(true))

	s.AddTool(mcp.NewTool("math/add",
		mcp.WithDescription("Add two numbers."),
		mcp.WithNumber("a", mcp.Required()),
		mcp.WithNumber("b", mcp.Required()),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		a, _ := args["a"].(float64)
		b, _ := args["b"].(float64)
		return mcp.NewToolResultText(fmt.Sprint(a + b)), nil
	})

	// Same local name as math/add once "/" is replaced.
	s.AddTool(mcp.NewTool("math_add", mcp.WithDescription("Shadow.")),
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("shadow"), nil
		})

	s.AddTool(mcp.NewToolWithRawSchema("echo", "Echo text.",
		json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, _ := req.GetArguments()["text"].(string)
		return mcp.NewToolResultText(text), nil
	})

	s.AddTool(mcp.NewTool("broken", mcp.WithDescription("Always fails.")),
		func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("disk on fire"), nil
		})

	return s
}

func inProcessClient(t *testing.T) *client.Client {
	t.Helper()
	c, err := client.NewInProcessClient(remoteServer())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	require.NoError(t, Initialize(ctx, c))
	return c
}

func loadRoutes(t *testing.T, c Client) (*registry.Registry, *http.ServeMux) {
	t.Helper()
	reg := registry.New(nil)
	n, err := New(c, nil).Load(context.Background(), reg)
	require.NoError(t, err)
	require.Equal(t, reg.Len(), n)

	mux := http.NewServeMux()
	_, err = rest.Register(mux, reg.All(), rest.Options{})
	require.NoError(t, err)
	return reg, mux
}

func post(t *testing.T, mux http.Handler, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestLoad_RegistersRemoteTools(t *testing.T) {
	reg, _ := loadRoutes(t, inProcessClient(t))

	assert.Equal(t, []string{"broken", "echo", "math_add"}, reg.Names())

	add, ok := reg.Get("math_add")
	require.True(t, ok)
	assert.Equal(t, "math", add.Category)
	assert.Equal(t, "Add two numbers.", add.Description, "the first tool with a name wins")
	assert.Equal(t, []any{"a", "b"}, add.InputSchema["required"])

	echo, _ := reg.Get("echo")
	assert.Equal(t, registry.Uncategorized, echo.Category)
}

func TestExecute_ForwardsToRemote(t *testing.T) {
	_, mux := loadRoutes(t, inProcessClient(t))

	code, body := post(t, mux, "/tools/math_add", `{"a": 2, "b": 3}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, []any{"5"}, body["result"])

	code, body = post(t, mux, "/tools/echo", `{"text": "hi"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, []any{"hi"}, body["result"])
}

func TestExecute_ValidatesAgainstRemoteSchema(t *testing.T) {
	_, mux := loadRoutes(t, inProcessClient(t))

	code, _ := post(t, mux, "/tools/echo", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = post(t, mux, "/tools/math_add", `{"a": "two", "b": 3}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestExecute_RemoteToolErrorIsBadGateway(t *testing.T) {
	_, mux := loadRoutes(t, inProcessClient(t))

	code, body := post(t, mux, "/tools/broken", `{}`)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "Tool execution failed: disk on fire", body["error"])
}

func TestInfoRoutes_UseRemoteCategories(t *testing.T) {
	_, mux := loadRoutes(t, inProcessClient(t))

	req := httptest.NewRequest(http.MethodGet, "/tools/math/add", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"endpoint":"/tools/math_add"`)
}

// pagedClient serves a fixed tool list two tools per page.
type pagedClient struct {
	tools []mcp.Tool
	pages int
}

func (p *pagedClient) ListTools(_ context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	p.pages++
	start := 0
	if req.Params.Cursor != "" {
		fmt.Sscan(string(req.Params.Cursor), &start)
	}
	end := min(start+2, len(p.tools))
	res := &mcp.ListToolsResult{Tools: p.tools[start:end]}
	if end < len(p.tools) {
		res.NextCursor = mcp.Cursor(fmt.Sprint(end))
	}
	return res, nil
}

func (p *pagedClient) CallTool(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}

func TestListTools_FollowsCursor(t *testing.T) {
	c := &pagedClient{tools: []mcp.Tool{
		mcp.NewTool("a"), mcp.NewTool("b"), mcp.NewTool("c"), mcp.NewTool(""), mcp.NewTool("e"),
	}}
	reg := registry.New(nil)
	n, err := New(c, nil).Load(context.Background(), reg)
	require.NoError(t, err)

	assert.Equal(t, 3, c.pages)
	assert.Equal(t, 4, n, "the unnamed tool is skipped")
	assert.Equal(t, []string{"a", "b", "c", "e"}, reg.Names())
}

func TestLoad_NoTools(t *testing.T) {
	_, err := New(&pagedClient{}, nil).Load(context.Background(), registry.New(nil))
	assert.ErrorIs(t, err, ErrNoTools)
}

func TestURL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:8080":      "http://localhost:8080/mcp",
		"http://localhost:8080/":     "http://localhost:8080/mcp",
		"http://localhost:8080/mcp":  "http://localhost:8080/mcp",
		"http://localhost:8080/mcp/": "http://localhost:8080/mcp",
		" http://host/api ":          "http://host/api/mcp",
	}
	for in, want := range tests {
		assert.Equal(t, want, URL(in), in)
	}
}

func TestLocalName(t *testing.T) {
	name, cat := LocalName("files/read/text")
	assert.Equal(t, "files_read_text", name)
	assert.Equal(t, "files", cat)

	name, cat = LocalName("/odd")
	assert.Equal(t, "_odd", name)
	assert.Equal(t, registry.Uncategorized, cat)
}

func TestConnect_StreamableHTTP(t *testing.T) {
	srv := httptest.NewServer(server.NewStreamableHTTPServer(remoteServer()))
	defer srv.Close()

	ctx := context.Background()
	c, err := Connect(ctx, URL(srv.URL), nil)
	require.NoError(t, err)
	defer c.Close()

	tools, err := New(c, nil).ListTools(ctx)
	require.NoError(t, err)
	assert.Len(t, tools, 4)
}

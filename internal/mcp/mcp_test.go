package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/schema"
)

// --- Helpers ---

func testRegistrations(t *testing.T) []registry.Registration {
	t.Helper()
	reg := registry.New(nil)
	tools := []registry.Tool{
		{
			Name:        "calc_add",
			Category:    "calc",
			Description: "Add two numbers.",
			Params: []schema.Param{
				{Name: "a", Kind: schema.KindNumber},
				{Name: "b", Kind: schema.KindNumber},
			},
			Func: func(_ context.Context, args map[string]any) (any, error) {
				return args["a"].(float64) + args["b"].(float64), nil
			},
		},
		{
			Name: "greet",
			Params: []schema.Param{
				{Name: "name", Kind: schema.KindString, HasDefault: true, Default: "world"},
			},
			Func: func(_ context.Context, args map[string]any) (any, error) {
				name, ok := args["name"]
				if !ok {
					name = "default"
				}
				return map[string]any{"hello": name}, nil
			},
		},
		{
			Name: "fail",
			Func: func(context.Context, map[string]any) (any, error) {
				return nil, errors.New("secret detail")
			},
		},
		{
			Name:        "wrap",
			InputSchema: map[string]any{"type": "string"},
			Func: func(_ context.Context, args map[string]any) (any, error) {
				return args["value"], nil
			},
		},
	}
	for _, tool := range tools {
		if _, err := reg.Register(tool); err != nil {
			t.Fatalf("Register %s failed: %v", tool.Name, err)
		}
	}
	return reg.All()
}

func newTestServer(t *testing.T) *mcpserver.MCPServer {
	t.Helper()
	s, err := NewServer("humcp-test", "1.0.0", testRegistrations(t), nil)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return s
}

// listTools calls tools/list on the MCPServer and returns the tools.
func listTools(t *testing.T, s *mcpserver.MCPServer) []mcpgo.Tool {
	t.Helper()

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	result := s.HandleMessage(t.Context(), msg)

	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}
	var toolsResult mcpgo.ListToolsResult
	if err := json.Unmarshal(resultJSON, &toolsResult); err != nil {
		t.Fatalf("failed to unmarshal ListToolsResult: %v", err)
	}
	return toolsResult.Tools
}

// callTool calls a tool on the MCPServer and returns the result.
func callTool(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]interface{}) *mcpgo.CallToolResult {
	t.Helper()

	paramsJSON, _ := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	msg := json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":` + string(paramsJSON) + `}`)
	result := s.HandleMessage(t.Context(), msg)

	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}
	var toolResult mcpgo.CallToolResult
	if err := json.Unmarshal(resultJSON, &toolResult); err != nil {
		t.Fatalf("failed to unmarshal CallToolResult: %v", err)
	}
	return &toolResult
}

// extractText extracts the text field from an MCP content block.
func extractText(t *testing.T, content mcpgo.Content) string {
	t.Helper()
	contentJSON, _ := json.Marshal(content)
	var tc struct {
		Text string `json:"text"`
	}
	json.Unmarshal(contentJSON, &tc)
	return tc.Text
}

// --- Tests ---

func TestNewServer_ListsSameTools(t *testing.T) {
	tools := listTools(t, newTestServer(t))

	names := map[string]mcpgo.Tool{}
	for _, tool := range tools {
		names[tool.Name] = tool
	}
	for _, want := range []string{"calc_add", "greet", "fail", "wrap", VersionToolName} {
		if _, ok := names[want]; !ok {
			t.Errorf("expected tool %s in list", want)
		}
	}
	if len(tools) != 5 {
		t.Errorf("expected 5 tools, got %d", len(tools))
	}
	if names["calc_add"].Description != "Add two numbers." {
		t.Errorf("unexpected description %q", names["calc_add"].Description)
	}
}

func TestNewServer_InputSchemaMatchesRegistration(t *testing.T) {
	tools := listTools(t, newTestServer(t))

	for _, tool := range tools {
		if tool.Name != "calc_add" {
			continue
		}
		raw, err := json.Marshal(tool)
		if err != nil {
			t.Fatalf("marshal tool: %v", err)
		}
		var decoded struct {
			InputSchema struct {
				Type       string                    `json:"type"`
				Properties map[string]map[string]any `json:"properties"`
				Required   []string                  `json:"required"`
			} `json:"inputSchema"`
		}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("unmarshal tool: %v", err)
		}
		if decoded.InputSchema.Type != "object" {
			t.Errorf("expected object schema, got %q", decoded.InputSchema.Type)
		}
		if decoded.InputSchema.Properties["a"]["type"] != "number" {
			t.Errorf("unexpected properties %v", decoded.InputSchema.Properties)
		}
		if strings.Join(decoded.InputSchema.Required, ",") != "a,b" {
			t.Errorf("unexpected required %v", decoded.InputSchema.Required)
		}
		return
	}
	t.Fatal("calc_add not listed")
}

func TestCallTool_ReturnsJSONResult(t *testing.T) {
	result := callTool(t, newTestServer(t), "calc_add", map[string]interface{}{"a": 2, "b": 3})
	if result.IsError {
		t.Fatalf("unexpected error result: %s", extractText(t, result.Content[0]))
	}
	if got := extractText(t, result.Content[0]); got != "5" {
		t.Errorf("expected 5, got %s", got)
	}
}

func TestCallTool_OmittedOptionalNotPassed(t *testing.T) {
	result := callTool(t, newTestServer(t), "greet", map[string]interface{}{})
	if got := extractText(t, result.Content[0]); got != `{"hello":"default"}` {
		t.Errorf("unexpected result %s", got)
	}
}

func TestCallTool_ValidationFailure(t *testing.T) {
	result := callTool(t, newTestServer(t), "calc_add", map[string]interface{}{"a": 2})
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if got := extractText(t, result.Content[0]); !strings.Contains(got, "b") {
		t.Errorf("expected message naming b, got %s", got)
	}
}

func TestCallTool_FailureDoesNotLeak(t *testing.T) {
	result := callTool(t, newTestServer(t), "fail", nil)
	if !result.IsError {
		t.Fatal("expected error result")
	}
	got := extractText(t, result.Content[0])
	if strings.Contains(got, "secret") || got != "Tool 'fail' failed" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestCallTool_WrappedSchema(t *testing.T) {
	result := callTool(t, newTestServer(t), "wrap", map[string]interface{}{"value": "raw"})
	if result.IsError {
		t.Fatalf("unexpected error result: %s", extractText(t, result.Content[0]))
	}
	if got := extractText(t, result.Content[0]); got != `"raw"` {
		t.Errorf("unexpected result %s", got)
	}
}

func TestVersionTool(t *testing.T) {
	result := callTool(t, newTestServer(t), VersionToolName, nil)
	if result.IsError {
		t.Fatal("unexpected error result")
	}
	var info versionInfo
	if err := json.Unmarshal([]byte(extractText(t, result.Content[0])), &info); err != nil {
		t.Fatalf("version output is not JSON: %v", err)
	}
	if info.Name != "humcp-test" || info.Version == "" {
		t.Errorf("unexpected version info %+v", info)
	}
}

func TestNewServer_RegisteredVersionToolWins(t *testing.T) {
	reg := registry.New(nil)
	r, err := reg.Register(registry.Tool{
		Name: VersionToolName,
		Func: func(context.Context, map[string]any) (any, error) { return "custom", nil },
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	s, err := NewServer("humcp", "1.0.0", []registry.Registration{r}, nil)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	result := callTool(t, s, VersionToolName, nil)
	if got := extractText(t, result.Content[0]); got != `"custom"` {
		t.Errorf("expected registered tool to be served, got %s", got)
	}
}

func TestHandler_ServesStreamableHTTP(t *testing.T) {
	h := NewHandler(newTestServer(t), true, nil)

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "humcp-test") {
		t.Errorf("expected server info in initialize response, got %s", w.Body.String())
	}
}

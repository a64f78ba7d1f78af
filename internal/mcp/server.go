// Package mcp exposes the registered tools over the Model Context Protocol.
//
// The MCP server is built from the same filtered registrations as the REST
// surface and validates arguments with the same models, so both surfaces
// list and accept the same tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/model"
	"github.com/bobmcallan/humcp/internal/registry"
)

// NewServer creates an MCP server with one tool per registration, plus
// get_version unless a registration already uses that name.
func NewServer(name, version string, regs []registry.Registration, logger *common.Logger) (*mcpserver.MCPServer, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	s := mcpserver.NewMCPServer(
		name,
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	hasVersion := false
	for _, reg := range regs {
		tool, handler, err := buildTool(reg, logger)
		if err != nil {
			return nil, err
		}
		s.AddTool(tool, handler)
		if reg.Name == VersionToolName {
			hasVersion = true
		}
	}
	if !hasVersion {
		s.AddTool(VersionTool(), VersionToolHandler(name))
	}

	logger.Info().Int("tools", len(regs)).Str("name", name).Msg("MCP server initialized")
	return s, nil
}

func buildTool(reg registry.Registration, logger *common.Logger) (mcp.Tool, mcpserver.ToolHandlerFunc, error) {
	inputSchema := reg.Schema()
	m, err := model.Build(inputSchema, model.InputName(reg.Name))
	if err != nil {
		return mcp.Tool{}, nil, fmt.Errorf("tool %s: %w", reg.Name, err)
	}

	// MCP requires an object input schema.
	if m.Wrapped() {
		inputSchema = m.JSONSchema()
		delete(inputSchema, "title")
	}
	raw, err := json.Marshal(inputSchema)
	if err != nil {
		return mcp.Tool{}, nil, fmt.Errorf("tool %s: marshal input schema: %w", reg.Name, err)
	}

	tool := mcp.NewToolWithRawSchema(reg.Name, reg.Description, raw)
	return tool, toolHandler(reg, m, logger), nil
}

// toolHandler validates the call arguments with the tool's model and
// invokes the registration. Failures are reported as error results.
func toolHandler(reg registry.Registration, m *model.Model, logger *common.Logger) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := r.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		in, err := m.ParseMap(args)
		if err != nil {
			return errorResult(err.Error()), nil
		}

		result, err := registry.Call(ctx, reg, in.Dump(true))
		if err != nil {
			var httpErr *registry.HTTPError
			if errors.As(err, &httpErr) {
				return errorResult(httpErr.Message), nil
			}
			logger.ForContext(ctx).Error().Str("tool", reg.Name).Err(err).Msg("tool failed")
			return errorResult(fmt.Sprintf("Tool '%s' failed", reg.Name)), nil
		}

		out, err := json.Marshal(result)
		if err != nil {
			logger.ForContext(ctx).Error().Str("tool", reg.Name).Err(err).Msg("tool result is not JSON-serializable")
			return errorResult(fmt.Sprintf("Tool '%s' failed", reg.Name)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(out))},
		}, nil
	}
}

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

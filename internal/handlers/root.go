package handlers

import (
	"net/http"

	"github.com/bobmcallan/humcp/internal/common"
)

// RootInfo describes the server on GET /.
type RootInfo struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	MCPServer       string            `json:"mcp_server"`
	ToolsCount      int               `json:"tools_count"`
	CategoriesCount int               `json:"categories_count"`
	Categories      []string          `json:"available_categories"`
	Endpoints       map[string]string `json:"endpoints"`
}

// RootHandler serves the server summary at the site root.
type RootHandler struct {
	logger *common.Logger
	info   RootInfo
}

// NewRootHandler creates a root handler. mcpURL is the address of the MCP
// server the tools come from; mcpPath is where this process serves MCP and
// is empty when it does not.
func NewRootHandler(logger *common.Logger, name string, toolsCount int, categories []string, mcpPath, mcpURL string) *RootHandler {
	if categories == nil {
		categories = []string{}
	}
	endpoints := map[string]string{
		"docs":           "/docs",
		"openapi":        "/openapi.json",
		"tools":          "/tools",
		"category_tools": "/tools/{category}",
		"tool_info":      "/tools/{category}/{tool_name}",
	}
	if mcpPath != "" {
		endpoints["mcp"] = mcpPath
	}
	return &RootHandler{
		logger: logger,
		info: RootInfo{
			Name:            name,
			Version:         common.GetVersion(),
			MCPServer:       mcpURL,
			ToolsCount:      toolsCount,
			CategoriesCount: len(categories),
			Categories:      categories,
			Endpoints:       endpoints,
		},
	}
}

// ServeHTTP handles GET /. Any other path under the root is a 404.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, h.info)
}

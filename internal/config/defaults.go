package config

import "github.com/bobmcallan/humcp/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			Name:         "HuMCP Server",
			MaxBodyBytes: 1 << 20,
		},
		Tools: ToolsConfig{
			ConfigPath: "config/tools.yaml",
			ScriptsDir: "tools",
			SkillsDir:  "tools",
			WorkDir:    ".",
			Validate:   true,
			Watch:      true,
		},
		MCP: MCPConfig{
			Enabled:   true,
			Path:      "/mcp",
			Stateless: true,
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "logs/humcp.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// Package config loads the humcp server configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/humcp/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig         `toml:"server"`
	Tools   ToolsConfig          `toml:"tools"`
	MCP     MCPConfig            `toml:"mcp"`
	Logging common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int    `toml:"port"`
	Host         string `toml:"host"`
	Name         string `toml:"name"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// ToolsConfig contains tool discovery settings.
type ToolsConfig struct {
	// ConfigPath is the include/exclude filter file.
	ConfigPath string `toml:"config_path"`
	// ScriptsDir holds interpreted script modules.
	ScriptsDir string `toml:"scripts_dir"`
	// SkillsDir holds <category>/SKILL.md guides.
	SkillsDir string `toml:"skills_dir"`
	// WorkDir is the base directory of the file and shell tools.
	WorkDir string `toml:"work_dir"`
	// Validate rejects filter entries that name unknown tools or categories.
	Validate bool `toml:"validate"`
	// Watch logs a warning when the filter file changes on disk.
	Watch bool `toml:"watch"`
}

// MCPConfig contains Model Context Protocol endpoint settings.
type MCPConfig struct {
	Enabled   bool   `toml:"enabled"`
	Path      string `toml:"path"`
	Stateless bool   `toml:"stateless"`
	// PublicURL is the advertised address of the MCP endpoint.
	PublicURL string `toml:"public_url"`
}

// DefaultConfigFiles are the locations searched when no config file is given.
var DefaultConfigFiles = []string{"humcp.toml", "config/humcp.toml"}

// DiscoverConfigFiles returns the default config files that exist.
func DiscoverConfigFiles() []string {
	var found []string
	for _, p := range DefaultConfigFiles {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	return found
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies HUMCP_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("HUMCP_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("HUMCP_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if name := os.Getenv("HUMCP_SERVER_NAME"); name != "" {
		config.Server.Name = name
	}
	if path := os.Getenv("HUMCP_TOOLS_CONFIG"); path != "" {
		config.Tools.ConfigPath = path
	}
	if dir := os.Getenv("HUMCP_SCRIPTS_DIR"); dir != "" {
		config.Tools.ScriptsDir = dir
	}
	if dir := os.Getenv("HUMCP_SKILLS_DIR"); dir != "" {
		config.Tools.SkillsDir = dir
	}
	if dir := os.Getenv("HUMCP_WORK_DIR"); dir != "" {
		config.Tools.WorkDir = dir
	}
	if enabled := os.Getenv("HUMCP_MCP_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.MCP.Enabled = b
		}
	}
	if url := os.Getenv("MCP_SERVER_URL"); url != "" {
		config.MCP.PublicURL = url
	}
	if level := os.Getenv("HUMCP_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host, toolsConfig string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if toolsConfig != "" {
		config.Tools.ConfigPath = toolsConfig
	}
}

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true,
	"error": true, "fatal": true, "panic": true, "disabled": true,
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d is out of range 1-65535", c.Server.Port))
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes: must not be negative"))
	}
	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.path: %q must start with /", c.MCP.Path))
	}
	if c.MCP.Enabled && (c.MCP.Path == "/tools" || strings.HasPrefix(c.MCP.Path, "/tools/")) {
		errs = append(errs, fmt.Errorf("mcp.path: %q collides with the tool routes", c.MCP.Path))
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// Address returns the listen address.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// MCPURL returns the advertised MCP endpoint address, or "" when MCP is
// disabled.
func (c *Config) MCPURL() string {
	if !c.MCP.Enabled {
		return ""
	}
	if c.MCP.PublicURL != "" {
		return c.MCP.PublicURL
	}
	return "http://" + c.Address() + c.MCP.Path
}

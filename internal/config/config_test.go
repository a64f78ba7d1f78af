package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Tools.ConfigPath != "config/tools.yaml" {
		t.Errorf("expected default tools config path, got %s", cfg.Tools.ConfigPath)
	}
	if !cfg.Tools.Validate {
		t.Error("expected filter validation on by default")
	}
	if !cfg.MCP.Enabled || cfg.MCP.Path != "/mcp" {
		t.Errorf("unexpected MCP defaults %+v", cfg.MCP)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromFiles_NoFiles(t *testing.T) {
	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles with no files should not error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoadFromFiles_ValidTOML(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "humcp.toml")

	content := `
[server]
port = 9090
host = "127.0.0.1"

[tools]
config_path = "custom/tools.toml"
scripts_dir = "plugins"
validate = false

[mcp]
enabled = false

[logging]
level = "debug"
`
	if err := os.WriteFile(tomlPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(tomlPath)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Server.Host != "127.0.0.1" {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Tools.ConfigPath != "custom/tools.toml" || cfg.Tools.ScriptsDir != "plugins" || cfg.Tools.Validate {
		t.Errorf("unexpected tools config %+v", cfg.Tools)
	}
	if cfg.MCP.Enabled {
		t.Error("expected MCP disabled")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unset keys keep their defaults.
	if cfg.Tools.SkillsDir != "tools" {
		t.Errorf("expected default skills dir, got %s", cfg.Tools.SkillsDir)
	}
	if cfg.MCPURL() != "" {
		t.Errorf("expected empty MCP URL when disabled, got %s", cfg.MCPURL())
	}
}

func TestLoadFromFiles_LaterFilesOverride(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	local := filepath.Join(dir, "local.toml")
	os.WriteFile(base, []byte("[server]\nport = 7000\nname = \"base\"\n"), 0644)
	os.WriteFile(local, []byte("[server]\nport = 7001\n"), 0644)

	cfg, err := LoadFromFiles(base, local)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if cfg.Server.Port != 7001 {
		t.Errorf("expected port 7001, got %d", cfg.Server.Port)
	}
	if cfg.Server.Name != "base" {
		t.Errorf("expected name from first file, got %s", cfg.Server.Name)
	}
}

func TestLoadFromFiles_Errors(t *testing.T) {
	if _, err := LoadFromFiles(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(bad, []byte("[server\nport = "), 0644)
	if _, err := LoadFromFiles(bad); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("HUMCP_SERVER_PORT", "9999")
	t.Setenv("HUMCP_SERVER_HOST", "example.internal")
	t.Setenv("HUMCP_TOOLS_CONFIG", "env/tools.yaml")
	t.Setenv("HUMCP_MCP_ENABLED", "false")
	t.Setenv("HUMCP_LOG_LEVEL", "warn")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if cfg.Server.Port != 9999 || cfg.Server.Host != "example.internal" {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Tools.ConfigPath != "env/tools.yaml" {
		t.Errorf("unexpected tools config path %s", cfg.Tools.ConfigPath)
	}
	if cfg.MCP.Enabled {
		t.Error("expected MCP disabled by env")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
}

func TestApplyEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	t.Setenv("HUMCP_SERVER_PORT", "not-a-number")
	t.Setenv("HUMCP_MCP_ENABLED", "sometimes")

	cfg, _ := LoadFromFiles()
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
	if !cfg.MCP.Enabled {
		t.Error("expected MCP to stay enabled")
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 0, "", "")
	if cfg.Server.Port != 8080 {
		t.Errorf("zero port should not override, got %d", cfg.Server.Port)
	}

	ApplyFlagOverrides(cfg, 3000, "localhost", "flags/tools.yaml")
	if cfg.Server.Port != 3000 || cfg.Server.Host != "localhost" || cfg.Tools.ConfigPath != "flags/tools.yaml" {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Address() != "localhost:3000" {
		t.Errorf("unexpected address %s", cfg.Address())
	}
	if cfg.MCPURL() != "http://localhost:3000/mcp" {
		t.Errorf("unexpected MCP URL %s", cfg.MCPURL())
	}
}

func TestValidate_CollectsAllIssues(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Server.Port = 70000
	cfg.MCP.Path = "/tools/mcp"
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "mcp.path", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error: %v", want, err)
		}
	}
}

// Package toolfilter narrows the registered tools to the set exposed by the
// server, using an include/exclude policy loaded from a YAML or TOML file.
package toolfilter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when Load is given an empty path.
const DefaultConfigPath = "config/tools.yaml"

// ErrMalformedConfig is returned when an existing config file cannot be parsed.
var ErrMalformedConfig = errors.New("malformed tools config")

// FilterConfig lists exact category names and exact-or-wildcard tool names.
type FilterConfig struct {
	Categories []string `yaml:"categories" toml:"categories"`
	Tools      []string `yaml:"tools" toml:"tools"`
}

// IsEmpty reports whether the filter names nothing.
func (f FilterConfig) IsEmpty() bool {
	return len(f.Categories) == 0 && len(f.Tools) == 0
}

// ToolsConfig is the include/exclude policy. An empty Include keeps every
// tool; Exclude is applied after Include.
type ToolsConfig struct {
	Include FilterConfig `yaml:"include" toml:"include"`
	Exclude FilterConfig `yaml:"exclude" toml:"exclude"`
}

// IsEmpty reports whether the config restricts nothing.
func (c ToolsConfig) IsEmpty() bool {
	return c.Include.IsEmpty() && c.Exclude.IsEmpty()
}

// Load reads a tools config. An empty path means DefaultConfigPath. A
// missing or empty file yields the unrestricted config; a file that exists
// but does not parse is an error. Files ending in .toml are parsed as TOML,
// everything else as YAML.
func Load(path string) (ToolsConfig, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return ToolsConfig{}, nil
	}
	if err != nil {
		return ToolsConfig{}, fmt.Errorf("reading tools config %s: %w", path, err)
	}
	return Parse(data, filepath.Ext(path), path)
}

// Parse decodes config data. ext selects the format (".toml" or YAML for
// anything else); source names the data in error messages.
func Parse(data []byte, ext, source string) (ToolsConfig, error) {
	var cfg ToolsConfig
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	var err error
	if strings.EqualFold(ext, ".toml") {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return ToolsConfig{}, fmt.Errorf("%w %s: %v", ErrMalformedConfig, source, err)
	}
	return cfg, nil
}

// Package files converts documents between formats.
package files

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/tools/result"
)

// MaxInputBytes bounds the HTML read from a file.
const MaxInputBytes = 10 << 20

// ConvertInput is the argument of convert_html_to_markdown. Exactly one of
// HTML and Path is set.
type ConvertInput struct {
	HTML   string `json:"html,omitempty" jsonschema:"description=HTML source to convert"`
	Path   string `json:"path,omitempty" jsonschema:"description=Path of an .html file to convert"`
	Domain string `json:"domain,omitempty" jsonschema:"description=Base URL used to absolutize relative links"`
}

// Converter serves convert_html_to_markdown.
type Converter struct {
	workDir string
	logger  *common.Logger
}

// NewConverter creates the conversion tool. Relative paths resolve against
// workDir.
func NewConverter(workDir string, logger *common.Logger) *Converter {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Converter{workDir: workDir, logger: logger}
}

// Register adds the conversion tool to r.
func (c *Converter) Register(r registry.Registrar) error {
	t := registry.Typed(c.convert)
	t.Name = "convert_html_to_markdown"
	t.Description = "Convert HTML (inline or from a file) to Markdown."
	_, err := r.Register(t)
	return err
}

func (c *Converter) convert(_ context.Context, in ConvertInput) (result.Result, error) {
	switch {
	case in.HTML == "" && in.Path == "":
		return result.Fail("Either html or path is required"), nil
	case in.HTML != "" && in.Path != "":
		return result.Fail("Provide html or path, not both"), nil
	}

	source := in.HTML
	if in.Path != "" {
		path := in.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.workDir, path)
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".html" && ext != ".htm" {
			return result.Fail("File is not HTML: %s", in.Path), nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return result.Fail("HTML file not found: %s", in.Path), nil
		}
		if info.Size() > MaxInputBytes {
			return result.Fail("HTML file exceeds %d bytes: %s", MaxInputBytes, in.Path), nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return result.Fail("Failed to read HTML file: %v", err), nil
		}
		source = string(data)
	}

	converter := md.NewConverter(in.Domain, true, nil)
	markdown, err := converter.ConvertString(source)
	if err != nil {
		c.logger.Warn().Str("path", in.Path).Err(err).Msg("HTML conversion failed")
		return result.Fail("HTML parsing failed: %v", err), nil
	}

	c.logger.Info().Str("path", in.Path).Int("bytes", len(markdown)).Msg("HTML conversion complete")
	data := map[string]any{"markdown": markdown, "length": len(markdown)}
	if in.Path != "" {
		data["path"] = in.Path
	}
	return result.OK(data), nil
}

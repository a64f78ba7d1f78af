// Package tools is the manifest of the built-in tool modules. Each module's
// path places it in the tools tree, and its directory names the category.
package tools

import (
	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/discovery"
	"github.com/bobmcallan/humcp/internal/tools/data"
	"github.com/bobmcallan/humcp/internal/tools/files"
	"github.com/bobmcallan/humcp/internal/tools/local"
	"github.com/bobmcallan/humcp/internal/tools/search"
)

// Options configures the built-in tools.
type Options struct {
	// WorkDir is the base of relative paths given to the file, shell and
	// data tools.
	WorkDir string
	// Renderer loads pages for the search tools; nil uses headless Chrome.
	Renderer search.Renderer
	Logger   *common.Logger
}

// Manifest returns the built-in modules.
func Manifest(opts Options) []discovery.Module {
	logger := opts.Logger
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return []discovery.Module{
		{Path: "local/calculator.go", Register: local.NewCalculator(logger).Register},
		{Path: "local/shell.go", Register: local.NewShell(opts.WorkDir, logger).Register},
		{Path: "local/local_file_system.go", Register: local.NewFileSystem(opts.WorkDir, logger).Register},
		{Path: "data/csv.go", Register: data.NewCSV(opts.WorkDir, nil, logger).Register},
		{Path: "files/html_to_markdown.go", Register: files.NewConverter(opts.WorkDir, logger).Register},
		{Path: "search/web.go", Register: search.NewWeb(opts.Renderer, logger).Register},
	}
}

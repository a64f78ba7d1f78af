// Package discovery loads tool modules into a registry.
//
// Compiled-in modules are listed in a manifest and registered by Discover.
// Script modules are Go source files interpreted at startup by
// DiscoverScripts. In both cases each module is isolated: an error or panic
// while loading one module is logged and the remaining modules still load.
package discovery

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/registry"
)

// Module is a manifest entry. Path is the module's slash-separated location
// in the tools tree, such as "local/calculator.go"; its parent directory is
// the default category of the tools it registers.
type Module struct {
	Path     string
	Register func(r registry.Registrar) error
}

// Category returns the default category for tools of a module at p: the
// name of its immediate parent directory, or "" at the tree root.
func Category(p string) string {
	dir := path.Dir(path.Clean(strings.ReplaceAll(p, "\\", "/")))
	if dir == "." || dir == "/" {
		return ""
	}
	return path.Base(dir)
}

// Skipped reports whether a module file is private by convention.
func Skipped(p string) bool {
	return strings.HasPrefix(path.Base(p), "_")
}

// Discover registers every module in sorted Path order and returns the
// number that loaded without error.
func Discover(reg *registry.Registry, modules []Module, logger *common.Logger) int {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	sorted := append([]Module(nil), modules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	loaded := 0
	for _, m := range sorted {
		if Skipped(m.Path) {
			logger.Debug().Str("module", m.Path).Msg("skipping private module")
			continue
		}
		if err := load(reg, m); err != nil {
			logger.Error().Str("module", m.Path).Err(err).Msg("failed to load tool module")
			continue
		}
		loaded++
	}

	logger.Info().Int("modules", loaded).Int("tools", reg.Len()).Msg("discovered tool modules")
	return loaded
}

func load(reg *registry.Registry, m Module) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	if m.Register == nil {
		return fmt.Errorf("module has no register function")
	}
	return m.Register(reg.Scope(Category(m.Path)))
}

package discovery

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/schema"
)

// ScriptFunc is the signature of a tool function in a script module.
type ScriptFunc = func(map[string]interface{}) (interface{}, error)

// DiscoverScripts interprets every Go source file under root and registers
// the tools each one declares. It returns the number of files that loaded
// without error. A missing root is not an error and loads nothing.
//
// A script declares its tools with
//
//	func Tools() []map[string]interface{}
//
// where each entry has the keys "name", "category", "description", "params"
// and "func". "func" names a function of the script with the signature
// func(map[string]interface{}) (interface{}, error). Each "params" entry has
// "name", "type", "required", "description" and optionally "default".
// Scripts may import the standard library only.
func DiscoverScripts(reg *registry.Registry, root string, logger *common.Logger) (int, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if root == "" {
		return 0, nil
	}

	info, err := os.Stat(root)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug().Str("dir", root).Msg("scripts directory not found, no script tools loaded")
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat scripts directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("scripts path %s is not a directory", root)
	}

	files, err := scriptFiles(root)
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, rel := range files {
		if err := loadScript(reg, root, rel); err != nil {
			logger.Error().Str("script", rel).Err(err).Msg("failed to load script module")
			continue
		}
		loaded++
	}

	logger.Info().Int("scripts", loaded).Int("found", len(files)).Msg("discovered script modules")
	return loaded, nil
}

// scriptFiles returns the slash-separated relative paths of the script
// modules under root, sorted.
func scriptFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".go" || strings.HasSuffix(p, "_test.go") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if Skipped(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning scripts directory %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func loadScript(reg *registry.Registry, root, rel string) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}

	f, err := parser.ParseFile(token.NewFileSet(), rel, src, parser.PackageClauseOnly)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	pkg := f.Name.Name

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("load stdlib: %w", err)
	}
	if _, err := i.Eval(string(src)); err != nil {
		return fmt.Errorf("eval: %w", err)
	}

	v, err := i.Eval(pkg + ".Tools")
	if err != nil {
		return fmt.Errorf("script does not declare Tools: %w", err)
	}
	toolsFn, ok := v.Interface().(func() []map[string]interface{})
	if !ok {
		return fmt.Errorf("Tools has incorrect signature (expected: func() []map[string]interface{})")
	}

	scope := reg.Scope(Category(rel))
	for _, entry := range toolsFn() {
		t, err := scriptTool(i, pkg, entry)
		if err != nil {
			return err
		}
		if _, err := scope.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func scriptTool(i *interp.Interpreter, pkg string, entry map[string]interface{}) (registry.Tool, error) {
	fnName := str(entry["func"])
	if fnName == "" {
		return registry.Tool{}, fmt.Errorf("tool %q has no func", str(entry["name"]))
	}

	v, err := i.Eval(pkg + "." + fnName)
	if err != nil {
		return registry.Tool{}, fmt.Errorf("func %s: %w", fnName, err)
	}
	fn, ok := v.Interface().(ScriptFunc)
	if !ok {
		return registry.Tool{}, fmt.Errorf("func %s has incorrect signature (expected: func(map[string]interface{}) (interface{}, error))", fnName)
	}

	return registry.Tool{
		Name:        str(entry["name"]),
		Category:    str(entry["category"]),
		Ident:       registry.SnakeCase(fnName),
		Description: str(entry["description"]),
		Params:      scriptParams(entry["params"]),
		Func: func(_ context.Context, args map[string]any) (any, error) {
			return fn(args)
		},
	}, nil
}

func scriptParams(v interface{}) []schema.Param {
	var entries []map[string]interface{}
	switch t := v.(type) {
	case []map[string]interface{}:
		entries = t
	case []interface{}:
		for _, item := range t {
			if m, ok := item.(map[string]interface{}); ok {
				entries = append(entries, m)
			}
		}
	}

	params := make([]schema.Param, 0, len(entries))
	for _, e := range entries {
		name := str(e["name"])
		if name == "" {
			continue
		}
		p := schema.Param{
			Name:        name,
			Description: str(e["description"]),
			Default:     e["default"],
		}
		if kind := str(e["type"]); kind != "" {
			p.Kind = schema.Normalize(schema.Kind(kind))
		}
		required, _ := e["required"].(bool)
		p.HasDefault = !required
		params = append(params, p)
	}
	return params
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

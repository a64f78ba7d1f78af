// Package registry holds the tool registrations shared by the REST and MCP
// surfaces.
//
// A Registry is populated once during startup (module discovery) and read
// thereafter. Registration is append-only: names are unique for the lifetime
// of the Registry and entries are never replaced or removed. Changing the
// tool set requires a restart.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/schema"
)

// Registrar accepts tool registrations.
type Registrar interface {
	Register(t Tool) (Registration, error)
}

// Registry is an append-only store of tool registrations.
type Registry struct {
	mu      sync.RWMutex
	entries []Registration
	names   map[string]struct{}
	logger  *common.Logger
}

// New creates an empty registry.
func New(logger *common.Logger) *Registry {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Registry{
		names:  make(map[string]struct{}),
		logger: logger,
	}
}

// Register adds a tool with no module scope.
func (r *Registry) Register(t Tool) (Registration, error) {
	return r.register(t, "")
}

// Scope returns a Registrar whose tools default to category when they do not
// name one themselves.
func (r *Registry) Scope(category string) Registrar {
	return &scoped{registry: r, category: category}
}

// RegisterAll registers tools in order and stops at the first error.
func RegisterAll(r Registrar, tools ...Tool) error {
	for _, t := range tools {
		if _, err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

type scoped struct {
	registry *Registry
	category string
}

func (s *scoped) Register(t Tool) (Registration, error) {
	return s.registry.register(t, s.category)
}

func (r *Registry) register(t Tool, scope string) (Registration, error) {
	if t.Func == nil {
		return Registration{}, fmt.Errorf("%w: %q", ErrNilFunc, t.Name)
	}

	name := resolveName(t)
	if name == "" {
		return Registration{}, ErrToolNameEmpty
	}

	reg := Registration{
		Name:        name,
		Category:    resolveCategory(t.Category, scope),
		Description: t.Description,
		Params:      append([]schema.Param(nil), t.Params...),
		InputSchema: t.InputSchema,
		Func:        t.Func,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[name]; exists {
		return Registration{}, fmt.Errorf("%w %q", ErrDuplicateTool, name)
	}
	r.names[name] = struct{}{}
	r.entries = append(r.entries, reg)

	if untyped := schema.Untyped(reg.Params); len(untyped) > 0 && reg.InputSchema == nil {
		r.logger.Warn().
			Str("tool", name).
			Strs("params", untyped).
			Msg("tool has untyped parameters, accepting any JSON value")
	}
	r.logger.Debug().Str("tool", name).Str("category", reg.Category).Msg("registered tool")

	return reg, nil
}

// All returns every registration in registration order.
func (r *Registry) All() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Registration, len(r.entries))
	copy(out, r.entries)
	return out
}

// Get returns the registration with the given name.
func (r *Registry) Get(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reg := range r.entries {
		if reg.Name == name {
			return reg, true
		}
	}
	return Registration{}, false
}

// Len returns the number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for _, reg := range r.entries {
		names = append(names, reg.Name)
	}
	sort.Strings(names)
	return names
}

// Categories returns the distinct categories of regs, sorted.
func Categories(regs []Registration) []string {
	seen := make(map[string]struct{})
	var cats []string
	for _, reg := range regs {
		if _, ok := seen[reg.Category]; ok {
			continue
		}
		seen[reg.Category] = struct{}{}
		cats = append(cats, reg.Category)
	}
	sort.Strings(cats)
	return cats
}

// ByCategory groups regs by category, preserving their order within each
// category.
func ByCategory(regs []Registration) map[string][]Registration {
	out := make(map[string][]Registration)
	for _, reg := range regs {
		out[reg.Category] = append(out[reg.Category], reg)
	}
	return out
}

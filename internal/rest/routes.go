// Package rest generates the HTTP surface of the registered tools: one
// execute endpoint per tool plus listing and lookup endpoints.
//
// Routes snapshot the registrations they are given. Pass the filtered list
// so listings reflect what is actually exposed.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/handlers"
	"github.com/bobmcallan/humcp/internal/model"
	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/skills"
)

// DefaultMaxBodyBytes bounds execute request bodies when Options leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// Options configures Register.
type Options struct {
	Logger *common.Logger

	// Skills maps a category to its guide, shown in listings.
	Skills map[string]skills.Skill

	// MaxBodyBytes bounds execute request bodies.
	MaxBodyBytes int64

	// Title and Version describe the API in the OpenAPI document.
	Title   string
	Version string
}

// ToolSummary is a tool entry in a listing.
type ToolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Endpoint    string `json:"endpoint"`
}

// CategorySummary is a category entry of the tools listing.
type CategorySummary struct {
	Count int             `json:"count"`
	Tools []ToolSummary   `json:"tools"`
	Skill *skills.Summary `json:"skill,omitempty"`
}

// ListResponse is the body of GET /tools.
type ListResponse struct {
	TotalTools int                        `json:"total_tools"`
	Categories map[string]CategorySummary `json:"categories"`
}

// CategoryResponse is the body of GET /tools/{category}.
type CategoryResponse struct {
	Category string        `json:"category"`
	Count    int           `json:"count"`
	Tools    []ToolSummary `json:"tools"`
	Skill    *skills.Skill `json:"skill,omitempty"`
}

// ToolResponse is the body of GET /tools/{category}/{tool_name}.
type ToolResponse struct {
	Name        string         `json:"name"`
	Category    string         `json:"category"`
	Description string         `json:"description"`
	Endpoint    string         `json:"endpoint"`
	InputSchema map[string]any `json:"input_schema"`
}

// ExecuteResponse is the body of a successful POST /tools/{name}.
type ExecuteResponse struct {
	Result json.RawMessage `json:"result"`
}

type lookupKey struct {
	category string
	name     string
}

type endpoint struct {
	reg   registry.Registration
	model *model.Model
}

// Routes is the generated tool surface.
type Routes struct {
	logger     *common.Logger
	opts       Options
	endpoints  map[string]endpoint
	order      []string
	categories map[string][]ToolSummary
	lookup     map[lookupKey]registry.Registration
	skills     map[string]skills.Skill
	openapi    *openapi3.T
}

// New builds the routes for regs. It fails if a tool's input schema cannot
// be turned into a model.
func New(regs []registry.Registration, opts Options) (*Routes, error) {
	if opts.Logger == nil {
		opts.Logger = common.NewSilentLogger()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	rt := &Routes{
		logger:     opts.Logger,
		opts:       opts,
		endpoints:  make(map[string]endpoint, len(regs)),
		categories: make(map[string][]ToolSummary),
		lookup:     make(map[lookupKey]registry.Registration, len(regs)),
		skills:     opts.Skills,
	}

	for _, reg := range regs {
		m, err := model.Build(reg.Schema(), model.InputName(reg.Name))
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", reg.Name, err)
		}
		rt.endpoints[reg.Name] = endpoint{reg: reg, model: m}
		rt.order = append(rt.order, reg.Name)
		rt.categories[reg.Category] = append(rt.categories[reg.Category], summary(reg))
		rt.lookup[lookupKey{reg.Category, reg.Name}] = reg
	}
	doc, err := rt.buildOpenAPI(regs)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(context.Background()); err != nil {
		// Tool schemas may carry keywords OpenAPI does not know; the
		// document is still served.
		rt.logger.Warn().Err(err).Msg("OpenAPI document does not validate")
	}
	rt.openapi = doc

	return rt, nil
}

// Register builds the routes for regs and mounts them on mux.
func Register(mux *http.ServeMux, regs []registry.Registration, opts Options) (*Routes, error) {
	rt, err := New(regs, opts)
	if err != nil {
		return nil, err
	}
	rt.Mount(mux)
	return rt, nil
}

// Mount registers the routes on mux.
func (rt *Routes) Mount(mux *http.ServeMux) {
	mux.HandleFunc("POST /tools/{name}", rt.handleExecute)
	mux.HandleFunc("GET /tools", rt.handleList)
	mux.HandleFunc("GET /tools/{category}", rt.handleCategory)
	mux.HandleFunc("GET /tools/{category}/{tool_name}", rt.handleTool)
	mux.HandleFunc("GET /openapi.json", rt.handleOpenAPI)
	mux.HandleFunc("GET /docs", rt.handleDocs)
}

// Len returns the number of tools served.
func (rt *Routes) Len() int {
	return len(rt.order)
}

func (rt *Routes) handleExecute(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	ep, ok := rt.endpoints[name]
	if !ok {
		rt.logger.Debug().Str("tool", name).Msg("execute: unknown tool")
		handlers.WriteError(w, http.StatusNotFound, fmt.Sprintf("Tool '%s' not found", name))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rt.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		handlers.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	in, err := ep.model.Parse(body)
	if err != nil {
		var verr *model.ValidationError
		switch {
		case errors.As(err, &verr):
			handlers.WriteErrorDetail(w, http.StatusUnprocessableEntity, verr.Error(), verr.Issues)
		default:
			handlers.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		}
		return
	}

	result, err := registry.Call(r.Context(), ep.reg, in.Dump(true))
	if err != nil {
		var httpErr *registry.HTTPError
		if errors.As(err, &httpErr) {
			handlers.WriteError(w, httpErr.Status, httpErr.Message)
			return
		}
		rt.logger.ForContext(r.Context()).Error().Str("tool", name).Err(err).Msg("tool failed")
		handlers.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Tool '%s' failed", name))
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		rt.logger.ForContext(r.Context()).Error().Str("tool", name).Err(err).Msg("tool result is not JSON-serializable")
		handlers.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Tool '%s' failed", name))
		return
	}
	handlers.WriteJSON(w, http.StatusOK, ExecuteResponse{Result: raw})
}

func (rt *Routes) handleList(w http.ResponseWriter, r *http.Request) {
	resp := ListResponse{
		TotalTools: len(rt.order),
		Categories: make(map[string]CategorySummary, len(rt.categories)),
	}
	// encoding/json writes map keys sorted, so categories come out in
	// name order.
	for cat, tools := range rt.categories {
		cs := CategorySummary{Count: len(tools), Tools: tools}
		if skill, ok := rt.skills[cat]; ok {
			s := skill.Summary()
			cs.Skill = &s
		}
		resp.Categories[cat] = cs
	}
	handlers.WriteJSON(w, http.StatusOK, resp)
}

func (rt *Routes) handleCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	tools, ok := rt.categories[category]
	if !ok {
		rt.logger.Debug().Str("category", category).Msg("category not found")
		handlers.WriteError(w, http.StatusNotFound, fmt.Sprintf("Category '%s' not found", category))
		return
	}

	resp := CategoryResponse{Category: category, Count: len(tools), Tools: tools}
	if skill, ok := rt.skills[category]; ok {
		resp.Skill = &skill
	}
	handlers.WriteJSON(w, http.StatusOK, resp)
}

func (rt *Routes) handleTool(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	toolName := r.PathValue("tool_name")

	reg, ok := rt.Lookup(category, toolName)
	if !ok {
		rt.logger.Debug().Str("category", category).Str("tool", toolName).Msg("tool not found")
		handlers.WriteError(w, http.StatusNotFound,
			fmt.Sprintf("Tool '%s' not found in category '%s'", toolName, category))
		return
	}

	handlers.WriteJSON(w, http.StatusOK, ToolResponse{
		Name:        reg.Name,
		Category:    reg.Category,
		Description: reg.Description,
		Endpoint:    reg.Endpoint(),
		InputSchema: reg.Schema(),
	})
}

func (rt *Routes) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, rt.openapi)
}

// Lookup resolves a tool within a category: first by its exact name, then
// as category + "_" + toolName.
func (rt *Routes) Lookup(category, toolName string) (registry.Registration, bool) {
	if reg, ok := rt.lookup[lookupKey{category, toolName}]; ok {
		return reg, true
	}
	reg, ok := rt.lookup[lookupKey{category, category + "_" + toolName}]
	return reg, ok
}

// Categories returns the served categories, sorted.
func (rt *Routes) Categories() []string {
	cats := make([]string, 0, len(rt.categories))
	for c := range rt.categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

func summary(reg registry.Registration) ToolSummary {
	return ToolSummary{
		Name:        reg.Name,
		Description: reg.Description,
		Endpoint:    reg.Endpoint(),
	}
}

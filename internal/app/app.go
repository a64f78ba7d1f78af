// Package app wires the humcp components together: discovery, filtering,
// the REST routes and the MCP server.
package app

import (
	"fmt"
	"io"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/config"
	"github.com/bobmcallan/humcp/internal/discovery"
	"github.com/bobmcallan/humcp/internal/handlers"
	"github.com/bobmcallan/humcp/internal/mcp"
	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/rest"
	"github.com/bobmcallan/humcp/internal/skills"
	"github.com/bobmcallan/humcp/internal/toolfilter"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Registry *registry.Registry
	// Tools is the filtered set exposed over REST and MCP.
	Tools  []registry.Registration
	Skills map[string]skills.Skill
	Routes *rest.Routes

	MCPServer *mcpserver.MCPServer

	// HTTP handlers
	RootHandler    *handlers.RootHandler
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	MCPHandler     *mcp.Handler

	// remote is the MCP client session of an adapter.
	remote io.Closer
}

// New discovers the tools in modules and the scripts directory, applies the
// tools filter and builds both surfaces. Any startup error is fatal.
func New(cfg *config.Config, logger *common.Logger, modules []discovery.Module) (*App, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry.New(logger),
	}

	if err := a.discover(modules); err != nil {
		return nil, err
	}

	filterCfg, err := toolfilter.Load(cfg.Tools.ConfigPath)
	if err != nil {
		return nil, err
	}
	a.Tools, err = toolfilter.Filter(filterCfg, a.Registry.All(), cfg.Tools.Validate, logger)
	if err != nil {
		return nil, err
	}

	a.Skills, err = skills.Discover(cfg.Tools.SkillsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}

	// The MCP server is also needed for stdio, so it is built even when the
	// HTTP endpoint is disabled.
	a.MCPServer, err = mcp.NewServer(cfg.Server.Name, common.GetVersion(), a.Tools, logger)
	if err != nil {
		return nil, err
	}

	var advertised string
	if cfg.MCP.Enabled {
		advertised = cfg.MCPURL()
	}
	if err := a.build(advertised); err != nil {
		return nil, err
	}

	logger.Info().
		Int("tools", len(a.Tools)).
		Int("registered", a.Registry.Len()).
		Int("skills", len(a.Skills)).
		Msg("application initialization complete")

	return a, nil
}

// NewAdapter builds the REST surface for tools loaded from a remote MCP
// server into reg. Every tool in reg is served; the tools filter, skills and
// the local MCP endpoint do not apply. remote is closed by Close.
func NewAdapter(cfg *config.Config, logger *common.Logger, reg *registry.Registry, remoteURL string, remote io.Closer) (*App, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Tools:    reg.All(),
		remote:   remote,
	}
	if err := a.build(remoteURL); err != nil {
		return nil, err
	}

	logger.Info().
		Str("mcp_server", remoteURL).
		Int("tools", len(a.Tools)).
		Strs("categories", a.Routes.Categories()).
		Msg("adapter initialization complete")
	return a, nil
}

// build creates the REST routes and the HTTP handlers for a.Tools.
func (a *App) build(mcpURL string) error {
	var err error
	a.Routes, err = rest.New(a.Tools, rest.Options{
		Logger:       a.Logger,
		Skills:       a.Skills,
		MaxBodyBytes: a.Config.Server.MaxBodyBytes,
		Title:        a.Config.Server.Name,
		Version:      common.GetVersion(),
	})
	if err != nil {
		return err
	}
	a.initHandlers(mcpURL)
	return nil
}

func (a *App) discover(modules []discovery.Module) error {
	loaded := discovery.Discover(a.Registry, modules, a.Logger)

	scripts, err := discovery.DiscoverScripts(a.Registry, a.Config.Tools.ScriptsDir, a.Logger)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int("modules", loaded).
		Int("scripts", scripts).
		Int("tools", a.Registry.Len()).
		Msg("tool discovery complete")
	return nil
}

// initHandlers initializes all HTTP handlers. mcpURL is the MCP server
// advertised at the root. The MCP endpoint is mounted only for a local
// tool server.
func (a *App) initHandlers(mcpURL string) {
	var mcpPath string
	if a.Config.MCP.Enabled && a.MCPServer != nil {
		mcpPath = a.Config.MCP.Path
		a.MCPHandler = mcp.NewHandler(a.MCPServer, a.Config.MCP.Stateless, a.Logger)
	}

	a.RootHandler = handlers.NewRootHandler(a.Logger, a.Config.Server.Name, a.Routes.Len(), a.Routes.Categories(), mcpPath, mcpURL)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger, a.Routes.Len())
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	if a.remote != nil {
		return a.remote.Close()
	}
	return nil
}

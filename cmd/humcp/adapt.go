package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/humcp/internal/adapter"
	"github.com/bobmcallan/humcp/internal/app"
	"github.com/bobmcallan/humcp/internal/registry"
)

func newAdaptCmd(opts *options) *cobra.Command {
	var mcpURL string
	cmd := &cobra.Command{
		Use:   "adapt",
		Short: "Serve the tools of a remote MCP server as REST endpoints",
		Long: `adapt connects to a streamable HTTP MCP server, lists its tools and
serves each one as POST /tools/{name}, together with the listing, docs and
OpenAPI routes. Calls are forwarded to the remote server.

A tool named "math/add" is served as math_add in category math.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAdapt(cmd, opts, mcpURL)
		},
	}
	cmd.Flags().StringVar(&mcpURL, "mcp-url", "", `Base URL of the MCP server ("/mcp" is appended when missing)`)
	cmd.MarkFlagRequired("mcp-url")
	return cmd
}

func runAdapt(cmd *cobra.Command, opts *options, mcpURL string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	url := adapter.URL(mcpURL)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := adapter.Connect(ctx, url, logger)
	if err != nil {
		logger.Error().Str("url", url).Err(err).Msg("failed to connect to MCP server")
		return err
	}

	reg := registry.New(logger)
	if _, err := adapter.New(conn, logger).Load(ctx, reg); err != nil {
		conn.Close()
		logger.Error().Str("url", url).Err(err).Msg("failed to load remote tools")
		return err
	}
	logger.Debug().Strs("tools", reg.Names()).Msg("remote tools registered")

	application, err := app.NewAdapter(cfg, logger, reg, url, conn)
	if err != nil {
		conn.Close()
		return err
	}
	defer application.Close()

	g, ctx := errgroup.WithContext(ctx)
	serveHTTP(ctx, g, application)
	return wait(g, logger)
}

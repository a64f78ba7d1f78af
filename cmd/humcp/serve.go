package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/humcp/internal/app"
	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/config"
	"github.com/bobmcallan/humcp/internal/mcp"
	"github.com/bobmcallan/humcp/internal/server"
	"github.com/bobmcallan/humcp/internal/toolfilter"
	"github.com/bobmcallan/humcp/internal/tools"
)

// ShutdownTimeout bounds graceful HTTP shutdown.
const ShutdownTimeout = 10 * time.Second

func newApp(cfg *config.Config, logger *common.Logger) (*app.App, error) {
	return app.New(cfg, logger, tools.Manifest(tools.Options{
		WorkDir: cfg.Tools.WorkDir,
		Logger:  logger,
	}))
}

func runServe(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	logger.Info().
		Str("address", cfg.Address()).
		Strs("config_files", opts.configFiles).
		Str("tools_config", cfg.Tools.ConfigPath).
		Bool("stdio", opts.stdio).
		Msg("configuration loaded")

	application, err := newApp(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Tools.Watch {
		g.Go(func() error {
			watchToolsConfig(ctx, cfg.Tools.ConfigPath, logger)
			return nil
		})
	}

	if opts.stdio {
		g.Go(func() error {
			logger.Info().Int("tools", len(application.Tools)).Msg("serving MCP over stdio")
			err := mcp.ServeStdio(ctx, application.MCPServer, os.Stdin, os.Stdout)
			// stdin closing ends the session and the process.
			stop()
			return err
		})
		return wait(g, logger)
	}

	serveHTTP(ctx, g, application)
	return wait(g, logger)
}

// serveHTTP runs the HTTP server in g until ctx is done, then shuts it down
// gracefully.
func serveHTTP(ctx context.Context, g *errgroup.Group, application *app.App) {
	cfg, logger := application.Config, application.Logger
	srv := server.New(application)
	g.Go(func() error {
		var mcpURL string
		if application.MCPHandler != nil {
			mcpURL = cfg.MCPURL()
		}
		logger.Info().
			Str("url", "http://"+cfg.Address()).
			Str("mcp", mcpURL).
			Int("tools", len(application.Tools)).
			Msg("server ready")
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func wait(g *errgroup.Group, logger *common.Logger) error {
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server stopped with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// watchToolsConfig warns when the filter file changes. A watcher that cannot
// start is logged and otherwise ignored.
func watchToolsConfig(ctx context.Context, path string, logger *common.Logger) {
	err := toolfilter.Watch(ctx, path, logger, func(ev fsnotify.Event) {
		logger.Warn().
			Str("path", ev.Name).
			Str("op", ev.Op.String()).
			Msg("tools config changed; restart humcp to apply it")
	})
	if err != nil {
		logger.Warn().Err(err).Msg("tools config watcher disabled")
	}
}

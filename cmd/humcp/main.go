// Command humcp serves the built-in and script tools over REST and MCP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/config"
)

// options holds the global flags.
type options struct {
	configFiles []string
	port        int
	host        string
	toolsConfig string
	stdio       bool
}

func main() {
	common.LoadVersionFromFile()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "humcp",
		Short: "HuMCP tool server",
		Long: `humcp discovers tools and serves each of them twice: as a REST
endpoint under /tools and as an MCP tool at /mcp (or over stdio).

Running without a subcommand starts the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringArrayVarP(&opts.configFiles, "config", "c", nil, "Configuration file path (can be specified multiple times)")
	pf.IntVarP(&opts.port, "port", "p", 0, "Server port (overrides config)")
	pf.StringVar(&opts.host, "host", "", "Server host (overrides config)")
	pf.StringVar(&opts.toolsConfig, "tools-config", "", "Tools include/exclude file (overrides config)")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST and MCP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	for _, c := range []*cobra.Command{root, serve} {
		c.Flags().BoolVar(&opts.stdio, "stdio", false, "Serve MCP over stdin/stdout instead of HTTP")
	}

	root.AddCommand(
		serve,
		newToolsCmd(opts),
		newValidateCmd(opts),
		newAdaptCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig resolves, loads and validates the configuration.
func loadConfig(opts *options) (*config.Config, error) {
	files := opts.configFiles
	if len(files) == 0 {
		files = config.DiscoverConfigFiles()
	}

	cfg, err := config.LoadFromFiles(files...)
	if err != nil {
		return nil, err
	}
	config.ApplyFlagOverrides(cfg, opts.port, opts.host, opts.toolsConfig)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *common.Logger {
	return common.NewLoggerFromConfig(cfg.Logging)
}

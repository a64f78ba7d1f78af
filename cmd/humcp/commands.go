package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/humcp/internal/app"
	"github.com/bobmcallan/humcp/internal/common"
	"github.com/bobmcallan/humcp/internal/registry"
	"github.com/bobmcallan/humcp/internal/toolfilter"
)

var errUnknownTool = errors.New("unknown tool")

func newToolsCmd(opts *options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "tools [name]",
		Short: "List the tools the server would expose, grouped by category",
		Long: `tools lists the enabled tools grouped by category. Given a tool name it
prints that tool's category, endpoint and input schema instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			application, err := newApp(cfg, common.NewSilentLogger())
			if err != nil {
				return err
			}
			defer application.Close()

			if len(args) == 1 {
				return printTool(cmd.OutOrStdout(), application, args[0])
			}

			regs := application.Tools
			if all {
				regs = application.Registry.All()
			}

			out := cmd.OutOrStdout()
			byCategory := registry.ByCategory(regs)
			for _, category := range registry.Categories(regs) {
				fmt.Fprintf(out, "%s\n", category)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, r := range byCategory[category] {
					fmt.Fprintf(tw, "  %s\t%s\n", r.Name, r.Description)
				}
				tw.Flush()
			}
			fmt.Fprintf(out, "\n%d of %d tools enabled\n", len(application.Tools), application.Registry.Len())
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List every discovered tool, ignoring the tools filter")
	return cmd
}

// printTool describes one registered tool, noting when the filter hides it.
func printTool(out io.Writer, application *app.App, name string) error {
	reg, ok := application.Registry.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownTool, name)
	}
	enabled := false
	for _, r := range application.Tools {
		if r.Name == name {
			enabled = true
			break
		}
	}
	schema, err := json.MarshalIndent(reg.Schema(), "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s\n", reg.Name)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "  category\t%s\n", reg.Category)
	fmt.Fprintf(tw, "  endpoint\tPOST %s\n", reg.Endpoint())
	fmt.Fprintf(tw, "  enabled\t%t\n", enabled)
	if reg.Description != "" {
		fmt.Fprintf(tw, "  description\t%s\n", reg.Description)
	}
	tw.Flush()
	fmt.Fprintf(out, "\n%s\n", schema)
	return nil
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the tools filter against the discovered tools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			filterCfg, err := toolfilter.Load(cfg.Tools.ConfigPath)
			if err != nil {
				return err
			}

			// Build unvalidated so every problem is reported rather than the first.
			cfg.Tools.Validate = false
			application, err := newApp(cfg, common.NewSilentLogger())
			if err != nil {
				return err
			}
			defer application.Close()

			res := toolfilter.ValidateRegistrations(filterCfg, application.Registry.All())
			out := cmd.OutOrStdout()
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if err := res.Err(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: ok (%d of %d tools enabled)\n",
				cfg.Tools.ConfigPath, len(application.Tools), application.Registry.Len())
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "humcp version %s\n", common.GetFullVersion())
			return nil
		},
	}
}

package main

import (
	"errors"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

var errConfigRequired = errors.New(`required flag "config" not set`)

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	serve := func(cmd *cobra.Command, _ []string) error {
		if opts.configPath == "" {
			_ = cmd.Usage()
			return errConfigRequired
		}
		cmd.SilenceUsage = true
		return runServe(cmd.Context(), opts)
	}

	root := &cobra.Command{
		Use:           "mcpgate --config <file>",
		Short:         "Serve a declarative HTTP API as an MCP server over stdio",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the gateway YAML config")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the gateway over stdio (default)",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})
	root.AddCommand(newValidateCmd(opts))
	root.AddCommand(newAuditCmd())
	root.AddCommand(newSecretCmd())
	return root
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/revittco/mcpgate/internal/config"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a config file and print what it declares",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.configPath == "" {
				_ = cmd.Usage()
				return errConfigRequired
			}
			cmd.SilenceUsage = true

			cfg, err := config.LoadFile(opts.configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s: ok\n", cfg.Name, cfg.Version)
			fmt.Fprintf(out, "  base_url:  %s\n", cfg.API.BaseURL)
			fmt.Fprintf(out, "  auth:      %s\n", cfg.Auth.Type)
			fmt.Fprintf(out, "  tools:     %d\n", len(cfg.Tools))
			fmt.Fprintf(out, "  resources: %d\n", len(cfg.Resources))
			fmt.Fprintf(out, "  prompts:   %d\n", len(cfg.Prompts))
			for _, t := range cfg.Tools {
				if missing := t.UndeclaredPathParams(); len(missing) > 0 {
					fmt.Fprintf(out, "  warning: tool %s path uses undeclared parameters %v\n", t.Name, missing)
				}
			}
			for _, name := range cfg.BodyCredentialIgnored() {
				fmt.Fprintf(out, "  warning: %s sends no body, the api key in the body is dropped\n", name)
			}
			return nil
		},
	}
}

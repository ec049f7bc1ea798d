package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/revittco/mcpgate/internal/secrets"
)

type secretOptions struct {
	identity string
	file     string
}

func newSecretCmd() *cobra.Command {
	opts := &secretOptions{}
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the age-sealed secrets file",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if opts.identity == "" {
				opts.identity = settings.AgeIdentity
			}
			if opts.identity == "" {
				opts.identity = defaultDataPath("age.key")
			}
			if opts.file == "" {
				opts.file = settings.SecretsFile
			}
			if opts.file == "" {
				opts.file = defaultDataPath("secrets.env.age")
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.identity, "identity", "", "age identity file (default $MCPGATE_AGE_IDENTITY)")
	cmd.PersistentFlags().StringVar(&opts.file, "file", "", "sealed secrets file (default $MCPGATE_SECRETS_FILE)")

	cmd.AddCommand(
		newSecretKeygenCmd(opts),
		newSecretPutCmd(opts),
		newSecretGetCmd(opts),
		newSecretListCmd(opts),
		newSecretDeleteCmd(opts),
		newSecretImportCmd(opts),
	)
	return cmd
}

func (o *secretOptions) manager() (*secrets.Manager, error) {
	enc, err := secrets.NewAgeEncryptor(o.identity)
	if err != nil {
		return nil, fmt.Errorf("create encryptor: %w", err)
	}
	return secrets.Open(o.file, enc)
}

func newSecretKeygenCmd(opts *secretOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new age identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			if err := os.MkdirAll(filepath.Dir(opts.identity), 0o700); err != nil {
				return fmt.Errorf("create key directory: %w", err)
			}
			recipient, err := secrets.GenerateKey(opts.identity)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nPublic key: %s\n", opts.identity, recipient)
			return nil
		},
	}
}

func newSecretPutCmd(opts *secretOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <name> [value|-]",
		Short: "Set a secret; reads the value from stdin when omitted or -",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			value, err := secretValue(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			sm, err := opts.manager()
			if err != nil {
				return err
			}
			if err := sm.Put(args[0], value); err != nil {
				return fmt.Errorf("put secret: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Secret %q set in %s\n", args[0], opts.file)
			return nil
		},
	}
}

func secretValue(stdin io.Reader, args []string) (string, error) {
	if len(args) == 2 && args[1] != "-" {
		return args[1], nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read value: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newSecretGetCmd(opts *secretOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Print a secret value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			sm, err := opts.manager()
			if err != nil {
				return err
			}
			val, err := sm.Get(args[0])
			if err != nil {
				return fmt.Errorf("get secret %q: %w", args[0], err)
			}
			fmt.Fprint(cmd.OutOrStdout(), val)
			return nil
		},
	}
}

func newSecretListCmd(opts *secretOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List secret names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			sm, err := opts.manager()
			if err != nil {
				return err
			}
			for _, k := range sm.List() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func newSecretDeleteCmd(opts *secretOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			sm, err := opts.manager()
			if err != nil {
				return err
			}
			if err := sm.Delete(args[0]); err != nil {
				return fmt.Errorf("delete secret %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Secret %q deleted from %s\n", args[0], opts.file)
			return nil
		},
	}
}

// newSecretImportCmd seals every variable of a plaintext dotenv file.
func newSecretImportCmd(opts *secretOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.env>",
		Short: "Seal the variables of a plaintext dotenv file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			vars, err := godotenv.Read(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			sm, err := opts.manager()
			if err != nil {
				return err
			}
			if err := sm.PutAll(vars); err != nil {
				return fmt.Errorf("import secrets: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d secrets into %s\n", len(vars), opts.file)
			return nil
		},
	}
}

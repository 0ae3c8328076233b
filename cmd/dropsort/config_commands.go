package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/listenupapp/dropsort/internal/config"
	domainerrors "github.com/listenupapp/dropsort/internal/errors"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample rules file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				dir, err := os.UserConfigDir()
				if err != nil {
					return domainerrors.Wrap(err, domainerrors.CodeConfig, "determine default config path")
				}
				target = filepath.Join(dir, "dropsort", "config.json")
			}

			if err := config.CreateSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample rules to %s\n", target)
			fmt.Fprintln(out, "Edit downloads_dir and file_paths before running dropsort.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the rules file (.json or .toml)")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rules, err := cfg.Rules()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rules file: %s\n", cfg.RulesPath)
			fmt.Fprintf(out, "Downloads dir: %s\n", cfg.Watch.Root)
			fmt.Fprintf(out, "Extensions: %d\n", rules.Len())
			fmt.Fprintf(out, "Settle delay: %s\n", cfg.Relocate.SettleDelay)
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

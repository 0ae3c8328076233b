package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/listenupapp/dropsort/internal/relocator"
)

func newRulesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the extension to destination table",
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

			now := time.Now()
			rows := make([][]string, 0, rules.Len())
			for _, ext := range rules.Extensions() {
				root, _ := rules.Lookup(ext)
				rows = append(rows, []string{ext, root, relocator.DayFolder(root, now)})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (rules from %s)\n", cfg.Watch.Root, cfg.RulesPath)
			fmt.Fprintln(out, renderTable(
				[]string{"Extension", "Destination", "Today"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
				shouldColorize(out),
			))
			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/listenupapp/dropsort/internal/di"
	"github.com/listenupapp/dropsort/internal/di/providers"
	domainerrors "github.com/listenupapp/dropsort/internal/errors"
	"github.com/listenupapp/dropsort/internal/processor"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Relocate the files already in the downloads directory and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}

			injector := di.NewContainer(cfg, cmd.ErrOrStderr())
			defer func() { _ = injector.Shutdown() }()

			// Taking the lock first keeps its error intact for the exit code.
			if _, err := do.Invoke[*providers.InstanceLockHandle](injector); err != nil {
				return err
			}
			ep, err := do.Invoke[*processor.EventProcessor](injector)
			if err != nil {
				return err
			}

			stats, err := ep.Sweep(runCtx, cfg.Watch.Root)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Moved", "Skipped", "Failed"},
				[][]string{{
					fmt.Sprint(stats.Moved),
					fmt.Sprint(stats.Skipped),
					fmt.Sprint(stats.Failed),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight},
				shouldColorize(out),
			))

			if stats.Failed > 0 {
				return domainerrors.IO(fmt.Sprintf("%d file(s) could not be moved", stats.Failed))
			}
			return nil
		},
	}
}

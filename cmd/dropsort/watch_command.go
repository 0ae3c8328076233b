package main

import (
	"context"
	"errors"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/listenupapp/dropsort/internal/di"
	"github.com/listenupapp/dropsort/internal/di/providers"
	"github.com/listenupapp/dropsort/internal/logger"
	"github.com/listenupapp/dropsort/internal/processor"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var sweepFirst bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the downloads directory until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, ctx, sweepFirst)
		},
	}

	cmd.Flags().BoolVar(&sweepFirst, "sweep", false, "Relocate files already in the directory once the watch is up")
	return cmd
}

// runWatch blocks until the command context is cancelled (SIGINT or SIGTERM)
// or the watched directory disappears.
func runWatch(cmd *cobra.Command, cc *commandContext, sweepFirst bool) error {
	cfg, err := cc.ensureConfig()
	if err != nil {
		return err
	}
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	injector := di.NewContainer(cfg, cmd.ErrOrStderr())
	if err := di.Bootstrap(injector); err != nil {
		_ = injector.Shutdown()
		return err
	}

	log := do.MustInvoke[*logger.Logger](injector)
	handle := do.MustInvoke[*providers.FileWatcherHandle](injector)
	ep := do.MustInvoke[*processor.EventProcessor](injector)

	sweepDone := make(chan struct{})
	if sweepFirst {
		go func() {
			defer close(sweepDone)
			if _, err := ep.Sweep(ctx, cfg.Watch.Root); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("initial sweep failed", "error", err)
			}
		}()
	} else {
		close(sweepDone)
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case runErr = <-handle.Done():
	}
	cancel()

	// The DI container stops the watcher before releasing the lock.
	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}
	<-sweepDone

	stats := ep.Stats()
	log.Info("dropsort stopped",
		"moved", stats.Moved,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"coalesced", stats.Coalesced,
	)
	return runErr
}

package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()
	var sweepFirst bool

	rootCmd := &cobra.Command{
		Use:   "dropsort",
		Short: "Move finished downloads into dated folders by file extension",
		Long: `dropsort watches a downloads directory and moves every new or modified
file into {destination}/{YYYY-MM-DD}/, where the destination is chosen by the
file extension. Without a subcommand it runs "watch".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, ctx, sweepFirst)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.flags.ConfigPath, "config", "c", "", "Rules file path (JSON, or TOML when it ends in .toml)")
	flags.StringVar(&ctx.flags.EnvFile, "env-file", "", "Environment file to load (default .env)")
	flags.StringVar(&ctx.flags.Env, "env", "", "Environment: development, staging or production")
	flags.StringVar(&ctx.flags.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&ctx.flags.LogFormat, "log-format", "", "Log format: json, pretty or text")
	flags.StringVar(&ctx.flags.SettleDelay, "settle-delay", "", "Wait this long after an event before moving (default 1s)")
	flags.StringVar(&ctx.flags.MaxConcurrent, "max-concurrent", "", "Maximum relocations in flight (default 4)")
	flags.StringVar(&ctx.flags.Backend, "backend", "", "Watcher backend: auto, fsnotify or inotify")
	flags.StringVar(&ctx.flags.WatchDir, "watch-dir", "", "Override downloads_dir from the rules file")
	flags.StringVar(&ctx.flags.LockDir, "lock-dir", "", "Directory for the single-instance lock file")
	flags.BoolVar(&ctx.flags.NoLock, "no-lock", false, "Allow several instances to watch the same directory")

	rootCmd.Flags().BoolVar(&sweepFirst, "sweep", false, "Relocate files already in the directory once the watch is up")

	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newSweepCommand(ctx))
	rootCmd.AddCommand(newRulesCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

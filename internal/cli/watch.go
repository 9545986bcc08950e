package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fiscalia/campo/internal/syncer"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Interval time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch connectivity and sync the queue automatically",
		Long: `Watch connectivity and sync the queue automatically.

Probes the API periodically. Drains the queue once at startup when the device
is already online, and again on every offline-to-online transition. Runs
until interrupted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "probe interval (default from config)")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	env, err := openEnv(opts.RootOptions, true)
	if err != nil {
		return err
	}
	defer env.close()

	interval := opts.Interval
	if interval <= 0 {
		interval = env.cfg.ProbeInterval
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("watching connectivity", "interval", interval, "db", env.cfg.DatabasePath)
	fmt.Fprintln(cmd.OutOrStdout(), "Watching connectivity; press Ctrl-C to stop.")

	watcher := syncer.NewWatcher(env.controller, env.client, interval, slog.Default())
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitCommandError, "watcher stopped", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Stopped.")
	return nil
}

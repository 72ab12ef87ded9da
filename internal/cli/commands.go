package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Proton-105/worktime-bot/internal/app"
	"github.com/Proton-105/worktime-bot/pkg/config"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot with the health and metrics server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return opts.withApp(ctx, func(ctx context.Context, rt *runtime, a *app.App) error {
				config.Watch(rt.viper, a.ApplyConfig, func(err error) {
					rt.log.Warn("ignoring invalid configuration change", slog.Any("error", err))
				})

				rt.log.Info("starting worktime bot", slog.String("version", Version), slog.String("mode", rt.cfg.Bot.Mode))
				return a.Serve(ctx)
			})
		},
	}
}

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process background jobs such as the stale session sweep",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return opts.withApp(ctx, func(ctx context.Context, _ *runtime, a *app.App) error {
				return a.RunWorker(ctx)
			})
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (postgres, sqlite) or create indexes (mongo)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.load()
			if err != nil {
				return err
			}
			defer rt.close()

			applied, err := app.Migrate(cmd.Context(), rt.cfg.Storage, rt.log.Logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d migration(s) applied\n", rt.cfg.Storage.Driver, applied)
			return nil
		},
	}
}

func newSweepCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete automatic sessions left open on an earlier day",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, _ *runtime, a *app.App) error {
				res, err := a.Sweep(ctx, time.Now())
				if err != nil {
					return err
				}

				if res.TaskID != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "sweep enqueued: %s\n", res.TaskID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stale sessions removed: %d\n", res.Removed)
				return nil
			})
		},
	}
}

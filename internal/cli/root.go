// Package cli defines the worktime-bot command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Proton-105/worktime-bot/internal/app"
	"github.com/Proton-105/worktime-bot/pkg/config"
	"github.com/Proton-105/worktime-bot/pkg/logger"
)

// Version is stamped at build time.
var Version = "dev"

type rootOptions struct {
	configDir string
	env       string
}

// runtime is what every command needs after configuration is loaded.
type runtime struct {
	cfg   *config.Config
	viper *viper.Viper
	log   *logger.Logger
	flush func()
}

func (r *runtime) close() {
	r.flush()
	_ = r.log.Close()
}

// NewRootCmd creates the top-level "worktime-bot" command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "worktime-bot",
		Short:         "Telegram bot for tracking working hours",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config-dir", "", "directory holding <env>.yaml (default ./configs)")
	root.PersistentFlags().StringVar(&opts.env, "env", "", "configuration environment (default $APP_ENV or development)")

	root.AddCommand(
		newServeCmd(opts),
		newWorkerCmd(opts),
		newMigrateCmd(opts),
		newSweepCmd(opts),
	)

	return root
}

func (o *rootOptions) load() (*runtime, error) {
	cfg, v, err := config.LoadWith(config.Options{Dir: o.configDir, Env: o.env})
	if err != nil {
		return nil, err
	}

	flush, err := app.InitSentry(cfg.Sentry, cfg.AppEnv, Version)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		File: logger.FileConfig{
			Enabled:    cfg.Logger.File.Enabled,
			Path:       cfg.Logger.File.Path,
			MaxSizeMB:  cfg.Logger.File.MaxSizeMB,
			MaxBackups: cfg.Logger.File.MaxBackups,
			MaxAgeDays: cfg.Logger.File.MaxAgeDays,
			Compress:   cfg.Logger.File.Compress,
		},
		Sentry: cfg.Sentry.Enabled,
	})
	if err != nil {
		flush()
		return nil, fmt.Errorf("build logger: %w", err)
	}
	slog.SetDefault(log.Logger)

	return &runtime{cfg: cfg, viper: v, log: log, flush: flush}, nil
}

// withApp loads configuration, builds the application, runs fn and releases everything.
func (o *rootOptions) withApp(ctx context.Context, fn func(ctx context.Context, rt *runtime, a *app.App) error) error {
	rt, err := o.load()
	if err != nil {
		return err
	}
	defer rt.close()

	a, err := app.New(ctx, rt.cfg, rt.log, app.Options{})
	if err != nil {
		rt.log.Error("failed to initialise application", slog.Any("error", err))
		return err
	}

	runErr := fn(ctx, rt, a)

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(rt.cfg))
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		rt.log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	return runErr
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg.Server.ShutdownTimeout > 0 {
		return cfg.Server.ShutdownTimeout
	}
	return 15 * time.Second
}

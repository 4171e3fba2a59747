package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"techbriefing/internal/app"
	"techbriefing/internal/config"
	"techbriefing/internal/logging"
)

func main() {
	// Missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "techbriefing",
		Short:         "Collects tech posts, filters them with AI and delivers a daily briefing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), collectNowCmd())
	return root
}

func serveCmd() *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the full pipeline on its schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := config.Load()
			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Serve(ctx, noScheduler); err != nil && ctx.Err() == nil {
				return err
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "verify wiring and seed data, then exit")
	return cmd
}

func collectNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect-now [source...]",
		Short: "Run one collection cycle immediately and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := config.Load()
			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer application.Close()

			results, err := application.CollectNow(ctx, args)
			for name, run := range results {
				line := fmt.Sprintf("%s: %s, %d posts", name, run.Status, run.PostsCollected)
				if run.ErrorMessage != "" {
					line += " (" + run.ErrorMessage + ")"
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return err
		},
	}
}

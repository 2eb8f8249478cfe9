package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/fleet-mx-api/internal/app"
	"github.com/noah-isme/fleet-mx-api/pkg/config"
	"github.com/noah-isme/fleet-mx-api/pkg/logger"
)

var nowFlag string

var rootCmd = &cobra.Command{
	Use:          "mxctl",
	Short:        "Operate the fleet maintenance scheduler",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&nowFlag, "now", "", "simulated clock (RFC3339, default current time)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func parseNow(raw string, fallback func() time.Time) (time.Time, error) {
	if raw == "" {
		return fallback().UTC(), nil
	}
	now, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now must be RFC3339: %w", err)
	}
	return now.UTC(), nil
}

// withApp connects to the configured stores for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	a, err := app.New(cfg, logr)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logr.Warn("close application", zap.Error(err))
		}
	}()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

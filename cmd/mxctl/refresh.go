package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/fleet-mx-api/internal/app"
	"github.com/noah-isme/fleet-mx-api/internal/dto"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild maintenance plans",
}

var refreshAircraftCmd = &cobra.Command{
	Use:   "aircraft <aircraft-id>",
	Short: "Rebuild the plan of one aircraft",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefreshAircraft,
}

var refreshFleetCmd = &cobra.Command{
	Use:   "fleet <fleet-id>",
	Short: "Rebuild the plans of every aircraft in a fleet",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefreshFleet,
}

func init() {
	refreshCmd.AddCommand(refreshAircraftCmd, refreshFleetCmd)
	rootCmd.AddCommand(refreshCmd)
}

func runRefreshAircraft(cmd *cobra.Command, args []string) error {
	now, err := parseNow(nowFlag, time.Now)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		result, err := a.Scheduler.Refresh(ctx, args[0], dto.RefreshRequest{Now: now})
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	})
}

func runRefreshFleet(cmd *cobra.Command, args []string) error {
	now, err := parseNow(nowFlag, time.Now)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		result, err := a.Scheduler.RefreshFleet(ctx, args[0], dto.RefreshRequest{Now: now})
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	})
}

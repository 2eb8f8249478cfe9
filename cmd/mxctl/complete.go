package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/fleet-mx-api/internal/app"
	"github.com/noah-isme/fleet-mx-api/internal/dto"
)

var (
	completeTier  string
	completeAt    string
	completeHours float64
)

var completeCmd = &cobra.Command{
	Use:   "complete <aircraft-id>",
	Short: "Record a performed check and replan",
	Args:  cobra.ExactArgs(1),
	RunE:  runComplete,
}

func init() {
	completeCmd.Flags().StringVar(&completeTier, "tier", "", "check tier: daily, weekly, a, c or d")
	completeCmd.Flags().StringVar(&completeAt, "at", "", "completion time (RFC3339, default --now)")
	completeCmd.Flags().Float64Var(&completeHours, "hours", -1, "total flight hours at completion (A checks)")
	_ = completeCmd.MarkFlagRequired("tier")
	rootCmd.AddCommand(completeCmd)
}

func completeRequest(now time.Time) (dto.CompleteCheckRequest, error) {
	req := dto.CompleteCheckRequest{Tier: completeTier, CompletedAt: now, Now: now}
	if completeAt != "" {
		at, err := time.Parse(time.RFC3339, completeAt)
		if err != nil {
			return req, fmt.Errorf("--at must be RFC3339: %w", err)
		}
		req.CompletedAt = at.UTC()
	}
	if completeHours >= 0 {
		hours := completeHours
		req.TotalFlightHours = &hours
	}
	return req, nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	now, err := parseNow(nowFlag, time.Now)
	if err != nil {
		return err
	}
	req, err := completeRequest(now)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		result, err := a.Scheduler.CompleteCheck(ctx, args[0], req)
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	})
}

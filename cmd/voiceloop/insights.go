package main

import (
	"context"
	"voiceloop/internal"

	"github.com/spf13/cobra"
)

func (c *cli) newInsightsCmd() *cobra.Command {
	minAgeHours := -1

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Aggregate performance of tracked posts into recommendations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd, func(ctx context.Context, app *internal.Container) error {
				if minAgeHours < 0 {
					minAgeHours = app.Config.Tracking.MinAgeHours
				}
				insights, err := app.Insights.Analyze(ctx, minAgeHours)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), insights)
			})
		},
	}

	cmd.Flags().IntVar(&minAgeHours, "min-age-hours", minAgeHours, "only include posts at least this old (default from config)")
	return cmd
}

func (c *cli) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the profile, records and insights over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd, func(ctx context.Context, app *internal.Container) error {
				return app.Serve(ctx)
			})
		},
	}
}

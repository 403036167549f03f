package main

import (
	"context"
	"voiceloop/internal"

	"github.com/spf13/cobra"
)

func (c *cli) newTrackCmd() *cobra.Command {
	track := &cobra.Command{
		Use:   "track",
		Short: "Track published posts and refresh their metrics",
	}
	track.AddCommand(c.newTrackRecordCmd())
	track.AddCommand(c.newTrackRefreshCmd())
	track.AddCommand(c.newTrackUpdateCmd())
	return track
}

func (c *cli) newTrackRecordCmd() *cobra.Command {
	var postID, candidatePath string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Start tracking a published candidate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			candidate, err := readCandidate(candidatePath)
			if err != nil {
				return err
			}
			return c.withContainer(cmd, func(ctx context.Context, app *internal.Container) error {
				record, err := app.Tracker.Record(ctx, candidate, postID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), record)
			})
		},
	}

	cmd.Flags().StringVar(&postID, "post-id", "", "platform id of the published post")
	cmd.Flags().StringVar(&candidatePath, "candidate", "", "candidate file written by generate --out")
	_ = cmd.MarkFlagRequired("post-id")
	_ = cmd.MarkFlagRequired("candidate")
	return cmd
}

func (c *cli) newTrackRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <post-id>",
		Short: "Fetch current metrics for one tracked post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd, func(ctx context.Context, app *internal.Container) error {
				record, err := app.Tracker.RefreshMetrics(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), record)
			})
		},
	}
}

func (c *cli) newTrackUpdateCmd() *cobra.Command {
	var windowHours int

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Refresh every post published within the window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd, func(ctx context.Context, app *internal.Container) error {
				if windowHours <= 0 {
					windowHours = app.Config.Tracking.WindowHours
				}
				summary, err := app.Tracker.UpdateRecent(ctx, windowHours)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}

	cmd.Flags().IntVar(&windowHours, "window-hours", 0, "refresh window in hours (default from config)")
	return cmd
}

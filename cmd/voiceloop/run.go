package main

import (
	"context"
	"voiceloop/internal"
	"voiceloop/internal/pipeline"

	"github.com/spf13/cobra"
)

func (c *cli) newRunCmd() *cobra.Command {
	var opts pipeline.RunOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest posts and regenerate the voice profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd, func(ctx context.Context, app *internal.Container) error {
				result, err := app.Runner.Run(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.Quick, "quick", "q", false, "skip regeneration while the current profile is fresh")
	cmd.Flags().IntVar(&opts.MaxPosts, "max-posts", 0, "maximum posts to ingest (default from config)")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"os"
	"voiceloop/internal"
	"voiceloop/internal/models"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func (c *cli) newGenerateCmd() *cobra.Command {
	var (
		brief        models.ContentBrief
		withInsights bool
		outPath      string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write candidates for a brief and keep the best one if it sounds authentic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withContainer(cmd, func(ctx context.Context, app *internal.Container) error {
				if brief.TargetPlatform == "" {
					brief.TargetPlatform = app.Config.Platform.Name
				}

				result, err := app.Runner.Generate(ctx, brief, withInsights)
				if err != nil {
					return err
				}
				if err = printJSON(cmd.OutOrStdout(), result); err != nil {
					return err
				}

				if result.Candidate == nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "no candidate published: %s\n", result.Report.Diagnostic)
					return nil
				}
				if outPath != "" {
					return writeCandidate(outPath, result.Candidate)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&brief.ContentKind, "kind", "k", "", "content kind, e.g. tip, story, announcement")
	cmd.Flags().StringVarP(&brief.Topic, "topic", "t", "", "what the post is about")
	cmd.Flags().StringVar(&brief.OptionalLink, "link", "", "link to include")
	cmd.Flags().StringVar(&brief.TargetPlatform, "platform", "", "target platform (default from config)")
	cmd.Flags().BoolVar(&withInsights, "with-insights", true, "feed performance recommendations into the brief")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the selected candidate to this file")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func writeCandidate(path string, candidate *models.GeneratedCandidate) error {
	data, err := json.MarshalIndent(candidate, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func readCandidate(path string) (models.GeneratedCandidate, error) {
	var candidate models.GeneratedCandidate
	data, err := os.ReadFile(path)
	if err != nil {
		return candidate, err
	}
	if err = json.Unmarshal(data, &candidate); err != nil {
		return candidate, fmt.Errorf("decode candidate %s: %w", path, err)
	}
	if candidate.Text == "" {
		return candidate, fmt.Errorf("candidate %s has no text", path)
	}
	return candidate, nil
}

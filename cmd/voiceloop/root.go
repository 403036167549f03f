package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"voiceloop/internal"
	"voiceloop/internal/di"
	"voiceloop/internal/services"
	"voiceloop/internal/structures"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

type containerFactory func(flags *structures.CliFlags) (*internal.Container, func(), error)

type cli struct {
	flags        structures.CliFlags
	newContainer containerFactory
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(di.InitContainer)
}

func newRootCmdWith(factory containerFactory) *cobra.Command {
	c := &cli{newContainer: factory}

	rootCmd := &cobra.Command{
		Use:           "voiceloop",
		Short:         "Learn a creator's voice, write in it, and learn from what performs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&c.flags.ConfigPath, "config", "c", "config.yaml", "path to the yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&c.flags.DebugMode, "debug", "d", false, "enable debug logging")

	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newGenerateCmd())
	rootCmd.AddCommand(c.newTrackCmd())
	rootCmd.AddCommand(c.newInsightsCmd())
	rootCmd.AddCommand(c.newServeCmd())

	return rootCmd
}

// withContainer builds the dependency graph for one command and tears it
// down afterwards.
func (c *cli) withContainer(cmd *cobra.Command, fn func(ctx context.Context, app *internal.Container) error) error {
	app, cleanup, err := c.newContainer(&c.flags)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer cleanup()
	return fn(cmd.Context(), app)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// describeError renders stage failures as "stage <name> failed: <reason>"
// with the underlying cause on a second line.
func describeError(err error) string {
	var failure services.StageFailure
	if !errors.As(err, &failure) {
		return err.Error()
	}
	msg := fmt.Sprintf("stage %s failed: %s", failure.StageName(), failure.FailureReason())
	if cause := errors.Unwrap(failure); cause != nil && cause.Error() != failure.FailureReason() {
		msg += "\ncause: " + cause.Error()
	}
	return msg
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"composer/internal/app"
	"composer/internal/app/catalog"
)

func newResolveCmd(opts *cliOptions) *cobra.Command {
	wait := defaultWait
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the catalog from every registered source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
				snapshot, err := resolveWithin(ctx, application, wait)
				if printErr := printSnapshot(snapshot, opts.jsonOutput); printErr != nil {
					return printErr
				}
				return err
			})
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", wait, "how long to wait for every source to settle")
	return cmd
}

func newWhichCmd(opts *cliOptions) *cobra.Command {
	wait := defaultWait
	cmd := &cobra.Command{
		Use:   "which <content-id>",
		Short: "Show which source the resolved entry for a content id came from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
				snapshot, err := resolveWithin(ctx, application, wait)
				if err != nil {
					return err
				}
				ref, ok := snapshot.WhichSource(args[0])
				if !ok {
					return exitWith(3, fmt.Sprintf("content %q is not in the catalog", args[0]))
				}
				if opts.jsonOutput {
					return writeJSON(map[string]any{"contentId": args[0], "source": ref})
				}
				fmt.Println(ref.String())
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", wait, "how long to wait for every source to settle")
	return cmd
}

// resolveWithin waits up to wait for readiness. A timeout still returns the
// partial snapshot.
func resolveWithin(ctx context.Context, application *app.Application, wait time.Duration) (catalog.Snapshot, error) {
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	snapshot, err := application.Resolve(waitCtx)
	if errors.Is(err, context.DeadlineExceeded) {
		return snapshot, exitWith(6, fmt.Sprintf("catalog not ready after %s: %d sources pending", wait, snapshot.PendingSources()))
	}
	return snapshot, err
}

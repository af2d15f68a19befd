package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"composer/internal/app"
)

type planArgs struct {
	profileID string
	wait      time.Duration
	record    bool
}

func newPlanCmd(opts *cliOptions) *cobra.Command {
	args := planArgs{wait: defaultWait}
	cmd := &cobra.Command{
		Use:   "plan [content-id...]",
		Short: "Plan installing resolved content into a profile",
		Long:  "Plan installing the resolved entries for the given content ids, or the whole catalog when none are given.",
		RunE: func(cmd *cobra.Command, contentIDs []string) error {
			if strings.TrimSpace(args.profileID) == "" {
				return errors.New("--profile is required")
			}
			return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
				snapshot, err := resolveWithin(ctx, application, args.wait)
				if err != nil {
					return err
				}
				plan, err := application.PlanInstallation(ctx, args.profileID, snapshot, contentIDs)
				if err != nil {
					return err
				}
				if args.record && !plan.IsNoop() {
					if err := application.RecordInstalled(ctx, args.profileID, plan); err != nil {
						return err
					}
				}
				return printPlan(plan, opts.jsonOutput)
			})
		},
	}
	cmd.Flags().StringVar(&args.profileID, "profile", "", "profile id")
	cmd.Flags().DurationVar(&args.wait, "wait", args.wait, "how long to wait for every source to settle")
	cmd.Flags().BoolVar(&args.record, "record", false, "record the planned entries as installed")
	return cmd
}

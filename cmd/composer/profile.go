package main

import (
	"context"

	"github.com/spf13/cobra"

	"composer/internal/app"
	"composer/internal/domain"
)

func newProfileCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage install profiles",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List profiles",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
					profiles, err := application.ListProfiles(ctx)
					if err != nil {
						return err
					}
					return printProfiles(profiles, opts.jsonOutput)
				})
			},
		},
		newProfileAddCmd(opts),
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a profile and its installed records",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
					if err := application.RemoveProfile(ctx, args[0]); err != nil {
						return err
					}
					return printRemoved("profile", args[0], opts.jsonOutput)
				})
			},
		},
	)
	return cmd
}

func newProfileAddCmd(opts *cliOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Register a directory to install content into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
				profile, err := application.AddProfile(ctx, name, args[0])
				if err != nil {
					return err
				}
				return printProfiles([]domain.Profile{profile}, opts.jsonOutput)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the directory name)")
	return cmd
}

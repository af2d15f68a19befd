package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"composer/internal/app"
	"composer/internal/domain"
	"composer/internal/infra/fetch"
)

func newSourcesCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List registered registries and manifests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
				var registries, manifests []app.Source
				group, groupCtx := errgroup.WithContext(ctx)
				group.Go(func() error {
					var err error
					registries, err = application.ListRegistries(groupCtx)
					return err
				})
				group.Go(func() error {
					var err error
					manifests, err = application.ListManifests(groupCtx)
					return err
				})
				if err := group.Wait(); err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(map[string]any{"registries": registries, "manifests": manifests})
				}
				if err := printSources("registries", registries, false); err != nil {
					return err
				}
				return printSources("manifests", manifests, false)
			})
		},
	}
}

func newRegistryCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage registries",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List registries",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
					sources, err := application.ListRegistries(ctx)
					if err != nil {
						return err
					}
					return printSources("registries", sources, opts.jsonOutput)
				})
			},
		},
		&cobra.Command{
			Use:   "add <url>",
			Short: "Fetch a registry and register it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
					source, payload, err := application.AddRegistry(ctx, args[0])
					if err != nil {
						return err
					}
					return printSourceAdded(source, payload.Contents, opts.jsonOutput)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Unregister a registry",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
					if err := application.RemoveRegistry(ctx, args[0]); err != nil {
						return err
					}
					return printRemoved("registry", args[0], opts.jsonOutput)
				})
			},
		},
	)
	return cmd
}

func newManifestCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Manage manifests",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List manifests",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
					sources, err := application.ListManifests(ctx)
					if err != nil {
						return err
					}
					return printSources("manifests", sources, opts.jsonOutput)
				})
			},
		},
		&cobra.Command{
			Use:   "add <url>",
			Short: "Fetch a remote manifest and register it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
					source, entry, err := application.AddManifestURL(ctx, args[0])
					if err != nil {
						return err
					}
					return printSourceAdded(source, []domain.ContentEntry{entry}, opts.jsonOutput)
				})
			},
		},
		newManifestAddLocalCmd(opts),
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Unregister a manifest",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
					if err := application.RemoveManifest(ctx, args[0]); err != nil {
						return err
					}
					return printRemoved("manifest", args[0], opts.jsonOutput)
				})
			},
		},
	)
	return cmd
}

func newManifestAddLocalCmd(opts *cliOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "add-local <file|->",
		Short: "Copy a manifest file into the manifests directory and register it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, detected, err := readManifestInput(cmd.InOrStdin(), args[0], format)
			if err != nil {
				return err
			}
			return withApplication(cmd.Context(), opts, func(ctx context.Context, application *app.Application) error {
				source, entry, err := application.AddManifestLocal(ctx, body, detected)
				if err != nil {
					return err
				}
				return printSourceAdded(source, []domain.ContentEntry{entry}, opts.jsonOutput)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "document format (json, yaml, toml); detected from the file extension by default")
	return cmd
}

func readManifestInput(stdin io.Reader, path, format string) ([]byte, fetch.Format, error) {
	detected := fetch.Format(format)
	if format == "" {
		if path == "-" {
			detected = fetch.FormatYAML
		} else if byExt, ok := fetch.FormatFromExt(filepath.Ext(path)); ok {
			detected = byExt
		} else {
			return nil, "", exitWith(2, fmt.Sprintf("cannot detect the format of %s; pass --format", path))
		}
	}
	switch detected {
	case fetch.FormatJSON, fetch.FormatYAML, fetch.FormatTOML:
	default:
		return nil, "", exitWith(2, fmt.Sprintf("unsupported format %q", format))
	}

	var body []byte
	var err error
	if path == "-" {
		body, err = io.ReadAll(stdin)
	} else {
		body, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read manifest: %w", err)
	}
	return body, detected, nil
}

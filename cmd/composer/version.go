package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"composer/internal/domain"
)

func newVersionCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if opts.jsonOutput {
				return writeJSON(map[string]string{
					"version": domain.AppVersion,
					"build":   domain.Build,
					"go":      runtime.Version(),
				})
			}
			fmt.Printf("composer %s (%s, %s)\n", domain.AppVersion, domain.Build, runtime.Version())
			return nil
		},
	}
}

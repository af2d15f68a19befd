package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"composer/internal/domain"
)

type compareArgs struct {
	numberA uint64
	numberB uint64
}

func newCompareCmd(opts *cliOptions) *cobra.Command {
	args := compareArgs{}
	cmd := &cobra.Command{
		Use:   "compare <version-a> <version-b>",
		Short: "Compare two versions the way the catalog orders entries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, versions []string) error {
			a := domain.ContentEntry{Version: versions[0]}
			b := domain.ContentEntry{Version: versions[1]}
			if cmd.Flags().Changed("number-a") {
				a.VersionNumber = domain.VersionNumberOf(args.numberA)
			}
			if cmd.Flags().Changed("number-b") {
				b.VersionNumber = domain.VersionNumberOf(args.numberB)
			}
			order, err := domain.CompareVersions(a, b)
			if err != nil {
				return domain.Wrap(domain.CodeInvalidArgument, "compare", err)
			}
			if opts.jsonOutput {
				return writeJSON(map[string]any{"a": a, "b": b, "order": order})
			}
			fmt.Printf("%s %s %s\n", formatVersion(a), relation(order), formatVersion(b))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&args.numberA, "number-a", 0, "version_number of the first version")
	cmd.Flags().Uint64Var(&args.numberB, "number-b", 0, "version_number of the second version")
	return cmd
}

func relation(order int) string {
	switch {
	case order < 0:
		return "<"
	case order > 0:
		return ">"
	default:
		return "="
	}
}

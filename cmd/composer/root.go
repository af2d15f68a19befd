package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"composer/internal/app"
	"composer/internal/domain"
	"composer/internal/infra/config"
)

const defaultWait = domain.DefaultResolveWaitSeconds * time.Second

type cliOptions struct {
	configPath string
	logLevel   string
	jsonOutput bool
	logger     *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		logger: zap.NewNop(),
	}

	root := &cobra.Command{
		Use:           "composer",
		Short:         "Resolve, inspect and plan content from registries and manifests",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			applyRootFlagBindings(cmd, &opts)
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default "+config.DefaultConfigPath()+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")

	root.AddCommand(
		newResolveCmd(&opts),
		newWhichCmd(&opts),
		newSourcesCmd(&opts),
		newRegistryCmd(&opts),
		newManifestCmd(&opts),
		newProfileCmd(&opts),
		newPlanCmd(&opts),
		newServeCmd(&opts),
		newCompareCmd(&opts),
		newVersionCmd(&opts),
	)

	return root
}

func applyRootFlagBindings(cmd *cobra.Command, opts *cliOptions) {
	flags := cmd.Flags()
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "config":
			opts.configPath, _ = flags.GetString("config")
		case "log-level":
			opts.logLevel, _ = flags.GetString("log-level")
		case "json":
			opts.jsonOutput, _ = flags.GetBool("json")
		}
	})
}

// withApplication loads the configuration, wires the application and runs fn
// with it. The application is torn down when fn returns.
func withApplication(ctx context.Context, opts *cliOptions, fn func(context.Context, *app.Application) error) error {
	cfg, err := config.NewLoader(opts.logger).Load(ctx, opts.configPath)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, _, err := app.BuildLogger(level)
	if err != nil {
		return exitWith(2, err.Error())
	}
	opts.logger = logger

	application, cleanup, err := app.InitializeApplication(ctx, cfg, app.LoggingConfig{Logger: logger})
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(ctx, application)
}

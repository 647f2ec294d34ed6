package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dbexport/internal/config"
	"github.com/JonMunkholm/dbexport/internal/core"
	"github.com/JonMunkholm/dbexport/internal/logging"
	"github.com/JonMunkholm/dbexport/internal/pipeline"
)

type rootOptions struct {
	envFile   string
	inventory string
	purchases string
	outputDir string
}

// app is populated by the root pre-run hook for every subcommand.
type app struct {
	cfg  *config.Config
	orch *pipeline.Orchestrator
}

func newRootCmd() *cobra.Command {
	var opts rootOptions
	a := &app{}

	root := &cobra.Command{
		Use:           "dbexport",
		Short:         "Build the inventory SQLite database and publish it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Env file to load (default: .env)")
	root.PersistentFlags().StringVar(&opts.inventory, "inventory", "", "Inventory .csv.gz (overrides INV_GZ)")
	root.PersistentFlags().StringVar(&opts.purchases, "purchases", "", "Purchases .csv.gz (overrides COM_GZ)")
	root.PersistentFlags().StringVar(&opts.outputDir, "output-dir", "", "Output directory (overrides OUTPUT_DIR)")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Build, package and publish (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.run(cmd)
			},
		},
		&cobra.Command{
			Use:   "build",
			Short: "Build and package locally without publishing",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := a.orch.Prepare(cmd.Context())
				if err != nil {
					return err
				}
				logResult(cmd, res)
				return nil
			},
		},
		&cobra.Command{
			Use:   "publish <file> [remote-name]",
			Short: "Publish one file atomically to the FTPS directory",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var name string
				if len(args) == 2 {
					name = args[1]
				}
				return a.orch.PublishFile(cmd.Context(), args[0], name)
			},
		},
		&cobra.Command{
			Use:   "fetch <remote-path> <local-path>",
			Short: "Download one file from the FTPS server",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.orch.FetchFile(cmd.Context(), args[0], args[1])
			},
		},
	)

	return root
}

// setup loads the environment and configuration, installs logging and tags
// the command context with a fresh run ID.
func (a *app) setup(cmd *cobra.Command, opts rootOptions) error {
	var envErr error
	if opts.envFile != "" {
		envErr = godotenv.Overload(opts.envFile)
	} else {
		envErr = godotenv.Overload()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.inventory != "" {
		cfg.Sources.InventoryPath = opts.inventory
	}
	if opts.purchases != "" {
		cfg.Sources.PurchasesPath = opts.purchases
	}
	if opts.outputDir != "" {
		cfg.Build.OutputDir = opts.outputDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil {
		if opts.envFile != "" {
			return fmt.Errorf("config load: %w", envErr)
		}
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded env file (overwriting existing env vars)")
	}

	ctx := logging.WithRunID(cmd.Context(), uuid.New().String())
	cmd.SetContext(ctx)

	logging.FromContext(ctx).Info("configuration loaded",
		"command", cmd.Name(),
		"config", cfg.String(),
		"sources", sourceKeys(),
	)

	a.cfg = cfg
	a.orch = pipeline.New(cfg)
	return nil
}

func (a *app) run(cmd *cobra.Command) error {
	res, err := a.orch.Run(cmd.Context())
	if err != nil {
		return err
	}
	logResult(cmd, res)
	return nil
}

func logResult(cmd *cobra.Command, res *pipeline.Result) {
	logging.FromContext(cmd.Context()).Info("result",
		"inv_rows", res.Counts.Inventory,
		"stock_rows", res.Counts.Stock,
		"com_rows", res.Counts.Purchases,
		"artifact", res.ArtifactPath,
		"bytes", res.ArtifactBytes,
		"sha256", res.SHA256,
		"duration", res.Duration,
	)
}

func sourceKeys() []string {
	defs := core.All()
	keys := make([]string, len(defs))
	for i, def := range defs {
		keys[i] = def.Info.Key
	}
	return keys
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qepting91/idea-collector/internal/config"
	"github.com/qepting91/idea-collector/internal/ingest"
	"github.com/qepting91/idea-collector/internal/logger"
	"github.com/qepting91/idea-collector/internal/version"
)

// app carries the state shared by every subcommand.
type app struct {
	cfg    *config.Config
	log    logger.Logger
	outDir string // --out-dir override
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: config.Load()}

	root := &cobra.Command{
		Use:   "collector",
		Short: "Collect posts and videos matching search terms",
		Long: `collector queries Reddit and YouTube for every configured search term and
writes the normalized results of the run to a timestamped JSON file.

Sources, search terms and run options come from the YAML config file;
credentials come from the environment or a .env file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := ingest.LoadEnvFile(a.cfg.EnvFile); err != nil {
				return err
			}
			if a.log == nil {
				a.log = logger.New(a.cfg.LogLevel, a.cfg.PrettyLog)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.collect(cmd.Context(), cmd.OutOrStdout())
			return err
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.ConfigFile, "config", a.cfg.ConfigFile, "path to the YAML config file")
	flags.StringVar(&a.cfg.EnvFile, "env-file", a.cfg.EnvFile, "optional .env file with credentials")
	flags.StringVar(&a.outDir, "out-dir", "", "override run.out_dir from the config file")

	root.AddCommand(a.serveCmd(), a.historyCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "collector %s (commit: %s, built: %s, %s)\n",
				version.Version, version.Commit, version.BuildDate, version.GoVersion)
		},
	}
}

// runSettings reads the run section and applies command-line overrides.
func (a *app) runSettings() (ingest.RunSettings, error) {
	run, err := ingest.NewProvider(a.cfg.ConfigFile).LoadRun()
	if err != nil {
		return run, err
	}
	if a.outDir != "" {
		run.OutDir = a.outDir
	}
	return run, nil
}

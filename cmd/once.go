package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/fileclaim/internal/config"
	"github.com/conneroisu/fileclaim/internal/services"
)

var onceVerbose bool

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single poll cycle",
	Long: `Run one poll cycle against the configured directory and print the path of
every claimed file. All locks are released before the command exits.

The command fails if the directory could not be listed.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindSourceFlags(cmd.Flags())
	},
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(onceCmd)
	addSourceFlags(onceCmd)
	onceCmd.Flags().BoolVarP(&onceVerbose, "verbose", "v", false, "Print a summary of the cycle")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	service := services.NewPollService(cfg, services.Deps{Logger: logger, Out: cmd.OutOrStdout()})
	report, err := service.RunOnce(cmd.Context())
	if err != nil {
		return err
	}

	if onceVerbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "listed %d, accepted %d, emitted %d, contended %d, failed %d in %s\n",
			report.Listed, report.Accepted, len(report.Emitted), len(report.Contended), len(report.Failed),
			report.Duration)
	}
	return nil
}

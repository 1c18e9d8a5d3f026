package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/fileclaim/internal/config"
	"github.com/conneroisu/fileclaim/internal/services"
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Claim and process files until interrupted",
	Long: `Poll the configured directory on every trigger tick, claim each accepted
file and hand it to the configured consumer. I/O failures and contention are
logged and retried on later cycles; only configuration errors stop the poller.

On SIGINT or SIGTERM the poller finishes the cycle in flight, waits for
pending work, releases every lock it holds and exits.

Examples:
  fileclaim poll --dir ./inbox
  fileclaim poll --dir ./inbox --trigger watch --exec gzip,{}
  fileclaim poll --dir ./inbox --trigger cron --cron "*/5 * * * *"`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindSourceFlags(cmd.Flags())
	},
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	addSourceFlags(pollCmd)
}

func runPoll(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := services.NewPollService(cfg, services.Deps{Logger: logger, Out: cmd.OutOrStdout()})
	_, err = service.Run(ctx)
	return err
}

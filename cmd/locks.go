package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conneroisu/fileclaim/internal/config"
	"github.com/conneroisu/fileclaim/internal/services"
)

var (
	locksBreak   bool
	locksOrphans bool
)

var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "List or break marker lock artifacts",
	Long: `List the lock artifacts the marker locker has left in the configured
directory, with the owner token and process id recorded in each.

--break removes them. Only do this for pollers that are no longer running:
breaking a live lock lets a second poller claim the same file. --orphans
limits both listing and breaking to artifacts whose file no longer exists.`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindSourceFlags(cmd.Flags())
	},
	RunE: runLocks,
}

func init() {
	rootCmd.AddCommand(locksCmd)
	locksCmd.Flags().StringP("dir", "d", "", "Directory to inspect")
	locksCmd.Flags().BoolVar(&locksBreak, "break", false, "Remove the listed artifacts")
	locksCmd.Flags().BoolVar(&locksOrphans, "orphans", false, "Only artifacts whose file is gone")
}

func runLocks(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	service, err := services.NewLocksService(cfg, afero.NewOsFs(), nil)
	if err != nil {
		return err
	}

	if locksBreak {
		freed, err := service.Break(cmd.Context(), services.BreakOptions{OrphansOnly: locksOrphans})
		for _, path := range freed {
			fmt.Fprintf(cmd.OutOrStdout(), "released %s\n", path)
		}
		return err
	}

	artifacts, err := service.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tOWNER\tPID\tORPHAN")
	for _, a := range artifacts {
		if locksOrphans && !a.Orphan {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", a.Path, a.Owner, a.PID, a.Orphan)
	}
	return w.Flush()
}

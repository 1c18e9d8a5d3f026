package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conneroisu/fileclaim/internal/services"
)

var (
	initDir    string
	initLocker string
	initForce  bool
)

var initCmd = &cobra.Command{
	Use:   "init [project-dir]",
	Short: "Write a starter .fileclaim.yml",
	Long: `Write .fileclaim.yml with every option set to its default and create the
directory to poll.

Examples:
  fileclaim init                       # polls ./inbox
  fileclaim init --dir spool --locker nio
  fileclaim init /srv/ingest --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initDir, "dir", "d", "inbox", "Directory to poll, relative to the project")
	initCmd.Flags().StringVar(&initLocker, "locker", "", "Locker kind (marker, nio, none)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	project := "."
	if len(args) > 0 {
		project = args[0]
	}

	path, err := services.NewInitService(afero.NewOsFs()).Init(services.InitOptions{
		ProjectDir: project,
		Directory:  initDir,
		Locker:     initLocker,
		Force:      initForce,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

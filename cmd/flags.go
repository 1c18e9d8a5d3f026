package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagBinding maps a command-line flag onto a configuration key.
type flagBinding struct {
	flag string
	key  string
}

var sourceBindings = []flagBinding{
	{"dir", "source.directory"},
	{"release", "source.release"},
	{"pattern", "filter.patterns"},
	{"locker", "locker.kind"},
	{"trigger", "trigger.kind"},
	{"interval", "trigger.interval"},
	{"cron", "trigger.cron"},
	{"exec", "consumer.command"},
	{"archive", "consumer.archive_dir"},
}

// addSourceFlags adds the flags shared by commands that build a poller.
func addSourceFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("dir", "d", "", "Directory to poll")
	flags.String("release", "", "When to release locks (emit, ack)")
	flags.StringSliceP("pattern", "p", nil, "Glob patterns files must match")
	flags.String("locker", "", "Locker kind (marker, nio, none)")
	flags.String("trigger", "", "Trigger kind (interval, cron, watch)")
	flags.Duration("interval", 0, "Polling interval, or the fallback interval for watch")
	flags.String("cron", "", "Cron expression for the cron trigger")
	flags.StringSlice("exec", nil, "Command to run for each file, {} is replaced by the path")
	flags.String("archive", "", "Directory claimed files are moved to")
}

// bindSourceFlags binds the flags of the running command to viper. It runs
// in PreRunE rather than init because viper keeps only the last binding for
// a key and several commands share these keys.
func bindSourceFlags(flags *pflag.FlagSet) error {
	for _, b := range sourceBindings {
		if f := flags.Lookup(b.flag); f != nil {
			if err := viper.BindPFlag(b.key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

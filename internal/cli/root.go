// Package cli implements campusctl, the offline operator tool. It runs the
// directory filter and the availability evaluator against local files.
package cli

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute runs campusctl with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(time.Now)
}

type rootOptions struct {
	configPath string
	now        func() time.Time
}

func (o *rootOptions) settings() (*Settings, error) {
	return LoadSettings(viper.New(), o.configPath)
}

func newRootCmd(now func() time.Time) *cobra.Command {
	opts := &rootOptions{now: now}

	rootCmd := &cobra.Command{
		Use:           "campusctl",
		Short:         "Search the campus directory and check faculty availability",
		Long:          "campusctl reads the directory tables, timetable and operating rules named in campusctl.toml and answers the same questions as the web dashboard, without a server.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to campusctl.toml")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSearchCmd(opts),
		newStatusCmd(opts),
	)
	return rootCmd
}

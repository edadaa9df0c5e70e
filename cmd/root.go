package cmd

import (
	"fmt"
	"os"

	"github.com/ferama/ptyrun/pkg/logger"
	"github.com/spf13/cobra"
)

// Version is the actual ptyrun version. This value
// is set during the build process using -ldflags="-X 'github.com/ferama/ptyrun/cmd.Version=
var Version = "development"

var log = logger.NewLogger("[PTYR] ", logger.Green)

func init() {
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "if set disable all logs")
}

var rootCmd = &cobra.Command{
	Use:     "ptyrun",
	Long:    "Run programs inside pseudo terminals.",
	Version: Version,
	Args:    cobra.MinimumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
			logger.DisableLoggers()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("invalid subcommand")
		os.Exit(1)
	},
}

// fatal prints err and exits. It does not go through the loggers so --quiet
// never hides why ptyrun failed.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "ptyrun: %s\n", err)
	os.Exit(1)
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

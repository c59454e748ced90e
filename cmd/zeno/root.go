// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// exSoftware mirrors BSD sysexits.h's EX_SOFTWARE, which spec.md names
// literally as the exit code for a startup failure.
const exSoftware = 70

var (
	verbose bool
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "zeno",
	Short: "Rebuild and restart a compiled binary on source change",
	Long: titleStyle.Render("zeno") + subtitleStyle.Render(" - dev-time hot-reload supervisor") + `

zeno watches a project tree, rebuilds a compiled binary on change, and
swaps it into a long-lived supervised process without the operator
restarting anything by hand.

` + subtitleStyle.Render("Quick start:") + `
  zeno init    Create a zeno.yml in the current directory
  zeno run     Start watching, building, and supervising`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: zeno.yml or .zeno.yml in the current directory)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)
}

// Execute runs the root command and translates its error into a process
// exit code: 0 on success, the code carried by an *exitError, or
// exSoftware for any other error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), ee.Error())
			os.Exit(ee.code)
		}
		os.Exit(exSoftware)
	}
}

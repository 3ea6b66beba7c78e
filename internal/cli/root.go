// Package cli wires the command-line surface described in spec.md §6:
// `serve` starts the arbiter, `worker` is the hidden re-exec target every
// spawned worker process runs, and `ctl` sends lifecycle signals to a
// running arbiter by pidfile. Grounded on the teacher's cli.rootCmd/Execute
// (cobra + fatih/color banner), with the internal-signature access gate
// dropped entirely — this binary has no restricted-access concept.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const banner = `
   __ _ _   _ _ __ (_) ___ ___  _ __ _ __
  / _' | | | | '_ \| |/ __/ _ \| '__| '_ \
 | (_| | |_| | | | | | (_| (_) | |  | | | |
  \__, |\__,_|_| |_|_|\___\___/|_|  |_| |_|
     |_|
`

var (
	jsonOutput bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "gunicorn",
	Short:         "A pre-fork HTTP/1.1 server with a supervising arbiter",
	Long:          `Binds listener sockets once and supervises a pool of re-exec'd worker processes behind them, with liveness-checked health, graceful drain, and zero-downtime reload.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func printBanner() {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintln(os.Stderr, banner)
}

// Execute runs the root command, printing the banner once for any
// interactive invocation (but never for the hidden `worker` re-exec
// target, which writes only what the arbiter's log streamer expects).
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] != "worker" && !jsonOutput {
		printBanner()
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

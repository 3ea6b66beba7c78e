package cli

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zippy1981/gunicorn/internal/arbiter"
)

var ctlPidFile string

var ctlCmd = &cobra.Command{
	Use:   "ctl",
	Short: "Send a lifecycle signal to a running arbiter by pidfile",
}

// ctlSignal defines one `ctl` subcommand as a pidfile lookup plus the
// signal sigqueue.ArbiterAction maps to that lifecycle action. The signals
// are written out by hand where the subcommands are registered, matching
// internal/sigqueue/action.go's table; nothing derives one from the other.
func ctlSignal(use, short string, sig syscall.Signal) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := arbiter.ReadPidfile(ctlPidFile)
			if err != nil {
				return fmt.Errorf("ctl: %w", err)
			}
			proc, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("ctl: %w", err)
			}
			if err := proc.Signal(sig); err != nil {
				return fmt.Errorf("ctl: signal pid %d: %w", pid, err)
			}
			return nil
		},
	}
}

func init() {
	ctlCmd.PersistentFlags().StringVar(&ctlPidFile, "pid", "", "Pidfile written by a running `serve` (required)")
	_ = ctlCmd.MarkPersistentFlagRequired("pid")

	ctlCmd.AddCommand(ctlSignal("reload", "Soft-reload the worker pool", syscall.SIGHUP))
	ctlCmd.AddCommand(ctlSignal("exec-reload", "Re-exec the arbiter in place", syscall.SIGUSR2))
	ctlCmd.AddCommand(ctlSignal("stop", "Gracefully stop (drain workers then halt)", syscall.SIGQUIT))
	ctlCmd.AddCommand(ctlSignal("kill", "Immediately stop (no drain)", syscall.SIGTERM))
	ctlCmd.AddCommand(ctlSignal("scale-up", "Add one worker", syscall.SIGTTIN))
	ctlCmd.AddCommand(ctlSignal("scale-down", "Remove one worker", syscall.SIGTTOU))
	ctlCmd.AddCommand(ctlSignal("reopen-logs", "Reopen log file descriptors", syscall.SIGUSR1))

	rootCmd.AddCommand(ctlCmd)
}

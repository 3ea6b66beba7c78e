package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zippy1981/gunicorn/internal/app"
	"github.com/zippy1981/gunicorn/internal/config"
	"github.com/zippy1981/gunicorn/internal/worker"
)

// workerCmd is the hidden re-exec target internal/arbiter/spawn.go invokes
// (exe, "worker"). It is never meant to be typed by a human: the arbiter
// sets every environment variable this needs before exec'ing it.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		snap, err := config.UnmarshalEnv(os.Getenv(config.EnvConfigJSON))
		if err != nil {
			fmt.Fprintf(os.Stderr, "worker: %v\n", err)
			os.Exit(1)
		}

		w, err := worker.FromEnvironment(snap, resolveApp(snap))
		if err != nil {
			fmt.Fprintf(os.Stderr, "worker: %v\n", err)
			os.Exit(1)
		}
		os.Exit(w.Run())
	},
}

// resolveApp picks the application callable for this worker. Only the
// built-in echo handler (app.Echo) ships with this binary; loading an
// out-of-process application callable is explicitly out of scope (see
// the DESIGN.md entry on spec.md's application-callable Non-goal).
func resolveApp(snap config.Snapshot) app.Handler {
	return app.Echo
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

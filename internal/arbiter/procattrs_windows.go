//go:build windows

package arbiter

import (
	"os/exec"
	"syscall"

	"github.com/zippy1981/gunicorn/internal/config"
)

func applyWorkerProcAttrs(cmd *exec.Cmd, snap config.Snapshot) (restore func()) {
	// Process groups and rlimits are POSIX concepts; Windows job objects
	// would be the idiomatic equivalent but need additional Win32 calls
	// beyond golang.org/x/sys/windows's signal-adjacent surface, left out
	// like the teacher left its own Windows worker-limiting path out.
	return func() {}
}

func setWorkerPriority(pid int, priority int) {}

func sendGracefulSignal(pid int, sig syscall.Signal) error {
	return nil
}

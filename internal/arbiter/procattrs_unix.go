//go:build !windows

package arbiter

import (
	"os/exec"
	"syscall"

	"github.com/zippy1981/gunicorn/internal/config"
)

// applyWorkerProcAttrs puts every worker in its own process group (so a
// signal to the arbiter's group does not also reach workers directly, and
// so the arbiter can signal a worker's whole group if it ever forks
// further) and, if a file descriptor ceiling is configured, arranges for
// the about-to-be-spawned child alone to inherit it.
//
// setrlimit(2) has no "target pid" form: it always mutates the calling
// process, which here is the arbiter itself, not the child exec.Cmd is
// about to start. cluster.applyOSSpecificSettings (the code this was
// originally adapted from) called Setrlimit directly on the caller and
// never restored it, which permanently lowers the arbiter's own fd
// ceiling — including its listeners, admin server, and control socket —
// on every worker spawn. Instead, lower the caller's rlimit only for the
// instant between here and Start(): a forked child's rlimit is fixed at
// fork time, so the caller's original limit can be restored immediately
// after Start() returns without affecting the child that already
// inherited the lowered one. The returned restore func must be called
// exactly once, right after cmd.Start() returns (success or not).
func applyWorkerProcAttrs(cmd *exec.Cmd, snap config.Snapshot) (restore func()) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	noop := func() {}
	if snap.FileDescriptorMax == 0 {
		return noop
	}

	var original syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &original); err != nil {
		return noop
	}
	limited := syscall.Rlimit{Cur: snap.FileDescriptorMax, Max: snap.FileDescriptorMax}
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &limited); err != nil {
		return noop
	}
	return func() {
		_ = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &original)
	}
}

func setWorkerPriority(pid int, priority int) {
	if priority != 0 {
		_ = syscall.Setpriority(syscall.PRIO_PROCESS, pid, priority)
	}
}

func sendGracefulSignal(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}

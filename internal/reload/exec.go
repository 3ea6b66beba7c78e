//go:build !windows

// Package reload implements the two reload paths spec.md §4.5 describes:
// a soft reload, which is handled entirely inside internal/arbiter by
// spawning replacement workers, and an exec reload, which replaces the
// arbiter's own process image in place — implemented here since it needs
// nothing arbiter-specific beyond the listener set.
package reload

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/zippy1981/gunicorn/internal/listener"
)

// Exec re-execs the current binary with set's descriptors preserved across
// the inherited-listener protocol (internal/listener.Set.ExecEnv), so the
// successor process picks up exactly where this one left off without ever
// closing a listening socket (spec.md §4.5 "exec reload must not drop any
// already-bound listener"). On success this call never returns: syscall.Exec
// replaces the process image outright, which is the only way to swap a
// running Go binary for a new one without forking (Go cannot safely
// fork(2) a multi-threaded runtime, so unlike the original's os.fork+exec
// this goes straight to execve).
func Exec(set *listener.Set) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("reload: resolve executable: %w", err)
	}

	env, files, err := set.ExecEnv(os.Environ())
	if err != nil {
		return fmt.Errorf("reload: listener exec env: %w", err)
	}

	// syscall.Exec keeps the calling process's fd table as-is (no
	// ExtraFiles remapping like exec.Cmd does), so the inherited listeners
	// must already sit at fd 3.. contiguously, which set.ExecEnv's fd
	// numbering assumes by construction.
	if err := remapToSequentialFds(files); err != nil {
		return fmt.Errorf("reload: remap listener fds: %w", err)
	}

	argv := append([]string{exe}, os.Args[1:]...)
	return syscall.Exec(exe, argv, env)
}

// remapToSequentialFds dup2s each listener file onto fd 3, 4, 5... so the
// raw syscall.Exec (which does not take an ExtraFiles-style remap table)
// hands the successor process exactly the descriptor numbers its
// GUNICORN_LISTEN_FDS env var promises.
func remapToSequentialFds(files []*os.File) error {
	for i, f := range files {
		target := int(3 + i)
		if int(f.Fd()) != target {
			if err := unix.Dup2(int(f.Fd()), target); err != nil {
				return fmt.Errorf("dup2 fd %d -> %d: %w", f.Fd(), target, err)
			}
		}
		// execve closes FD_CLOEXEC descriptors. A dup2 target starts
		// without the flag, but a file already sitting at its target fd
		// keeps whatever it had, so clear it on every target.
		_, _ = unix.FcntlInt(uintptr(target), unix.F_SETFD, 0)
	}
	return nil
}

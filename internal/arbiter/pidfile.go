package arbiter

import (
	"fmt"
	"os"
)

// writePidfile records the arbiter's own pid, atomically, so a concurrent
// `ctl` invocation can find it (spec.md §6 "--pid"). A no-op if path is
// empty.
func writePidfile(path string) error {
	if path == "" {
		return nil
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("pidfile: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("pidfile: rename to %s: %w", path, err)
	}
	return nil
}

func removePidfile(path string) {
	if path == "" {
		return
	}
	_ = os.Remove(path)
}

// ReadPidfile returns the pid recorded at path, for ctl subcommands that
// signal a running arbiter.
func ReadPidfile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("pidfile %s: malformed: %w", path, err)
	}
	return pid, nil
}

package listener

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// EnvListenFDs is the environment variable an arbiter sets before execve
// to enumerate the inherited listener descriptors (spec.md §6
// "Inherited-listener protocol for exec reload"). Descriptors are
// comma-separated, 0-indexed starting immediately after stderr (fd 3),
// matching the convention also used for worker re-exec.
const EnvListenFDs = "GUNICORN_LISTEN_FDS"

// EnvListenAddrs carries the matching bind address for each inherited fd,
// in the same order, so the new process can label listeners without
// re-parsing --bind.
const EnvListenAddrs = "GUNICORN_LISTEN_ADDRS"

// Inherit checks the environment for a previously exported fd set and, if
// present, adopts it instead of binding fresh. ok is false when the
// environment variables are absent (the normal INIT->RUNNING path).
func Inherit() (set *Set, ok bool, err error) {
	fdList := os.Getenv(EnvListenFDs)
	if fdList == "" {
		return nil, false, nil
	}
	addrList := os.Getenv(EnvListenAddrs)
	fdStrs := strings.Split(fdList, ",")
	addrs := strings.Split(addrList, ",")
	if addrList == "" || len(addrs) != len(fdStrs) {
		return nil, false, fmt.Errorf("%s/%s: mismatched entry count", EnvListenFDs, EnvListenAddrs)
	}

	set = &Set{}
	for i, s := range fdStrs {
		fd, perr := strconv.Atoi(strings.TrimSpace(s))
		if perr != nil {
			return nil, false, fmt.Errorf("%s: invalid fd %q: %w", EnvListenFDs, s, perr)
		}
		f := os.NewFile(uintptr(fd), addrs[i])
		ln, lerr := net.FileListener(f)
		if lerr != nil {
			return nil, false, fmt.Errorf("%s: fd %d: %w", EnvListenFDs, fd, lerr)
		}
		set.Listeners = append(set.Listeners, &Listener{Addr: addrs[i], Listener: ln, file: f})
	}
	return set, true, nil
}

// ExecEnv returns the environment (based on os.Environ, with any stale
// LISTEN_FDS/LISTEN_ADDRS stripped and replaced) plus the ordered ExtraFiles
// slice a caller should pass to exec.Cmd so the child inherits this set's
// descriptors starting at fd 3 (0, 1, 2 are already stdin/stdout/stderr).
func (s *Set) ExecEnv(base []string) ([]string, []*os.File, error) {
	files, err := s.Files()
	if err != nil {
		return nil, nil, err
	}

	fdNums := make([]string, len(files))
	for i := range files {
		fdNums[i] = strconv.Itoa(3 + i)
	}

	env := make([]string, 0, len(base)+2)
	for _, kv := range base {
		if strings.HasPrefix(kv, EnvListenFDs+"=") || strings.HasPrefix(kv, EnvListenAddrs+"=") {
			continue
		}
		env = append(env, kv)
	}
	env = append(env,
		EnvListenFDs+"="+strings.Join(fdNums, ","),
		EnvListenAddrs+"="+strings.Join(s.Addrs(), ","),
	)
	return env, files, nil
}

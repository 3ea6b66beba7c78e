// Package listener owns the bound, listening sockets the arbiter creates
// once and every worker generation shares (spec.md §3 "Listener",
// §4.6 "Graceful listener handoff across exec"). A Listener wraps either a
// TCP or a Unix-domain *os.File-backed net.Listener so its file descriptor
// can be handed to worker processes across exec.
package listener

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// Listener pairs a bound net.Listener with the *os.File view of its
// descriptor needed to pass it across exec (ExtraFiles clears FD_CLOEXEC
// on the duplicated fd it creates, which is exactly the "inherited-listener
// protocol" spec.md §6 describes).
type Listener struct {
	Addr string // as given on the CLI: "host:port" or "unix:/path"
	net.Listener
	file *os.File
}

// File returns the *os.File view of the listening socket, suitable for
// ExtraFiles. It is computed once and cached, mirroring net.Listener.File's
// own behavior of duplicating the descriptor.
func (l *Listener) File() (*os.File, error) {
	if l.file != nil {
		return l.file, nil
	}
	type filer interface {
		File() (*os.File, error)
	}
	f, ok := l.Listener.(filer)
	if !ok {
		return nil, fmt.Errorf("listener %s: does not support File()", l.Addr)
	}
	file, err := f.File()
	if err != nil {
		return nil, fmt.Errorf("listener %s: %w", l.Addr, err)
	}
	l.file = file
	return file, nil
}

// Set is an ordered collection of bound listeners, one per --bind address.
type Set struct {
	Listeners []*Listener
}

// Bind creates a fresh Set by binding every address in addrs. Each address
// is either "host:port", ":port" (port 0 means "let the kernel choose"), or
// "unix:/path/to/socket".
func Bind(addrs []string) (*Set, error) {
	set := &Set{}
	for _, addr := range addrs {
		l, err := bindOne(addr)
		if err != nil {
			set.Close()
			return nil, err
		}
		set.Listeners = append(set.Listeners, l)
	}
	return set, nil
}

func bindOne(addr string) (*Listener, error) {
	if path, ok := strings.CutPrefix(addr, "unix:"); ok {
		_ = os.Remove(path)
		ln, err := net.Listen("unix", path)
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", addr, err)
		}
		return &Listener{Addr: addr, Listener: ln}, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	return &Listener{Addr: resolvedAddr(addr, ln), Listener: ln}, nil
}

// resolvedAddr rewrites a ":0"-style address to the port the kernel chose,
// so that a later reload (which re-reads the CLI-level config) keeps using
// the same concrete port (spec.md §8 "Bind to port 0").
func resolvedAddr(want string, ln net.Listener) string {
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		host, _, err := net.SplitHostPort(want)
		if err != nil {
			host = tcpAddr.IP.String()
		}
		return fmt.Sprintf("%s:%d", host, tcpAddr.Port)
	}
	return want
}

// Close closes every listener in the set. Errors are collected but do not
// stop the remaining closes.
func (s *Set) Close() error {
	var firstErr error
	for _, l := range s.Listeners {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Files returns the *os.File view of every listener, in order, for passing
// to a child process's ExtraFiles.
func (s *Set) Files() ([]*os.File, error) {
	files := make([]*os.File, 0, len(s.Listeners))
	for _, l := range s.Listeners {
		f, err := l.File()
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// Addrs returns the bind address string of each listener, in order.
func (s *Set) Addrs() []string {
	addrs := make([]string, len(s.Listeners))
	for i, l := range s.Listeners {
		addrs[i] = l.Addr
	}
	return addrs
}

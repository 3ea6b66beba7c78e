// Package liveness implements the shared, per-worker liveness counter
// (spec.md §3 "Liveness counter", §4.4). A worker writes a monotonically
// non-decreasing value on every heartbeat; the arbiter observes it without
// taking a lock and derives "seconds since last change" from it. Two
// backends satisfy the same contract (spec.md §9 "per-platform capability
// detection at startup"):
//
//   - Mmap mode: an anonymous shared page created via memfd_create(2) and
//     handed to the worker across exec through ExtraFiles. Both sides mmap
//     the same physical page; the worker does an atomic add, the arbiter
//     does an atomic load. Linux only.
//   - File mode: a temp file whose mtime the worker advances on every
//     heartbeat (the "worker-tmp heartbeat mechanism" spec.md §1 calls out
//     as in scope) and the arbiter stats. Works everywhere.
//
// Neither mode requires more than a memory write or a single syscall on the
// worker's fast path, per spec.md §4.4.
package liveness

import (
	"fmt"
	"os"
	"time"
)

// Mode selects the backend.
type Mode int

const (
	ModeMmap Mode = iota
	ModeFile
)

func (m Mode) String() string {
	if m == ModeMmap {
		return "mmap"
	}
	return "file"
}

// DetectMode picks the best backend available on this platform. mmapSupported
// is a build-time constant: true on Linux, false elsewhere (see mmap_other.go).
func DetectMode() Mode {
	if mmapSupported {
		return ModeMmap
	}
	return ModeFile
}

// Env variables a worker reads at startup to learn how its half of the
// counter was set up.
const (
	EnvMode     = "GUNICORN_LIVENESS_MODE"
	EnvMmapFD   = "GUNICORN_LIVENESS_FD"
	EnvFilePath = "GUNICORN_LIVENESS_PATH"
)

// Source is read by the arbiter. Read returns a value that strictly
// increases across heartbeats; the arbiter never interprets the value
// itself, only whether it changed (see Tracker).
type Source interface {
	Read() (int64, error)
	Close() error
}

// Sink is written by the worker.
type Sink interface {
	Notify() error
	Close() error
}

// Prepared is what the arbiter builds before spawning a worker: an
// arbiter-side Source, the file (if any) to add to the child's ExtraFiles,
// and the environment variables that let the new process find its Sink.
type Prepared struct {
	Source   Source
	ExtraFile *os.File // nil in file mode
	Env      []string
}

// Prepare sets up one worker's liveness channel under the given mode.
// tmpDir is used for file mode's backing temp file; workerID only affects
// the temp file's name.
func Prepare(mode Mode, tmpDir string, workerID int) (*Prepared, error) {
	switch mode {
	case ModeMmap:
		return prepareMmap(workerID)
	case ModeFile:
		return prepareFile(tmpDir, workerID)
	default:
		return nil, fmt.Errorf("liveness: unknown mode %v", mode)
	}
}

// OpenSink is called inside the (re-exec'd) worker process. It reads the
// environment Prepare's caller set via Prepared.Env and returns the Sink the
// worker's heartbeat loop should call Notify on.
func OpenSink() (Sink, error) {
	switch os.Getenv(EnvMode) {
	case ModeMmap.String():
		return openMmapSink()
	case ModeFile.String():
		return openFileSink()
	default:
		return nil, fmt.Errorf("liveness: %s not set in worker environment", EnvMode)
	}
}

// Tracker turns a Source's raw, strictly-increasing values into the
// "seconds since last change" age the arbiter's health check needs
// (spec.md §3 invariant: "worker whose counter has not advanced for >
// timeout seconds MUST be killed").
type Tracker struct {
	src    Source
	last   int64
	seen   bool
	at     time.Time
	clock  func() time.Time
}

// NewTracker wraps src. clock defaults to time.Now; tests may override it.
func NewTracker(src Source) *Tracker {
	return &Tracker{src: src, clock: time.Now}
}

// Poll reads the source once, updates the last-changed timestamp if the
// value moved, and returns the current age. A Read error is treated as
// "no change observed this tick" — the caller's stale-worker logic will
// eventually catch a source that is permanently broken.
func (t *Tracker) Poll() (age time.Duration, err error) {
	now := t.clock()
	v, rerr := t.src.Read()
	if rerr != nil {
		if !t.seen {
			return 0, rerr
		}
		return now.Sub(t.at), rerr
	}
	if !t.seen || v != t.last {
		t.last = v
		t.at = now
		t.seen = true
	}
	return now.Sub(t.at), nil
}

// Close releases the underlying source.
func (t *Tracker) Close() error {
	return t.src.Close()
}

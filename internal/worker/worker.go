// Package worker implements the worker-side event loop (spec.md §4.2/§4.3):
// heartbeat, accept, serve, honor signals, respect the request timeout via
// the arbiter's liveness check, and drain gracefully on shutdown. A worker
// is always a re-exec of the arbiter's own binary (see internal/arbiter),
// never a literal fork, since Go cannot safely fork a multi-threaded
// runtime — it discovers its listeners, liveness sink, and identity purely
// from the environment its parent set (internal/listener, internal/liveness).
package worker

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zippy1981/gunicorn/internal/app"
	"github.com/zippy1981/gunicorn/internal/config"
	"github.com/zippy1981/gunicorn/internal/control"
	"github.com/zippy1981/gunicorn/internal/liveness"
	"github.com/zippy1981/gunicorn/internal/listener"
)

// Env variables the arbiter sets before re-exec'ing a worker process.
const (
	EnvWorkerID  = "GUNICORN_WORKER_ID"
	EnvParentPID = "GUNICORN_PARENT_PID"
	EnvMode      = "GUNICORN_PROCESS_MODE"
	ModeWorker   = "worker"
)

// Worker is one request-serving process. It is constructed once per
// process via FromEnvironment and run to completion by Run.
type Worker struct {
	ID         int
	ParentPID  int
	Snapshot   config.Snapshot
	Listeners  []net.Listener
	Liveness   liveness.Sink
	Handler    app.Handler
	Logger     *log.Logger
	Control    *control.Client

	startedAt      time.Time
	requestsServed uint64
	stopping       bool
}

// FromEnvironment rebuilds a Worker from the environment variables and
// inherited file descriptors a parent arbiter process set up before
// re-exec'ing this binary (internal/arbiter/spawn.go is the writer side).
func FromEnvironment(snap config.Snapshot, handler app.Handler) (*Worker, error) {
	idStr := os.Getenv(EnvWorkerID)
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return nil, fmt.Errorf("worker: %s=%q: %w", EnvWorkerID, idStr, err)
	}
	parentStr := os.Getenv(EnvParentPID)
	parentPID, err := strconv.Atoi(parentStr)
	if err != nil {
		return nil, fmt.Errorf("worker: %s=%q: %w", EnvParentPID, parentStr, err)
	}

	set, ok, err := listener.Inherit()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("worker: no inherited listeners (%s unset)", listener.EnvListenFDs)
	}
	listeners := make([]net.Listener, len(set.Listeners))
	for i, l := range set.Listeners {
		listeners[i] = l
	}

	sink, err := liveness.OpenSink()
	if err != nil {
		return nil, err
	}

	return &Worker{
		ID:        id,
		ParentPID: parentPID,
		Snapshot:  snap,
		Listeners: listeners,
		Liveness:  sink,
		Handler:   handler,
		Logger:    log.New(os.Stderr, fmt.Sprintf("[worker %d] ", id), log.LstdFlags),
		Control:   control.NewClient(snap.ControlSocket, id),
		startedAt: time.Now(),
	}, nil
}

// Run dispatches to the sync or cooperative-async event loop per the
// worker class in the snapshot (spec.md §4.2, §4.3) and returns the
// process exit code the arbiter should interpret per spec.md §7.
func (w *Worker) Run() int {
	defer w.Liveness.Close()
	defer w.Control.Close()

	reseedProcessState()

	switch w.Snapshot.WorkerClass {
	case config.WorkerClassAsync:
		return w.runAsync()
	default:
		return w.runSync()
	}
}

// reseedProcessState re-initializes per-process state that must not be
// inherited verbatim from whatever spawned this binary (spec.md §4.2
// "reseed RNG, re-install signal handlers, clear any inherited pending
// signals"). Go's math/rand v2 and crypto/rand do not share OS-level seed
// state across exec the way a forked interpreter would, so the only
// remaining step that matters here is installing the worker's own signal
// set, done by installSignals in sync.go/async.go.
func reseedProcessState() {}

// isOrphaned reports whether this worker's original parent has exited —
// detected the only way available after re-exec, by raw getppid(2), since
// os.Getppid() on Linux is just a thin wrapper over the same syscall
// (spec.md §4.2 step 2, §8 property 7).
func (w *Worker) isOrphaned() bool {
	return unix.Getppid() != w.ParentPID
}

// shouldRecycle reports whether the worker has served enough requests to
// voluntarily exit and let the arbiter spawn a fresh one (spec.md §4.2
// "recycling to mitigate memory fragmentation").
func (w *Worker) shouldRecycle() bool {
	return w.Snapshot.MaxRequests > 0 && atomic.LoadUint64(&w.requestsServed) >= uint64(w.Snapshot.MaxRequests)
}

func (w *Worker) reportStats() {
	w.Control.ReportStats(control.StatsReport{
		WorkerID:       w.ID,
		PID:            os.Getpid(),
		RequestsServed: int64(atomic.LoadUint64(&w.requestsServed)),
		UptimeSeconds:  int64(time.Since(w.startedAt).Seconds()),
	})
}

func setAcceptDeadline(ln net.Listener, d time.Duration) error {
	type deadliner interface {
		SetDeadline(time.Time) error
	}
	dl, ok := ln.(deadliner)
	if !ok {
		return nil
	}
	return dl.SetDeadline(time.Now().Add(d))
}

package arbiter

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/zippy1981/gunicorn/internal/app"
	"github.com/zippy1981/gunicorn/internal/config"
	"github.com/zippy1981/gunicorn/internal/control"
	"github.com/zippy1981/gunicorn/internal/listener"
	"github.com/zippy1981/gunicorn/internal/sigqueue"
)

// State is the arbiter's own lifecycle state (spec.md §4.1
// "INIT -> RUNNING -> (RUNNING | RELOADING) -> STOPPING -> HALTED").
type State int

const (
	StateInit State = iota
	StateRunning
	StateReloading
	StateStopping
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateRunning:
		return "running"
	case StateReloading:
		return "reloading"
	case StateStopping:
		return "stopping"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// Arbiter supervises the worker pool for one configuration generation. It
// is the generalization of cluster.ClusterManager from "manage a pool of
// node/bun processes behind an IPC bridge" to "manage a pool of HTTP
// workers behind shared listen sockets."
type Arbiter struct {
	snapshot  config.Snapshot
	handler   app.Handler
	listeners *listener.Set
	logger    *log.Logger
	control   *control.Bridge

	queue *sigqueue.Queue
	sigCh chan os.Signal
	wake  chan struct{}

	mu       sync.Mutex
	records  []*Record
	nextID   int
	state    State
	graceful bool

	stopCh chan struct{}
	doneCh chan struct{}

	execReloader ExecReloader
}

// ExecReloader performs the arbiter's own re-exec, handing set to the
// successor process. A successful call never returns (execve replaces the
// process image); it returns only on failure.
type ExecReloader func(set *listener.Set) error

// New binds (or adopts, on exec reload) the configured listeners and
// returns an Arbiter ready to Run.
func New(snap config.Snapshot, handler app.Handler, logger *log.Logger) (*Arbiter, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[arbiter] ", log.LstdFlags)
	}

	set, inherited, err := listener.Inherit()
	if err != nil {
		return nil, fmt.Errorf("arbiter: %w", err)
	}
	if !inherited {
		set, err = listener.Bind(snap.Binds)
		if err != nil {
			return nil, fmt.Errorf("arbiter: %w", err)
		}
	}

	return &Arbiter{
		snapshot:  snap,
		handler:   handler,
		listeners: set,
		logger:    logger,
		control:   control.NewBridge(snap.ControlSocket, logger),
		queue:     sigqueue.New(sigqueue.DefaultCapacity),
		wake:      make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// Listeners exposes the bound listener set, e.g. for an exec reload that
// needs to pass it on to the arbiter's successor process.
func (a *Arbiter) Listeners() *listener.Set { return a.listeners }

// Control exposes the control-plane bridge, e.g. for the admin HTTP surface
// to read worker stats or ping a specific worker.
func (a *Arbiter) Control() *control.Bridge { return a.control }

// Snapshot returns the configuration generation this arbiter is running.
func (a *Arbiter) Snapshot() config.Snapshot { return a.snapshot }

// State returns the current arbiter lifecycle state.
func (a *Arbiter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Arbiter) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// Run starts the worker pool and blocks, processing signals and
// health-checking workers, until a stop (graceful or hard) is requested. It
// returns the process exit code the caller (cmd/cli) should use, which is
// always 0.
func (a *Arbiter) Run() int {
	a.setState(StateRunning)
	a.installSignals()
	defer a.stopSignals()

	if err := a.control.Listen(); err != nil {
		a.logger.Printf("control socket: %v", err)
	}
	defer a.control.Close()

	if err := writePidfile(a.snapshot.PidFile); err != nil {
		a.logger.Printf("pidfile: %v", err)
	}
	defer removePidfile(a.snapshot.PidFile)

	a.logger.Printf("arbiter started, pid=%d, generation=%d, workers=%d", os.Getpid(), a.snapshot.Generation, a.snapshot.Workers)

	for i := 0; i < a.snapshot.Workers; i++ {
		if err := a.spawnNext(); err != nil {
			a.logger.Printf("spawn: %v", err)
		}
	}

	interval := a.snapshot.HeartbeatInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			a.shutdown()
			close(a.doneCh)
			return 0
		case <-a.wake:
			a.drainSignals()
		case <-ticker.C:
			a.drainSignals()
			a.monitor()
		}
	}
}

// spawnNext allocates a fresh worker id and spawns it.
func (a *Arbiter) spawnNext() error {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	rec := NewRecord(id)
	a.records = append(a.records, rec)
	a.mu.Unlock()

	return a.spawn(rec)
}

func (a *Arbiter) notifyExit(rec *Record) {
	a.logger.Printf("worker %d exited (code=%d)", rec.ID, rec.ExitCode())
}

// WorkerCount reports the number of currently-tracked worker records
// (internal/admin's ArbiterView).
func (a *Arbiter) WorkerCount() int {
	return len(a.liveRecords())
}

// Generation reports the configuration generation this arbiter is
// running (internal/admin's ArbiterView).
func (a *Arbiter) Generation() uint64 {
	return a.snapshot.Generation
}

func (a *Arbiter) liveRecords() []*Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*Record, len(a.records))
	copy(out, a.records)
	return out
}

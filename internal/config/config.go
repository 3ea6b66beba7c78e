// Package config holds the immutable configuration snapshot spec.md §3
// describes. The serve command builds one Snapshot from its flags and the
// arbiter keeps it for its whole life: a soft reload respawns workers under
// that same Snapshot and does not build a new one.
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// EnvConfigJSON is the environment variable the arbiter serializes the
// active Snapshot into before re-exec'ing a worker (internal/arbiter/spawn.go
// is the writer; the worker CLI command is the reader). Everything else a
// worker needs to discover at re-exec (listeners, liveness, identity) has
// its own dedicated protocol; the snapshot is the one piece of state too
// broad to flatten into individual env vars.
const EnvConfigJSON = "GUNICORN_CONFIG_JSON"

// MarshalEnv serializes the snapshot for EnvConfigJSON.
func (s Snapshot) MarshalEnv() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("config: marshal snapshot: %w", err)
	}
	return string(b), nil
}

// UnmarshalEnv reconstructs a Snapshot from the value of EnvConfigJSON.
func UnmarshalEnv(value string) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		return Snapshot{}, fmt.Errorf("config: unmarshal snapshot: %w", err)
	}
	return s, nil
}

// WorkerClass selects the worker event-loop variant (spec.md §4.2/§4.3).
type WorkerClass string

const (
	WorkerClassSync  WorkerClass = "sync"
	WorkerClassAsync WorkerClass = "async"
)

// Snapshot is built once by the serve command (Default plus its flags) and
// is never mutated afterward; workers receive a copy through EnvConfigJSON
// (spec.md §3 "Configuration snapshot").
type Snapshot struct {
	Generation uint64

	Binds            []string
	WorkerClass      WorkerClass
	Workers          int
	Timeout          time.Duration
	GracefulTimeout  time.Duration
	KeepAlive        time.Duration
	MaxRequests      int
	WorkerConns      int
	HeartbeatInterval time.Duration

	PidFile string
	User    string
	Group   string
	Umask   uint32
	Daemon  bool

	ReloadOnChange bool
	WatchPaths     []string

	// AdminAddr, when non-empty, binds a local HTTP surface exposing
	// status/health/metrics/sys (internal/admin), separate from the
	// application listeners in Binds.
	AdminAddr string

	// ControlSocket, when non-empty, is the Unix socket path workers use to
	// report stats and answer pings from the admin surface (internal/control).
	ControlSocket string

	// Resource enforcement, checked by internal/arbiter's monitor loop via
	// gopsutil (spec.md §9's "supervision" is silent on limits beyond
	// liveness; this supplements it from the original's --limit-* options).
	MaxMemoryMB       int
	MaxCPUPercent     int
	EnforceHardLimits bool
	WorkerPriority    int
	FileDescriptorMax uint64
}

// Default returns the baseline snapshot the CLI flags are applied on top
// of (spec.md §6 flag defaults).
func Default() Snapshot {
	return Snapshot{
		WorkerClass:       WorkerClassSync,
		Workers:           1,
		Timeout:           30 * time.Second,
		GracefulTimeout:   30 * time.Second,
		KeepAlive:         2 * time.Second,
		MaxRequests:       0,
		WorkerConns:       1000,
		HeartbeatInterval: 5 * time.Second,
		Umask:             0o22,
	}
}

// Validate enforces the invariants spec.md calls out explicitly: at least
// one bind address, a worker floor of 1 (§8 "workers=1: scale-down to 0 is
// disallowed"), a heartbeat well below the liveness timeout (§9 glossary
// "Heartbeat interval").
func (s Snapshot) Validate() error {
	if len(s.Binds) == 0 {
		return fmt.Errorf("config: at least one --bind address is required")
	}
	if s.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1")
	}
	if s.WorkerClass != WorkerClassSync && s.WorkerClass != WorkerClassAsync {
		return fmt.Errorf("config: unknown worker class %q", s.WorkerClass)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive")
	}
	if s.HeartbeatInterval*3 >= s.Timeout {
		return fmt.Errorf("config: heartbeat-interval must be well below timeout (got %s vs %s)", s.HeartbeatInterval, s.Timeout)
	}
	if s.WorkerClass == WorkerClassAsync && s.WorkerConns < 1 {
		return fmt.Errorf("config: worker-connections must be >= 1 for the async worker class")
	}
	return nil
}

// WithGeneration returns a copy of s tagged with the given generation
// number. The arbiter does not call it: a running arbiter keeps the
// Generation its snapshot started with.
func (s Snapshot) WithGeneration(gen uint64) Snapshot {
	s.Generation = gen
	return s
}

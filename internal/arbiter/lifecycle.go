package arbiter

import (
	"fmt"
	"sort"
	"syscall"
	"time"
)

// killRecord sends sig to the worker and marks it stopping; the spawn
// goroutine's cmd.Wait() transitions it the rest of the way once the
// process actually exits.
func (a *Arbiter) killRecord(rec *Record, sig syscall.Signal) error {
	rec.setState(StateStopping)
	pid := rec.PID()
	if pid == 0 {
		return nil
	}
	return sendGracefulSignal(pid, sig)
}

// ScaleBy adds (or, if negative, removes) n workers, honoring the
// workers>=1 floor (spec.md §8 "scale-down to 0 is disallowed").
func (a *Arbiter) ScaleBy(n int) {
	if n > 0 {
		for i := 0; i < n; i++ {
			if err := a.spawnNext(); err != nil {
				a.logger.Printf("scale up: %v", err)
				return
			}
		}
		a.logger.Printf("scaled up by %d", n)
		return
	}

	records := a.liveRecords()
	if len(records) <= 1 {
		a.logger.Printf("scale down ignored: already at the 1-worker floor")
		return
	}

	toRemove := -n
	if toRemove > len(records)-1 {
		toRemove = len(records) - 1
	}

	sort.Slice(records, func(i, j int) bool { return records[i].StartTime.Before(records[j].StartTime) })
	for i := 0; i < toRemove; i++ {
		_ = a.killRecord(records[i], syscall.SIGQUIT)
	}
	a.logger.Printf("scaled down by %d", toRemove)
}

// stopAllWorkers signals every live worker to stop. graceful uses SIGQUIT
// (drain in place, spec.md §4.2's graceful stop path); otherwise SIGTERM.
func (a *Arbiter) stopAllWorkers(graceful bool) {
	sig := syscall.SIGTERM
	if graceful {
		sig = syscall.SIGQUIT
	}
	for _, rec := range a.liveRecords() {
		_ = a.killRecord(rec, sig)
	}
}

// shutdown drains (or force-stops) every worker and waits for them to exit:
// up to graceful_timeout (30s if unset) for a graceful stop, 5s for a hard
// stop. Workers still running at the deadline are sent SIGKILL.
func (a *Arbiter) shutdown() {
	a.logger.Printf("shutting down (graceful=%v)", a.graceful)
	a.stopAllWorkers(a.graceful)

	timeout := a.snapshot.GracefulTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if !a.graceful {
		timeout = 5 * time.Second
	}

	deadline := time.After(timeout)
	for _, rec := range a.liveRecords() {
		select {
		case <-waitChan(rec):
		case <-deadline:
			a.logger.Printf("graceful_timeout exceeded, force-killing remaining workers")
			a.killRemaining()
			closeListenerSet(a.listeners)
			a.setState(StateHalted)
			return
		}
	}
	closeListenerSet(a.listeners)
	a.setState(StateHalted)
}

func (a *Arbiter) killRemaining() {
	for _, rec := range a.liveRecords() {
		if rec.IsAlive() {
			_ = a.killRecord(rec, syscall.SIGKILL)
		}
	}
}

func waitChan(rec *Record) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		rec.Wait()
		close(ch)
	}()
	return ch
}

// SoftReload replaces every current worker with a newly spawned one,
// oldest first, one at a time: each replacement is spawned before its
// predecessor is sent SIGQUIT and waited for, so capacity never drops to
// zero mid-reload (spec.md §4.5 "soft reload"). The configuration is not
// re-read: replacements run under the arbiter's existing snapshot, and its
// Generation does not change.
func (a *Arbiter) SoftReload() {
	a.setState(StateReloading)
	defer a.setState(StateRunning)

	old := a.liveRecords()
	a.logger.Printf("soft reload: replacing %d workers", len(old))

	for _, rec := range old {
		if err := a.spawnNext(); err != nil {
			a.logger.Printf("soft reload: spawn replacement failed: %v", err)
			continue
		}
		_ = a.killRecord(rec, syscall.SIGQUIT)
		rec.Wait()
	}
}

// ExecReload replaces this arbiter's process image with a fresh copy of the
// same binary, handing it the listener set (spec.md §4.5 "exec reload": the
// arbiter itself re-execs, not just its workers). execve keeps the pid, so
// the successor is this same process. The actual execve is performed by the
// installed ExecReloader (internal/reload.Exec), which uses the same
// listener.Set.ExecEnv handoff as worker spawn.
func (a *Arbiter) ExecReload() {
	a.logger.Printf("exec reload requested")
	if a.execReloader == nil {
		a.logger.Printf("exec reload: no reloader configured")
		return
	}
	if err := a.execReloader(a.listeners); err != nil {
		a.logger.Printf("exec reload failed: %v", err)
		return
	}
	// execve replaces this process on success; reaching here means it
	// returned without replacing us, which is itself the failure mode.
	a.logger.Printf("exec reload: execve returned unexpectedly: %v", fmt.Errorf("process still running"))
}

// SetExecReloader installs the callback ExecReload uses to perform the
// actual re-exec (wired by cmd/cli to internal/reload.Exec).
func (a *Arbiter) SetExecReloader(fn ExecReloader) {
	a.execReloader = fn
}

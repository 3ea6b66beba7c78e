package arbiter

import (
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
)

// monitor runs once per heartbeat tick (spec.md §4.1's health check plus
// the resource-enforcement supplement grounded on
// cluster.ClusterManager.monitorLoop): it kills workers whose liveness
// counter has gone stale, respawns anything that has exited while the
// arbiter is still running, and enforces the configured memory/CPU
// ceilings.
func (a *Arbiter) monitor() {
	if a.State() != StateRunning {
		return
	}

	for _, rec := range a.liveRecords() {
		switch rec.State() {
		case StateCrashed, StateStopped:
			a.logger.Printf("respawning worker %d (was %s, exit=%d)", rec.ID, rec.State(), rec.ExitCode())
			fresh := NewRecord(rec.ID)
			a.replaceRecord(rec, fresh)
			if err := a.spawn(fresh); err != nil {
				a.logger.Printf("respawn worker %d failed: %v", rec.ID, err)
			}
			continue
		case StateRunning:
			a.checkLiveness(rec)
			a.checkResources(rec)
		}
	}
}

func (a *Arbiter) checkLiveness(rec *Record) {
	age, err := rec.LivenessAge()
	if err != nil && age == 0 {
		// No successful read yet (or no source attached): nothing to age.
		// After a first read, Poll keeps aging on errors, so a source that
		// stays broken still crosses the timeout below.
		return
	}
	if age > a.snapshot.Timeout {
		a.logger.Printf("worker %d liveness stale (%s > %s), killing", rec.ID, age, a.snapshot.Timeout)
		_ = a.killRecord(rec, syscall.SIGKILL)
	}
}

func (a *Arbiter) checkResources(rec *Record) {
	pid := rec.PID()
	if pid == 0 {
		return
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return
	}

	if a.snapshot.MaxMemoryMB > 0 {
		if mem, err := p.MemoryInfo(); err == nil {
			rssMB := mem.RSS / 1024 / 1024
			if rssMB > uint64(a.snapshot.MaxMemoryMB) {
				if a.snapshot.EnforceHardLimits {
					a.logger.Printf("worker %d exceeded memory limit (%d MB > %d MB), killing", rec.ID, rssMB, a.snapshot.MaxMemoryMB)
					_ = a.killRecord(rec, syscall.SIGTERM)
					return
				}
				a.logger.Printf("worker %d near memory limit (%d MB / %d MB)", rec.ID, rssMB, a.snapshot.MaxMemoryMB)
			}
		}
	}

	if a.snapshot.MaxCPUPercent > 0 {
		if cpuPerc, err := p.CPUPercent(); err == nil && int(cpuPerc) > a.snapshot.MaxCPUPercent {
			if a.snapshot.EnforceHardLimits {
				a.logger.Printf("worker %d exceeded CPU limit (%.1f%% > %d%%), killing", rec.ID, cpuPerc, a.snapshot.MaxCPUPercent)
				_ = a.killRecord(rec, syscall.SIGTERM)
				return
			}
			a.logger.Printf("worker %d near CPU limit (%.1f%% / %d%%)", rec.ID, cpuPerc, a.snapshot.MaxCPUPercent)
		}
	}
}

func (a *Arbiter) replaceRecord(old, fresh *Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, r := range a.records {
		if r == old {
			a.records[i] = fresh
			return
		}
	}
}

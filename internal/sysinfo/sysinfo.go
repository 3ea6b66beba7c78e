// Package sysinfo reports host-level resource stats for the admin /sys
// endpoint (internal/admin), narrowed from the teacher's general-purpose
// system inspector (internal/sys) to the fields an operator actually wants
// when deciding whether to scale a running arbiter: host load and memory
// (Read, served at /sys), plus a single process's resource footprint
// (ReadProcess, which /sys does not include).
package sysinfo

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is one point-in-time read of host resource usage (no
// per-process figures), grounded on sys.SysInfo but trimmed to what the
// admin surface exposes (no disk, network, battery, or process listing —
// none of those inform a scale-up/scale-down decision for this server).
type Snapshot struct {
	Hostname      string      `json:"hostname"`
	OS            string      `json:"os"`
	KernelVersion string      `json:"kernel_version"`
	Architecture  string      `json:"architecture"`
	CPUCount      int         `json:"cpu_count"`
	CPUPercent    float64     `json:"cpu_percent"`
	TotalMemory   uint64      `json:"total_memory"`
	UsedMemory    uint64      `json:"used_memory"`
	MemoryPercent float64     `json:"memory_percent"`
	Uptime        uint64      `json:"uptime"`
	LoadAverage   LoadAverage `json:"load_average"`
}

type LoadAverage struct {
	One     float64 `json:"one"`
	Five    float64 `json:"five"`
	Fifteen float64 `json:"fifteen"`
}

// ProcessStats is the arbiter's (or a worker's) own resource footprint, the
// same fields internal/arbiter's monitor loop checks against
// MaxMemoryMB/MaxCPUPercent. The admin /sys endpoint does not include it.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
}

// Read takes a host-level snapshot. Every gopsutil call is best-effort:
// partial data (e.g. no load average on a platform that lacks one) is
// preferable to failing the whole admin request.
func Read() Snapshot {
	hInfo, _ := host.Info()
	vMem, _ := mem.VirtualMemory()
	lAvg, _ := load.Avg()
	cPercent, _ := cpu.Percent(100*time.Millisecond, false)

	snap := Snapshot{
		Architecture: runtime.GOARCH,
		CPUCount:     runtime.NumCPU(),
	}
	if hInfo != nil {
		snap.Hostname = hInfo.Hostname
		snap.OS = hInfo.OS
		snap.KernelVersion = hInfo.KernelVersion
		snap.Uptime = hInfo.Uptime
	}
	if vMem != nil {
		snap.TotalMemory = vMem.Total
		snap.UsedMemory = vMem.Used
		snap.MemoryPercent = vMem.UsedPercent
	}
	if lAvg != nil {
		snap.LoadAverage = LoadAverage{One: lAvg.Load1, Five: lAvg.Load5, Fifteen: lAvg.Load15}
	}
	if len(cPercent) > 0 {
		snap.CPUPercent = cPercent[0]
	}
	return snap
}

// ReadProcess reads one process's own resource footprint with the same
// gopsutil calls internal/arbiter's monitor loop makes for enforcement.
// Nothing in internal/admin calls it.
func ReadProcess(pid int) (ProcessStats, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ProcessStats{}, err
	}
	memInfo, _ := p.MemoryInfo()
	cpuPercent, _ := p.CPUPercent()
	stats := ProcessStats{PID: int32(pid), CPUPercent: cpuPercent}
	if memInfo != nil {
		stats.RSSBytes = memInfo.RSS
	}
	return stats, nil
}

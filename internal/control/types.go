// Package control implements a small control-plane bridge between the
// arbiter and its workers over a Unix socket, carrying worker stats
// reports and admin-triggered pings (supplemented from the original's
// worker_tmp heartbeat files: this adds an active channel alongside the
// passive liveness counter). Grounded on the teacher's internal/ipc
// bridge/circuit-breaker/metrics trio, narrowed from full JS-request
// proxying to the stats/ping pair this domain actually needs.
package control

import (
	"encoding/json"
)

const (
	MsgTypeStatsReport = "StatsReport"
	MsgTypePing        = "Ping"
	MsgTypePong        = "Pong"
)

// Message is the length-prefixed JSON envelope exchanged on the control
// socket (grounded on ipc.IpcMessage's wire shape).
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// StatsReport is what a worker sends the arbiter from its heartbeat path
// (every heartbeat tick in the async worker, each idle accept timeout in
// the sync worker): just
// enough for the admin surface's /status and /metrics endpoints (spec.md
// §9 Non-goals rule out a full metrics backend, but a process-count and
// request-count summary is the ambient observability the teacher's own
// admin surface always carries).
type StatsReport struct {
	WorkerID        int   `json:"worker_id"`
	PID             int   `json:"pid"`
	RequestsServed  int64 `json:"requests_served"`
	ActiveConns     int64 `json:"active_conns"`
	UptimeSeconds   int64 `json:"uptime_seconds"`
}

// PingPayload identifies which worker an admin-triggered liveness probe
// targets; WorkerID 0 (or omitted) means "every worker".
type PingPayload struct {
	WorkerID int `json:"worker_id,omitempty"`
}

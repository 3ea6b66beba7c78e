package sigqueue

import (
	"syscall"
)

// Action is the semantic effect a signal carries once translated out of the
// OS signal namespace (spec.md §6 "Signals accepted by the arbiter").
type Action int

const (
	ActionUnknown Action = iota
	ActionIncreaseWorkers
	ActionDecreaseWorkers
	ActionReload
	ActionExecReload
	ActionGracefulStop
	ActionHardStop
	ActionWinchStop
	ActionReap
	ActionReopenLogs
)

// ArbiterAction maps an incoming OS signal to its arbiter-side Action.
// Signals with no entry here are ignored.
func ArbiterAction(sig syscall.Signal) Action {
	switch sig {
	case syscall.SIGHUP:
		return ActionReload
	case syscall.SIGUSR2:
		return ActionExecReload
	case syscall.SIGTTIN:
		return ActionIncreaseWorkers
	case syscall.SIGTTOU:
		return ActionDecreaseWorkers
	case syscall.SIGQUIT:
		return ActionGracefulStop
	case syscall.SIGINT, syscall.SIGTERM:
		return ActionHardStop
	case syscall.SIGWINCH:
		return ActionWinchStop
	case syscall.SIGCHLD:
		return ActionReap
	case syscall.SIGUSR1:
		return ActionReopenLogs
	default:
		return ActionUnknown
	}
}

// WorkerAction is the analogous mapping on the worker side (spec.md §6
// "Signals accepted by a worker"). All other signals are ignored there.
type WorkerAction int

const (
	WorkerActionUnknown WorkerAction = iota
	WorkerActionGracefulStop
	WorkerActionFastStop
	WorkerActionImmediateStop
	WorkerActionReopenLogs
)

func WorkerSignalAction(sig syscall.Signal) WorkerAction {
	switch sig {
	case syscall.SIGQUIT:
		return WorkerActionGracefulStop
	case syscall.SIGTERM:
		return WorkerActionFastStop
	case syscall.SIGINT:
		return WorkerActionImmediateStop
	case syscall.SIGUSR1:
		return WorkerActionReopenLogs
	default:
		return WorkerActionUnknown
	}
}

// ArbiterSignals lists every signal the arbiter installs a handler for.
// CHLD is registered like the others, but its ActionReap handler does
// nothing: each worker is reaped by os/exec's Wait in its spawn goroutine.
var ArbiterSignals = []syscall.Signal{
	syscall.SIGHUP,
	syscall.SIGUSR2,
	syscall.SIGTTIN,
	syscall.SIGTTOU,
	syscall.SIGQUIT,
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGWINCH,
	syscall.SIGUSR1,
	syscall.SIGCHLD,
}

// WorkerSignals lists every signal a worker installs a handler for. The
// arbiter-only signals HUP, USR2, TTIN and TTOU are ignored in workers
// (internal/worker installSignals); any other signal keeps its default
// disposition.
var WorkerSignals = []syscall.Signal{
	syscall.SIGQUIT,
	syscall.SIGTERM,
	syscall.SIGINT,
	syscall.SIGUSR1,
}

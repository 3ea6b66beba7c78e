package worker

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/zippy1981/gunicorn/internal/sigqueue"
)

// installSignals re-installs the worker's own signal set (spec.md §4.2):
// QUIT, TERM, INT and USR1 are delivered on the returned channel, and the
// arbiter-only signals HUP, USR2, TTIN and TTOU are ignored, since their
// default disposition would terminate or stop the worker. Go's channel
// delivery already serializes signals for us, so unlike the arbiter side
// (internal/sigqueue.Queue) no ring buffer is needed here: a worker only
// ever has to react to a handful of signals, never arbitrate between many
// concurrent senders.
func installSignals() chan os.Signal {
	ch := make(chan os.Signal, len(sigqueue.WorkerSignals))
	sigs := make([]os.Signal, len(sigqueue.WorkerSignals))
	for i, s := range sigqueue.WorkerSignals {
		sigs[i] = s
	}
	signal.Notify(ch, sigs...)
	signal.Ignore(syscall.SIGHUP, syscall.SIGUSR2, syscall.SIGTTIN, syscall.SIGTTOU)
	return ch
}

func stopSignals(ch chan os.Signal) {
	signal.Stop(ch)
	close(ch)
}

// handleWorkerSignal applies one received signal to the worker's running
// state, returning true if the worker should stop (gracefully or not).
func (w *Worker) handleWorkerSignal(sig os.Signal, immediate *bool) bool {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return false
	}
	switch sigqueue.WorkerSignalAction(s) {
	case sigqueue.WorkerActionGracefulStop, sigqueue.WorkerActionFastStop:
		w.stopping = true
		return true
	case sigqueue.WorkerActionImmediateStop:
		w.stopping = true
		*immediate = true
		return true
	case sigqueue.WorkerActionReopenLogs:
		// The worker logs to stderr, a pipe the arbiter reads (streamLogs);
		// there is no log file for the worker to reopen.
	}
	return false
}

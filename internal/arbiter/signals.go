package arbiter

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/zippy1981/gunicorn/internal/sigqueue"
)

// installSignals wires OS signal delivery into the bounded sigqueue.Queue
// (spec.md §6 "the arbiter's signal handler must be safe to run
// concurrently with its main loop and must never block"): the forwarding
// goroutine only ever calls Queue.Push, which is a single mutex-protected
// ring-buffer write, so a burst of signals can never stall or deadlock
// delivery the way doing real work inline in the handler could.
func (a *Arbiter) installSignals() {
	a.sigCh = make(chan os.Signal, sigqueue.DefaultCapacity)
	sigs := make([]os.Signal, len(sigqueue.ArbiterSignals))
	for i, s := range sigqueue.ArbiterSignals {
		sigs[i] = s
	}
	signal.Notify(a.sigCh, sigs...)

	go func() {
		for sig := range a.sigCh {
			a.queue.Push(sig)
			select {
			case a.wake <- struct{}{}:
			default:
			}
		}
	}()
}

func (a *Arbiter) stopSignals() {
	signal.Stop(a.sigCh)
	close(a.sigCh)
}

// drainSignals applies every signal queued since the last drain, in enqueue
// order. Run calls it whenever the forwarding goroutine wakes it and again
// on every heartbeat tick. Each queued signal is applied once, so two TTINs
// add two workers; only signals that arrive while the queue is full are
// dropped (and counted).
func (a *Arbiter) drainSignals() {
	for _, sig := range a.queue.Drain() {
		s, ok := sig.(syscall.Signal)
		if !ok {
			continue
		}
		a.handleAction(sigqueue.ArbiterAction(s))
	}
	if dropped := a.queue.Dropped(); dropped > 0 {
		a.logger.Printf("signal queue dropped %d signals (consumer falling behind)", dropped)
	}
}

func (a *Arbiter) handleAction(action sigqueue.Action) {
	switch action {
	case sigqueue.ActionIncreaseWorkers:
		a.ScaleBy(1)
	case sigqueue.ActionDecreaseWorkers:
		a.ScaleBy(-1)
	case sigqueue.ActionReload:
		a.SoftReload()
	case sigqueue.ActionExecReload:
		a.ExecReload()
	case sigqueue.ActionGracefulStop:
		a.RequestStop(true)
	case sigqueue.ActionHardStop:
		a.RequestStop(false)
	case sigqueue.ActionWinchStop:
		if a.snapshot.Daemon {
			a.stopAllWorkers(true)
		}
	case sigqueue.ActionReap:
		// cmd.Wait() in spawn's own goroutine already reaps; this tick's
		// monitor() pass picks up anything that changed state.
	case sigqueue.ActionReopenLogs:
		a.logger.Printf("log reopen requested (stderr is not rotated by this process)")
	}
}

// RequestStop begins arbiter shutdown. graceful selects SIGQUIT (drain
// workers) vs SIGTERM/SIGINT (stop them immediately) semantics.
func (a *Arbiter) RequestStop(graceful bool) {
	a.setState(StateStopping)
	a.graceful = graceful
	select {
	case <-a.stopCh:
	default:
		close(a.stopCh)
	}
}

// Wait blocks until Run has fully returned.
func (a *Arbiter) Wait() {
	<-a.doneCh
}

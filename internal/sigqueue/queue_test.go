package sigqueue

import (
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueuePushDrainOrder(t *testing.T) {
	q := New(4)
	assert.True(t, q.Push(syscall.SIGHUP))
	assert.True(t, q.Push(syscall.SIGTERM))
	assert.True(t, q.Push(syscall.SIGUSR1))

	drained := q.Drain()
	assert.Equal(t, []os.Signal{syscall.SIGHUP, syscall.SIGTERM, syscall.SIGUSR1}, drained)
	assert.Nil(t, q.Drain(), "a second drain on an empty queue returns nil")
}

func TestQueueDropsOnFull(t *testing.T) {
	q := New(2)
	assert.True(t, q.Push(syscall.SIGHUP))
	assert.True(t, q.Push(syscall.SIGTERM))
	assert.False(t, q.Push(syscall.SIGQUIT), "third push should be dropped at capacity 2")
	assert.Equal(t, uint64(1), q.Dropped())

	drained := q.Drain()
	assert.Len(t, drained, 2)
}

func TestNewDefaultsCapacity(t *testing.T) {
	q := New(0)
	for i := 0; i < DefaultCapacity; i++ {
		assert.True(t, q.Push(syscall.SIGHUP))
	}
	assert.False(t, q.Push(syscall.SIGHUP))
}

func TestArbiterActionMapping(t *testing.T) {
	cases := map[syscall.Signal]Action{
		syscall.SIGHUP:  ActionReload,
		syscall.SIGUSR2: ActionExecReload,
		syscall.SIGTTIN: ActionIncreaseWorkers,
		syscall.SIGTTOU: ActionDecreaseWorkers,
		syscall.SIGQUIT: ActionGracefulStop,
		syscall.SIGTERM: ActionHardStop,
		syscall.SIGINT:  ActionHardStop,
	}
	for sig, want := range cases {
		assert.Equal(t, want, ArbiterAction(sig), "signal %v", sig)
	}
}

func TestWorkerSignalActionMapping(t *testing.T) {
	assert.Equal(t, WorkerActionGracefulStop, WorkerSignalAction(syscall.SIGQUIT))
	assert.Equal(t, WorkerActionFastStop, WorkerSignalAction(syscall.SIGTERM))
	assert.Equal(t, WorkerActionImmediateStop, WorkerSignalAction(syscall.SIGINT))
	assert.Equal(t, WorkerActionReopenLogs, WorkerSignalAction(syscall.SIGUSR1))
}

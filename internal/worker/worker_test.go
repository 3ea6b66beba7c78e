package worker

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zippy1981/gunicorn/internal/config"
	"github.com/zippy1981/gunicorn/internal/control"
)

func newTestWorker(t *testing.T, maxRequests int) *Worker {
	t.Helper()
	return &Worker{
		ID:        1,
		ParentPID: 1,
		Snapshot:  config.Snapshot{MaxRequests: maxRequests},
		Control:   control.NewClient("", 1),
		startedAt: time.Now(),
	}
}

func TestShouldRecycleDisabledByDefault(t *testing.T) {
	w := newTestWorker(t, 0)
	w.requestsServed = 1_000_000
	assert.False(t, w.shouldRecycle(), "max_requests=0 must disable recycling regardless of count")
}

func TestShouldRecycleAtThreshold(t *testing.T) {
	w := newTestWorker(t, 10)
	w.requestsServed = 9
	assert.False(t, w.shouldRecycle())
	w.requestsServed = 10
	assert.True(t, w.shouldRecycle())
}

func TestIsOrphanedComparesAgainstParentPID(t *testing.T) {
	w := newTestWorker(t, 0)
	w.ParentPID = -1 // no real process ever has this ppid
	assert.True(t, w.isOrphaned())
}

func TestSetAcceptDeadlineOnTCPListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = setAcceptDeadline(ln, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = ln.Accept()
	require.Error(t, err)
	assert.True(t, isTimeout(err))
}

func TestReportStatsWithoutSocketDoesNotPanic(t *testing.T) {
	w := newTestWorker(t, 0)
	w.reportStats()
}

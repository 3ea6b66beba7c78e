package arbiter

import (
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestArbiter(n int) *Arbiter {
	a := &Arbiter{logger: log.Default()}
	for i := 0; i < n; i++ {
		rec := NewRecord(i)
		rec.setState(StateRunning)
		rec.StartTime = time.Now().Add(time.Duration(i) * time.Second)
		a.records = append(a.records, rec)
	}
	return a
}

func TestScaleDownRefusesBelowOneWorkerFloor(t *testing.T) {
	a := newTestArbiter(1)
	a.ScaleBy(-1)
	assert.Len(t, a.liveRecords(), 1, "scale-down must never drop below the 1-worker floor")
}

func TestScaleDownKillsOldestFirst(t *testing.T) {
	a := newTestArbiter(3)
	// PID-less records are never actually signaled (killRecord short-circuits
	// on PID()==0), so this only exercises the oldest-first selection and
	// the stopping-state transition, not the real kill syscall.
	a.ScaleBy(-1)

	states := map[int]RecordState{}
	for _, r := range a.records {
		states[r.ID] = r.State()
	}
	assert.Equal(t, StateStopping, states[0], "the oldest record (id 0) should be selected for removal")
	assert.Equal(t, StateRunning, states[1])
	assert.Equal(t, StateRunning, states[2])
}

func TestStopAllWorkersMarksEveryLiveRecordStopping(t *testing.T) {
	a := newTestArbiter(2)
	a.stopAllWorkers(true)
	for _, r := range a.records {
		assert.Equal(t, StateStopping, r.State())
	}
}

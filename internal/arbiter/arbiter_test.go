package arbiter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zippy1981/gunicorn/internal/config"
)

func TestStateStrings(t *testing.T) {
	cases := map[State]string{
		StateInit:      "init",
		StateRunning:   "running",
		StateReloading: "reloading",
		StateStopping:  "stopping",
		StateHalted:    "halted",
		State(99):      "unknown",
	}
	for s, want := range cases {
		assert.Equal(t, want, s.String())
	}
}

func TestNewRejectsInvalidSnapshot(t *testing.T) {
	_, err := New(config.Snapshot{}, nil, nil)
	assert.Error(t, err, "an empty snapshot has no bind addresses and must fail Validate")
}

func TestWorkerCountAndGeneration(t *testing.T) {
	a := &Arbiter{snapshot: config.Default().WithGeneration(4)}
	a.records = []*Record{NewRecord(0), NewRecord(1)}

	assert.Equal(t, 2, a.WorkerCount())
	assert.Equal(t, uint64(4), a.Generation())
}

func TestLiveRecordsReturnsCopy(t *testing.T) {
	a := &Arbiter{records: []*Record{NewRecord(0)}}
	live := a.liveRecords()
	live[0] = NewRecord(99)
	assert.Equal(t, 0, a.records[0].ID, "liveRecords must return a defensive copy")
}

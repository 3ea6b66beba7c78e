package arbiter

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordStartsStopped(t *testing.T) {
	r := NewRecord(5)
	assert.Equal(t, StateStopped, r.State())
	assert.Equal(t, -1, r.ExitCode())
	assert.Equal(t, 0, r.PID())
	assert.False(t, r.IsAlive())
}

func TestRecordIsAliveStates(t *testing.T) {
	r := NewRecord(1)
	r.setState(StateRunning)
	assert.True(t, r.IsAlive())
	r.setState(StateStopping)
	assert.True(t, r.IsAlive())
	r.setState(StateStopped)
	assert.False(t, r.IsAlive())
	r.setState(StateCrashed)
	assert.False(t, r.IsAlive())
}

func TestRecordLivenessAgeWithoutSourceErrors(t *testing.T) {
	r := NewRecord(2)
	_, err := r.LivenessAge()
	require.Error(t, err)
}

func TestRecordStateStrings(t *testing.T) {
	cases := map[RecordState]string{
		StateSpawning: "spawning",
		StateRunning:  "running",
		StateStopping: "stopping",
		StateStopped:  "stopped",
		StateCrashed:  "crashed",
		RecordState(99): "unknown",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}

func TestStreamLogsTagsEachLine(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	streamLogs(3, strings.NewReader("line one\nline two\n"), logger, "INFO")

	out := buf.String()
	assert.Contains(t, out, "[worker 3][INFO] line one")
	assert.Contains(t, out, "[worker 3][INFO] line two")
}

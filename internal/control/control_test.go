package control

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerDisabledAlwaysChecks(t *testing.T) {
	cb := NewCircuitBreaker(false, 1, time.Minute)
	cb.RecordFailure()
	cb.RecordFailure()
	assert.True(t, cb.Check())
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(true, 2, time.Hour)
	assert.True(t, cb.Check())
	cb.RecordFailure()
	assert.True(t, cb.Check(), "below threshold still closed")
	cb.RecordFailure()
	assert.False(t, cb.Check(), "at threshold the breaker opens")
}

func TestCircuitBreakerResetsOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(true, 1, time.Hour)
	cb.RecordFailure()
	require.False(t, cb.Check())
	cb.RecordSuccess()
	assert.True(t, cb.Check())
}

func TestCircuitBreakerClosesAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(true, 1, 10*time.Millisecond)
	cb.RecordFailure()
	require.False(t, cb.Check())
	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Check())
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := Message{Type: MsgTypeStatsReport, Payload: []byte(`{"worker_id":3}`)}

	require.NoError(t, writeFrame(&buf, msg))

	got, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, msg.Type, got.Type)
	assert.JSONEq(t, string(msg.Payload), string(got.Payload))
}

func TestReadFrameRejectsOversized(t *testing.T) {
	var buf bytes.Buffer
	// A size prefix declaring more than maxMessageSize with no body.
	require.NoError(t, writeFrame(&buf, Message{Type: MsgTypePing}))
	oversized := bytes.Repeat([]byte{0xff}, 4)
	_, err := readFrame(bytes.NewReader(oversized))
	require.Error(t, err)
}

func TestBridgeDisabledListenIsNoop(t *testing.T) {
	b := NewBridge("", nil)
	require.NoError(t, b.Listen())
	assert.Empty(t, b.Snapshot())
	b.Close()
}

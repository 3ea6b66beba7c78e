package liveness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeString(t *testing.T) {
	assert.Equal(t, "mmap", ModeMmap.String())
	assert.Equal(t, "file", ModeFile.String())
}

func TestDetectMode(t *testing.T) {
	if mmapSupported {
		assert.Equal(t, ModeMmap, DetectMode())
	} else {
		assert.Equal(t, ModeFile, DetectMode())
	}
}

// fakeSource lets tests drive Tracker.Poll's age logic deterministically.
type fakeSource struct {
	val int64
	err error
}

func (f *fakeSource) Read() (int64, error) { return f.val, f.err }
func (f *fakeSource) Close() error         { return nil }

func TestTrackerPollResetsAgeOnChange(t *testing.T) {
	src := &fakeSource{val: 1}
	tr := NewTracker(src)
	now := time.Now()
	tr.clock = func() time.Time { return now }

	age, err := tr.Poll()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), age, "first observed value has zero age")

	now = now.Add(5 * time.Second)
	age, err = tr.Poll()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, age, "unchanged value ages with the clock")

	src.val = 2
	now = now.Add(1 * time.Second)
	age, err = tr.Poll()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), age, "a changed value resets the age to zero")
}

func TestTrackerPollPropagatesErrorBeforeFirstRead(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	tr := NewTracker(src)

	_, err := tr.Poll()
	assert.Error(t, err, "an error before any successful read must be surfaced")
}

func TestTrackerPollSwallowsErrorAfterFirstRead(t *testing.T) {
	src := &fakeSource{val: 1}
	tr := NewTracker(src)
	now := time.Now()
	tr.clock = func() time.Time { return now }

	_, err := tr.Poll()
	require.NoError(t, err)

	src.err = errors.New("transient stat failure")
	now = now.Add(3 * time.Second)
	age, err := tr.Poll()
	assert.Error(t, err, "the error is still returned to the caller")
	assert.Equal(t, 3*time.Second, age, "but the age keeps advancing from the last known-good value")
}

func TestTrackerClosesUnderlyingSource(t *testing.T) {
	src := &fakeSource{val: 1}
	tr := NewTracker(src)
	assert.NoError(t, tr.Close())
}

func TestFileSourceSinkRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	prepared, err := prepareFile(tmp, 7)
	require.NoError(t, err)
	defer prepared.Source.Close()

	assert.Nil(t, prepared.ExtraFile, "file mode hands down a path, not an fd")
	assert.Contains(t, prepared.Env, EnvMode+"="+ModeFile.String())

	var path string
	for _, kv := range prepared.Env {
		if len(kv) > len(EnvFilePath) && kv[:len(EnvFilePath)] == EnvFilePath {
			path = kv[len(EnvFilePath)+1:]
		}
	}
	require.NotEmpty(t, path)

	sink := &fileSink{path: path}
	first, err := prepared.Source.Read()
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, sink.Notify())

	second, err := prepared.Source.Read()
	require.NoError(t, err)
	assert.Greater(t, second, first, "Notify must advance the heartbeat file's mtime")
}

func TestPrepareUnknownModeErrors(t *testing.T) {
	_, err := Prepare(Mode(99), t.TempDir(), 1)
	assert.Error(t, err)
}

func TestOpenSinkUnknownModeErrors(t *testing.T) {
	t.Setenv(EnvMode, "")
	_, err := OpenSink()
	assert.Error(t, err)
}

//go:build linux

package liveness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmapPrepareAndNotifyRoundTrip(t *testing.T) {
	prepared, err := prepareMmap(3)
	require.NoError(t, err)
	defer prepared.Source.Close()

	require.NotNil(t, prepared.ExtraFile, "mmap mode hands the memfd down via ExtraFiles")
	assert.Contains(t, prepared.Env, EnvMode+"="+ModeMmap.String())

	sink := &mmapSink{file: prepared.ExtraFile, data: prepared.Source.(*mmapSource).data}

	before, err := prepared.Source.Read()
	require.NoError(t, err)

	require.NoError(t, sink.Notify())

	after, err := prepared.Source.Read()
	require.NoError(t, err)
	assert.Equal(t, before+1, after, "Notify must atomically increment the shared counter")
}

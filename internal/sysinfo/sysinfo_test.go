package sysinfo

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadReturnsPositiveCPUCount(t *testing.T) {
	snap := Read()
	assert.Greater(t, snap.CPUCount, 0)
}

func TestReadProcessCurrentPID(t *testing.T) {
	stats, err := ReadProcess(os.Getpid())
	require.NoError(t, err)
	assert.EqualValues(t, os.Getpid(), stats.PID)
}

func TestReadProcessUnknownPIDErrors(t *testing.T) {
	_, err := ReadProcess(-1)
	assert.Error(t, err)
}

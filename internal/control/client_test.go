package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientDisabledIsNoop(t *testing.T) {
	c := NewClient("", 1)
	// ReportStats must not panic or block when no socket is configured.
	c.ReportStats(StatsReport{WorkerID: 1})
	assert.Nil(t, c.ensureConn())
	c.Close()
}

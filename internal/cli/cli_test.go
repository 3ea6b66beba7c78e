package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootHasExpectedSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["worker"])
	assert.True(t, names["ctl"])
}

func TestWorkerSubcommandIsHidden(t *testing.T) {
	for _, c := range rootCmd.Commands() {
		if c.Name() == "worker" {
			assert.True(t, c.Hidden, "the worker re-exec target must not appear in help output")
			return
		}
	}
	t.Fatal("worker subcommand not registered")
}

func TestServeFlagDefaults(t *testing.T) {
	f := serveCmd.Flags()

	binds, err := f.GetStringSlice("bind")
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1:8000"}, binds)

	workers, err := f.GetInt("workers")
	require.NoError(t, err)
	assert.Equal(t, 1, workers)

	workerClass, err := f.GetString("worker-class")
	require.NoError(t, err)
	assert.Equal(t, "sync", workerClass)
}

func TestCtlSubcommandsMapToExpectedSignals(t *testing.T) {
	wantUse := []string{"reload", "exec-reload", "stop", "kill", "scale-up", "scale-down", "reopen-logs"}
	got := map[string]bool{}
	for _, c := range ctlCmd.Commands() {
		got[c.Use] = true
	}
	for _, use := range wantUse {
		assert.True(t, got[use], "missing ctl subcommand %q", use)
	}
}

func TestCtlSignalErrorsOnMissingPidfile(t *testing.T) {
	cmd := ctlSignal("reload", "test", 1)
	ctlPidFile = "/no/such/pidfile"
	err := cmd.RunE(cmd, nil)
	assert.Error(t, err, "a missing pidfile must fail before any signal is sent")
}

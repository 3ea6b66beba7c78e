package listener

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindTCPResolvesEphemeralPort(t *testing.T) {
	set, err := Bind([]string{"127.0.0.1:0"})
	require.NoError(t, err)
	defer set.Close()

	require.Len(t, set.Listeners, 1)
	assert.NotEqual(t, "127.0.0.1:0", set.Listeners[0].Addr, "a :0 bind must be rewritten to the chosen port")
}

func TestBindUnixSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sock")
	set, err := Bind([]string{"unix:" + path})
	require.NoError(t, err)
	defer set.Close()

	require.Len(t, set.Listeners, 1)
	assert.Equal(t, "unix:"+path, set.Listeners[0].Addr)
}

func TestBindRollsBackOnPartialFailure(t *testing.T) {
	_, err := Bind([]string{"127.0.0.1:0", "not-a-valid-addr:::"})
	assert.Error(t, err)
}

func TestSetFilesAndAddrs(t *testing.T) {
	set, err := Bind([]string{"127.0.0.1:0", "127.0.0.1:0"})
	require.NoError(t, err)
	defer set.Close()

	files, err := set.Files()
	require.NoError(t, err)
	assert.Len(t, files, 2)

	addrs := set.Addrs()
	assert.Len(t, addrs, 2)
	assert.Equal(t, set.Listeners[0].Addr, addrs[0])
}

func TestListenerFileIsCached(t *testing.T) {
	set, err := Bind([]string{"127.0.0.1:0"})
	require.NoError(t, err)
	defer set.Close()

	f1, err := set.Listeners[0].File()
	require.NoError(t, err)
	f2, err := set.Listeners[0].File()
	require.NoError(t, err)
	assert.Same(t, f1, f2, "File() must cache and return the same *os.File")
}

func TestExecEnvStripsStaleAndAddsFreshVars(t *testing.T) {
	set, err := Bind([]string{"127.0.0.1:0"})
	require.NoError(t, err)
	defer set.Close()

	base := []string{
		"PATH=/usr/bin",
		EnvListenFDs + "=99",
		EnvListenAddrs + "=stale",
	}
	env, files, err := set.ExecEnv(base)
	require.NoError(t, err)
	require.Len(t, files, 1)

	assert.Contains(t, env, "PATH=/usr/bin")
	assert.Contains(t, env, EnvListenFDs+"=3")
	assert.Contains(t, env, EnvListenAddrs+"="+set.Listeners[0].Addr)
	assert.NotContains(t, env, EnvListenFDs+"=99")
	assert.NotContains(t, env, EnvListenAddrs+"=stale")
}

func TestInheritAbsentEnvReturnsNotOK(t *testing.T) {
	t.Setenv(EnvListenFDs, "")
	set, ok, err := Inherit()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, set)
}

func TestInheritMismatchedEntryCountErrors(t *testing.T) {
	t.Setenv(EnvListenFDs, "3,4")
	t.Setenv(EnvListenAddrs, "only-one")
	_, ok, err := Inherit()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestInheritInvalidFDErrors(t *testing.T) {
	t.Setenv(EnvListenFDs, "not-a-number")
	t.Setenv(EnvListenAddrs, "127.0.0.1:8080")
	_, ok, err := Inherit()
	assert.False(t, ok)
	assert.Error(t, err)
}

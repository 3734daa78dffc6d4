package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "sac.pid"))
}

func TestPIDRoundTrip(t *testing.T) {
	d := newTestDaemon(t)

	pid, err := d.ReadPID()
	require.NoError(t, err)
	assert.Zero(t, pid, "missing file reads as zero")

	require.NoError(t, d.WritePID())
	pid, err = d.ReadPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, d.RemovePID())
	require.NoError(t, d.RemovePID(), "removing twice is fine")
}

func TestReadPIDInvalid(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, os.WriteFile(d.PIDFile(), []byte("not-a-pid"), 0644))

	_, err := d.ReadPID()
	assert.Error(t, err)
}

func TestIsRunningCurrentProcess(t *testing.T) {
	d := newTestDaemon(t)
	require.NoError(t, d.WritePID())

	running, pid, err := d.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestIsRunningRemovesStaleFile(t *testing.T) {
	d := newTestDaemon(t)
	// Above the kernel's pid_max, so no such process exists.
	require.NoError(t, os.WriteFile(d.PIDFile(), []byte(strconv.Itoa(1<<22+1)), 0644))

	running, _, err := d.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)

	_, statErr := os.Stat(d.PIDFile())
	assert.True(t, os.IsNotExist(statErr))
}

func TestStopNotRunning(t *testing.T) {
	d := newTestDaemon(t)
	assert.ErrorIs(t, d.Stop(), ErrNotRunning)
}

func TestIsChild(t *testing.T) {
	t.Setenv(ChildEnv, "")
	assert.False(t, IsChild())
	t.Setenv(ChildEnv, "1")
	assert.True(t, IsChild())
}

package instance

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

// fakeProcess is a minimal ps.Process.
type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

// table builds a finder over a fixed process list.
func table(processes ...fakeProcess) finder {
	return func(pid int) (ps.Process, error) {
		for _, process := range processes {
			if process.pid == pid {
				return process, nil
			}
		}

		return nil, nil
	}
}

// TestAcquire_FreshAndRelease verifies the PID file lifecycle.
func TestAcquire_FreshAndRelease(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "watch.pid")

	lock, err := acquire(path, 100, table(fakeProcess{pid: 100, name: "outage-watch"}))
	require.NoError(t, err)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "100\n", string(contents))

	require.NoError(t, lock.Release())
	require.NoFileExists(t, path)
}

// TestAcquire_LiveHolder ensures a second watcher is refused.
func TestAcquire_LiveHolder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "watch.pid")
	require.NoError(t, os.WriteFile(path, []byte("42\n"), 0o600))

	find := table(
		fakeProcess{pid: 42, name: "outage-watch"},
		fakeProcess{pid: 100, name: "outage-watch"},
	)

	lock, err := acquire(path, 100, find)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.Nil(t, lock)
}

// TestAcquire_StaleHolder checks that dead or unrelated PIDs are taken over.
func TestAcquire_StaleHolder(t *testing.T) {
	t.Parallel()

	for name, holder := range map[string]string{
		"dead":      "42",
		"unrelated": "7",
		"garbled":   "not-a-pid",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "watch.pid")
			require.NoError(t, os.WriteFile(path, []byte(holder), 0o600))

			find := table(
				fakeProcess{pid: 7, name: "bash"},
				fakeProcess{pid: 100, name: "outage-watch"},
			)

			lock, err := acquire(path, 100, find)
			require.NoError(t, err)
			require.NotNil(t, lock)

			contents, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, strconv.Itoa(100)+"\n", string(contents))
		})
	}
}

// TestRelease_ForeignHolder ensures a lock does not remove a file it no longer owns.
func TestRelease_ForeignHolder(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "watch.pid")

	lock, err := acquire(path, 100, table())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("200\n"), 0o600))

	require.NoError(t, lock.Release())
	require.FileExists(t, path)
}

package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/outage-watch/internal/config"
)

// ErrAlreadyRunning is returned when another live process holds the lock.
var ErrAlreadyRunning = errors.New("another watcher is already running")

// Lock is a held PID file.
type Lock struct {
	// path of the PID file.
	path string
	// pid written to the file.
	pid int
}

// finder looks a process up by PID. It returns nil without error when absent.
type finder func(pid int) (ps.Process, error)

// Acquire writes the current PID to path unless the PID already stored there
// belongs to a live process with the same executable name.
func Acquire(path string) (*Lock, error) {
	return acquire(filepath.Clean(path), os.Getpid(), ps.FindProcess)
}

// acquire is Acquire with an injectable process table.
func acquire(path string, pid int, find finder) (*Lock, error) {
	self, err := find(pid)
	if err != nil {
		return nil, fmt.Errorf("inspect current process: %w", err)
	}

	holder, err := readPID(path)
	if err != nil {
		return nil, err
	}

	if holder > 0 && holder != pid {
		process, err := find(holder)
		if err != nil {
			return nil, fmt.Errorf("inspect process %d: %w", holder, err)
		}

		if process != nil && (self == nil || process.Executable() == self.Executable()) {
			return nil, fmt.Errorf("%w: pid %d holds %s", ErrAlreadyRunning, holder, path)
		}
	}

	data := []byte(strconv.Itoa(pid) + "\n")
	if err = os.WriteFile(path, data, config.DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}

	return &Lock{path: path, pid: pid}, nil
}

// Release removes the PID file if it still holds this process.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}

	holder, err := readPID(l.path)
	if err != nil || holder != l.pid {
		return err
	}

	if err = os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file: %w", err)
	}

	return nil
}

// readPID returns the PID stored at path, or 0 when the file is missing or garbled.
func readPID(path string) (int, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}

		return 0, fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		return 0, nil //nolint:nilerr // A garbled file is a stale lock.
	}

	return pid, nil
}

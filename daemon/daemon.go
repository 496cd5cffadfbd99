// Package daemon manages the pidfile and logfile of a background API
// process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const (
	DefaultLogfile = "lod-api.log"
	DefaultPidfile = "lod-api.pid"

	pollInterval = 100 * time.Millisecond
)

var (
	ErrNotRunning     = errors.New("process is not running")
	ErrAlreadyRunning = errors.New("process is already running")
)

type AlreadyRunningError struct {
	PID     int
	Pidfile string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("process is already running with pid %d (pidfile %s)", e.PID, e.Pidfile)
}

func (e *AlreadyRunningError) Is(target error) bool {
	return target == ErrAlreadyRunning
}

// Writable reports whether path can be created or appended to by this
// process.
func Writable(path string) bool {
	if err := unix.Access(filepath.Dir(path), unix.W_OK|unix.X_OK); err != nil {
		return false
	}
	if _, err := os.Stat(path); err == nil {
		return unix.Access(path, unix.W_OK) == nil
	}
	return true
}

// Resolve returns path when it is writable and fallback otherwise. The
// boolean is true when the fallback was chosen.
func Resolve(path string, fallback string) (string, bool) {
	if len(path) > 0 && Writable(path) {
		return path, false
	}
	return fallback, true
}

// OpenLog opens the logfile for appending.
func OpenLog(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open logfile %s: %w", path, err)
	}
	return file, nil
}

// ReadPID returns the pid stored in pidfile.
func ReadPID(pidfile string) (int, error) {
	content, err := os.ReadFile(pidfile)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("pidfile %s does not contain a valid pid", pidfile)
	}
	return pid, nil
}

func WritePID(pidfile string, pid int) error {
	if err := os.WriteFile(pidfile, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("could not write pidfile %s: %w", pidfile, err)
	}
	return nil
}

// RemovePID removes pidfile. A missing pidfile is not an error.
func RemovePID(pidfile string) error {
	if err := os.Remove(pidfile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not remove pidfile %s: %w", pidfile, err)
	}
	return nil
}

// Alive reports whether a process with pid exists.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

// Acquire records the current process in pidfile. It fails when the
// pidfile names a live process and replaces a stale one.
func Acquire(pidfile string) error {
	pid, err := ReadPID(pidfile)
	if err == nil && Alive(pid) {
		return &AlreadyRunningError{PID: pid, Pidfile: pidfile}
	}

	return WritePID(pidfile, os.Getpid())
}

// Stop sends SIGTERM to the process named in pidfile and waits until it
// has exited or ctx is done. A stale pidfile is removed.
func Stop(ctx context.Context, pidfile string) error {
	pid, err := ReadPID(pidfile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: no pidfile at %s", ErrNotRunning, pidfile)
		}
		return err
	}

	if !Alive(pid) {
		if err := RemovePID(pidfile); err != nil {
			return err
		}
		return fmt.Errorf("%w: removed stale pidfile %s", ErrNotRunning, pidfile)
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("could not signal pid %d: %w", pid, err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for Alive(pid) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("pid %d did not exit: %w", pid, ctx.Err())
		case <-ticker.C:
		}
	}

	return RemovePID(pidfile)
}

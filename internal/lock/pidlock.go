// Package lock guards the state directory against a second daemon instance.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// PIDLock holds an exclusive flock(2) on a pid file. The lock is tied to
// the open descriptor, so the file stays open until Release.
type PIDLock struct {
	path string
	file *os.File
}

// AcquirePIDLock takes the lock at path, failing immediately when another
// process holds it, and records the current pid in the file for operators.
func AcquirePIDLock(path string) (*PIDLock, error) {
	if path == "" {
		return nil, fmt.Errorf("pid lock path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create pid lock directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open pid lock: %w", err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("pid lock held elsewhere: %w", err)
	}

	if err := recordPID(file); err != nil {
		_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		_ = file.Close()
		return nil, err
	}
	return &PIDLock{path: path, file: file}, nil
}

// recordPID replaces the file contents with the current pid. The pid is
// informational only; the flock is what enforces exclusivity.
func recordPID(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncate pid lock: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("rewind pid lock: %w", err)
	}
	if _, err := file.WriteString(strconv.Itoa(os.Getpid()) + "\n"); err != nil {
		return fmt.Errorf("record pid: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync pid lock: %w", err)
	}
	return nil
}

// Path returns the pid file location.
func (l *PIDLock) Path() string { return l.path }

// Release drops the lock and closes the file. Safe to call more than once.
func (l *PIDLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	l.file = nil
	return err
}

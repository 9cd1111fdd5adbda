// Package lock provides the daemon's single-instance file lock and a
// keyed mutex map for per-document serialization.
package lock

import (
	"fmt"
	"os"
	"syscall"
)

// FileLock is an exclusive flock-based lock holding the owner's PID. It
// guarantees a single agdad daemon per config directory.
type FileLock struct {
	path string
	file *os.File
}

func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// TryLock acquires the lock without blocking.
func (fl *FileLock) TryLock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return fmt.Errorf("acquire lock (another agdad daemon may be running): %w", err)
	}

	if err := writePID(f); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return err
	}

	fl.file = f
	return nil
}

// writePID records the holder's PID in the lock file. `agdad status` does
// not read it; it gets the PID from the daemon over the socket.
func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("write PID to lock file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

// Unlock releases the lock and removes the file. Unlocking an unheld lock
// is a no-op.
func (fl *FileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}

	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		fl.file.Close()
		return fmt.Errorf("release lock: %w", err)
	}

	if err := fl.file.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}

	os.Remove(fl.path)
	fl.file = nil
	return nil
}

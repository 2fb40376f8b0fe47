package fs

import (
	"errors"
	"fmt"
	"os"
)

// ErrLocked is returned by TryLock when another process holds the lock.
var ErrLocked = errors.New("fs: lock held by another process")

// Lock is an advisory exclusive lock on a sidecar file.
type Lock struct {
	f    File
	path string
}

// TryLock creates path on fsys if needed and acquires an exclusive lock on it
// without blocking. The lock is taken on the file descriptor of the opened
// file; files that expose none (in-memory file systems) are opened but not
// locked.
func TryLock(fsys FileSystem, path string) (*Lock, error) {
	f, err := fsys.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if fd, ok := descriptor(f); ok {
		if err := lockFile(fd); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return &Lock{f: f, path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Unlock releases the lock. The lock file is left in place.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	var err error
	if fd, ok := descriptor(l.f); ok {
		err = unlockFile(fd)
	}
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}

// descriptor returns the OS file descriptor behind f, looking through
// wrappers that implement Unwrap.
func descriptor(f File) (uintptr, bool) {
	for {
		if d, ok := f.(interface{ Fd() uintptr }); ok {
			return d.Fd(), true
		}
		u, ok := f.(interface{ Unwrap() File })
		if !ok {
			return 0, false
		}
		f = u.Unwrap()
	}
}

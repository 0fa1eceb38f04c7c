// Package lock implements the process-level advisory lock described in
// spec 5: a single lock file at ${cache_dir}/.lock, held exclusively by
// write commands (install/update/remove/migrate) and shared by read
// commands (catalog/list), so two invocations never race on the same
// app state. The non-blocking flock(2) pattern (one attempt in the
// requested mode, with no fallback to the other mode) is
// grounded on quay-claircore's test/integration/lock_unix.go — the only
// place in the example pack that coordinates processes with an
// advisory file lock — adapted here from golang.org/x/sys/unix rather
// than the raw syscall package that test helper used, since this is
// now production code, not a test fixture.
package lock

import (
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/cyber-syntax/my-unicorn/pkg/apperrors"
)

// Mode selects the flock(2) mode acquired.
type Mode int

const (
	Exclusive Mode = iota
	Shared
)

// Lock holds an open file descriptor with an active flock(2) advisory
// lock. Release drops the lock and closes the descriptor.
type Lock struct {
	f *os.File
}

// Acquire opens path (creating it if necessary) and takes a
// non-blocking flock(2) in the given mode. On contention it returns an
// apperrors.KindLock error (spec 5's "AlreadyRunning" condition)
// instead of blocking, since a second invocation should fail fast
// rather than queue behind an unknown-duration operation.
func Acquire(path string, mode Mode) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindLock, path, err)
	}

	flockMode := unix.LOCK_EX
	modeName := "exclusive"
	if mode == Shared {
		flockMode = unix.LOCK_SH
		modeName = "shared"
	}

	log.Debugf("acquiring %s lock on %s", modeName, path)
	if err := unix.Flock(int(f.Fd()), flockMode|unix.LOCK_NB); err != nil {
		f.Close()
		log.Warnf("lock %s already held: %v", path, err)
		return nil, apperrors.New(apperrors.KindLock, path, "another my-unicorn process is already running")
	}

	return &Lock{f: f}, nil
}

// Release drops the advisory lock and closes the underlying file.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return apperrors.Wrap(apperrors.KindLock, l.f.Name(), err)
	}
	log.Debugf("released lock %s", l.f.Name())
	return l.f.Close()
}

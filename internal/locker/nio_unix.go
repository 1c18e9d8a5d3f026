//go:build unix

package locker

import (
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/conneroisu/fileclaim/internal/errors"
)

// Nio holds an exclusive flock on each claimed file.
//
// flock locks belong to the open file description, so two Nio instances in
// one process contend with each other exactly as two processes would. The
// kernel drops the locks if the process dies, so no stale state survives.
type Nio struct {
	mu   sync.Mutex
	held map[string]*os.File
}

// NewNio creates an advisory-lock locker.
func NewNio() (*Nio, error) {
	return &Nio{held: make(map[string]*os.File)}, nil
}

// Lock takes a non-blocking exclusive flock on path.
func (n *Nio) Lock(path string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.held[path]; ok {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, errors.NewIOError(errors.CodeLockFailed, "opening file to lock", err).
			WithOp("lock").
			WithPath(path)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if err == unix.EWOULDBLOCK || err == unix.EAGAIN {
			return false, nil
		}
		return false, errors.NewIOError(errors.CodeLockFailed, "flock", err).
			WithOp("lock").
			WithPath(path)
	}

	n.held[path] = f
	return true, nil
}

// Unlock releases the flock and closes the descriptor.
func (n *Nio) Unlock(path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	f, ok := n.held[path]
	if !ok {
		return nil
	}
	delete(n.held, path)

	flockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	closeErr := f.Close()
	if err := errors.CombineErrors(flockErr, closeErr); err != nil {
		return errors.NewIOError(errors.CodeUnlockFailed, "releasing flock", err).
			WithOp("unlock").
			WithPath(path)
	}
	return nil
}

// Held returns the claimed paths in sorted order.
func (n *Nio) Held() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return sortedKeys(n.held)
}

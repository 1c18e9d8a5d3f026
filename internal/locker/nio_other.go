//go:build !unix

package locker

import "github.com/conneroisu/fileclaim/internal/errors"

// Nio is unavailable on this platform.
type Nio struct{}

// NewNio reports that advisory locks are unsupported here.
func NewNio() (*Nio, error) {
	return nil, errors.NewConfigError("nio locker requires a unix platform, use the marker locker")
}

// Lock never claims a file on this platform.
func (*Nio) Lock(string) (bool, error) { return false, nil }

// Unlock is a no-op on this platform.
func (*Nio) Unlock(string) error { return nil }

package locker

import "sync"

// Stub grants every lock and never touches the filesystem.
type Stub struct {
	mu      sync.Mutex
	locks   int
	unlocks int
	locked  []string
}

// NewStub creates a stub locker.
func NewStub() *Stub {
	return &Stub{}
}

// Lock always succeeds.
func (s *Stub) Lock(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks++
	s.locked = append(s.locked, path)
	return true, nil
}

// Unlock does nothing beyond counting.
func (s *Stub) Unlock(string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unlocks++
	return nil
}

// Calls returns how many times Lock and Unlock were called.
func (s *Stub) Calls() (locks, unlocks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks, s.unlocks
}

// Locked returns every path passed to Lock, in call order.
func (s *Stub) Locked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.locked...)
}

// Package store provides the key/value metadata store behind the persistent
// accept-once filter.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/conneroisu/fileclaim/internal/errors"
)

// Store is a string key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open returns a store for driver. dsn is ignored for the memory driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, DriverPostgres:
		if dsn == "" {
			return nil, errors.NewConfigError(fmt.Sprintf("store driver %s requires a dsn", driver))
		}
		return OpenSQL(ctx, strings.ToLower(driver), dsn)
	default:
		return nil, errors.NewConfigError(fmt.Sprintf("unknown store driver %q", driver))
	}
}

// Memory keeps metadata in process memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys returns all keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) Close() error { return nil }

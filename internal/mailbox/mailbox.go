// Package mailbox provides a single-slot, overwrite-on-write cell for
// publishing the latest value of something to any number of readers.
package mailbox

import "sync"

// Mailbox holds at most one value. Every Store replaces the previous value;
// readers only ever see the latest one, never a history.
type Mailbox[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
}

// New returns an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{}
}

// Store overwrites the current value and returns its version. Versions
// start at 1 and grow by one per Store.
func (m *Mailbox[T]) Store(v T) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = v
	m.version++
	return m.version
}

// Load returns the latest value. ok is false if nothing was ever stored.
func (m *Mailbox[T]) Load() (v T, ok bool) {
	v, version := m.LoadVersion()
	return v, version > 0
}

// LoadVersion returns the latest value together with the version Store
// returned for it. The version is 0 if nothing was ever stored.
func (m *Mailbox[T]) LoadVersion() (T, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, m.version
}

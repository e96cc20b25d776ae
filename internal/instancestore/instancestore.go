// Package instancestore is the opaque-handle registry FFI consumers use in
// place of a cross-ABI object lifetime: a handle is a UTF-8 string prefixed
// by type, callers never dereference it, and it is process-unique for the
// life of the store.
//
// Ported from original_source/statsig-ffi/src/ffi_utils.rs's
// c_char_to_string/string_to_c_char boundary pattern and the
// INST_STORE.add/INST_STORE.remove calls in
// statsig_local_file_specs_adapter_c.rs. No cgo lives here — the actual FFI
// shim is out of scope per spec.md §1; only the handle-registry semantics
// are in scope.
package instancestore

import (
	"strconv"
	"sync"
)

// defaultCapacity bounds how many live handles one Store[T] will hold
// before Add starts returning the null-equivalent "".
const defaultCapacity = 100_000

// Store is a generic, process-unique handle registry for values of type T,
// keyed by a string prefix (e.g. "stsg_opt_", "stsg_usr_").
type Store[T any] struct {
	prefix   string
	capacity int

	mu      sync.RWMutex
	next    uint64
	entries map[string]T
}

// New builds a Store whose handles are prefixed with prefix.
func New[T any](prefix string) *Store[T] {
	return &Store[T]{
		prefix:   prefix,
		capacity: defaultCapacity,
		entries:  make(map[string]T),
	}
}

// Add registers value and returns its handle id, or "" if the store is at
// capacity (the FFI null-equivalent, per spec.md §4.8).
func (s *Store[T]) Add(value T) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.capacity {
		return ""
	}

	s.next++
	id := s.prefix + strconv.FormatUint(s.next, 10)
	s.entries[id] = value
	return id
}

// Get returns the value registered under id, if any. Handles are never
// recycled, so a Get after Remove always misses rather than returning a
// different value that happens to reuse the id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[id]
	return v, ok
}

// Remove deletes the entry registered under id, if any.
func (s *Store[T]) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len reports the number of live handles, for observability.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

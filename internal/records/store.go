package records

import (
	"sync"
	"time"
)

// Store holds the current Table behind a read/write guard. Requests
// take an immutable snapshot reference once at request start; Replace
// swaps the reference wholesale so in-flight readers keep the table
// they started with and never observe a half-loaded one.
type Store struct {
	mu       sync.RWMutex
	table    *Table
	loadedAt time.Time
	source   string
}

// NewStore creates a Store holding an empty table.
func NewStore() *Store {
	return &Store{table: NewTable(nil)}
}

// Snapshot returns the current table. The returned Table is immutable
// and remains valid after subsequent Replace calls.
func (s *Store) Snapshot() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Replace atomically swaps in a new table. source records where the
// snapshot came from, for diagnostics.
func (s *Store) Replace(t *Table, source string) {
	if t == nil {
		t = NewTable(nil)
	}
	s.mu.Lock()
	s.table = t
	s.loadedAt = time.Now().UTC()
	s.source = source
	s.mu.Unlock()
}

// LoadedAt returns when the current table was installed and from where.
func (s *Store) LoadedAt() (time.Time, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt, s.source
}

package catalog

import "sync"

// Store holds the process-wide catalog as versioned, immutable snapshots.
// Computations take a snapshot via Current and keep using it for their whole
// run; Replace swaps in a new catalog without tearing in-flight work.
type Store struct {
	mu      sync.RWMutex
	current *Catalog
	version int64
}

func NewStore(c *Catalog) *Store {
	s := &Store{}
	s.Replace(c)
	return s
}

// Current returns the latest snapshot.
func (s *Store) Current() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Replace installs a new validated catalog and returns its version.
func (s *Store) Replace(c *Catalog) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	c.version = s.version
	s.current = c
	return s.version
}

// Package varstore is an in-memory registry of annotation names. It maps names
// to the numeric ids carried by flow and packet annotations and back.
package varstore

import (
	"sync"

	"firestige.xyz/evelog/internal/core"
)

type entryKey struct {
	name string
	t    core.VarType
}

type idKey struct {
	id uint32
	t  core.VarType
}

// Store assigns ids per name and type. Ids start at 1 within each type.
type Store struct {
	mu     sync.RWMutex
	ids    map[entryKey]uint32
	names  map[idKey]string
	nextID map[core.VarType]uint32
}

// New returns an empty store.
func New() *Store {
	return &Store{
		ids:    make(map[entryKey]uint32),
		names:  make(map[idKey]string),
		nextID: make(map[core.VarType]uint32),
	}
}

// Register returns the id of name within t, allocating one on first use.
func (s *Store) Register(name string, t core.VarType) uint32 {
	k := entryKey{name: name, t: t}

	s.mu.RLock()
	id, ok := s.ids[k]
	s.mu.RUnlock()
	if ok {
		return id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.ids[k]; ok {
		return id
	}
	s.nextID[t]++
	id = s.nextID[t]
	s.ids[k] = id
	s.names[idKey{id: id, t: t}] = name
	return id
}

// Lookup returns the id registered for name within t.
func (s *Store) Lookup(name string, t core.VarType) (uint32, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ids[entryKey{name: name, t: t}]
	return id, ok
}

// LookupName implements core.NameResolver.
func (s *Store) LookupName(id uint32, t core.VarType) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.names[idKey{id: id, t: t}]
	return name, ok
}

// Len returns the number of registered names across all types.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

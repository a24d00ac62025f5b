package memmapper

import (
	"slices"
	"sort"
	"sync"

	"github.com/roach88/genesis/internal/model"
)

// Store holds the records of a MemoryMapper. A store is owned by whoever
// creates it; several stores (and several mappers over one store) may
// coexist in a process.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]*partition
}

// partition is one collection. Records keep insertion order; byKey maps the
// canonical index value to a position in records.
type partition struct {
	records []model.Instance
	byKey   map[string]int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{partitions: make(map[string]*partition)}
}

// Len returns the number of records in collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.partitions[collection]; ok {
		return len(p.records)
	}
	return 0
}

// Collections returns the names of non-empty collections in sorted order.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.partitions))
	for name, p := range s.partitions {
		if len(p.records) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Reset drops every record.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partitions = make(map[string]*partition)
}

// partitionLocked returns the named partition, creating it when create is
// set. Callers hold s.mu (write lock when create is set).
func (s *Store) partitionLocked(name string, create bool) *partition {
	p, ok := s.partitions[name]
	if !ok && create {
		p = &partition{byKey: make(map[string]int)}
		s.partitions[name] = p
	}
	return p
}

func (p *partition) get(key string) (model.Instance, bool) {
	if p == nil {
		return model.Instance{}, false
	}
	i, ok := p.byKey[key]
	if !ok {
		return model.Instance{}, false
	}
	return p.records[i], true
}

func (p *partition) insert(key string, inst model.Instance) {
	p.byKey[key] = len(p.records)
	p.records = append(p.records, inst)
}

func (p *partition) replace(key string, inst model.Instance) {
	p.records[p.byKey[key]] = inst
}

func (p *partition) remove(key string) {
	i := p.byKey[key]
	p.records = slices.Delete(p.records, i, i+1)
	delete(p.byKey, key)
	for k, j := range p.byKey {
		if j > i {
			p.byKey[k] = j - 1
		}
	}
}

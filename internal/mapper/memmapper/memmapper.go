// Package memmapper is a Mapper backed by process memory.
//
// Records live in an explicitly constructed Store, partitioned by the model
// type's collection name and keyed by the canonical encoding of the index
// value. A read/write mutex guards the store; the revision check and the
// write of Update and Destroy happen under one write lock.
//
// Distinct model types that share a collection name share a partition.
// Giving two types the same name is a caller error; model.Registry refuses
// it for manifest-defined types.
package memmapper

import (
	"context"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/mapper"
	"github.com/roach88/genesis/internal/model"
	"github.com/roach88/genesis/internal/query"
)

// Mapper implements mapper.Mapper over a Store.
type Mapper struct {
	store *Store
}

var _ mapper.Mapper = (*Mapper)(nil)

// New returns a mapper over store. A nil store gets a fresh one.
func New(store *Store) *Mapper {
	if store == nil {
		store = NewStore()
	}
	return &Mapper{store: store}
}

// Store returns the backing store.
func (m *Mapper) Store() *Store {
	return m.store
}

// Create stores inst as given.
func (m *Mapper) Create(ctx context.Context, inst model.Instance) (model.Instance, error) {
	_, key, err := mapper.KeyOf(inst)
	if err != nil {
		return model.Instance{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Instance{}, err
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	p := m.store.partitionLocked(inst.Type().Collection(), true)
	if _, exists := p.get(key); exists {
		return model.Instance{}, mapper.AlreadyExists(inst, nil)
	}
	p.insert(key, inst)
	return inst, nil
}

// Find scans t's partition in insertion order.
func (m *Mapper) Find(ctx context.Context, t *model.Type, where attr.Set) ([]model.Instance, error) {
	return m.find(ctx, t, where, 0)
}

// FindOne returns the first match of Find.
func (m *Mapper) FindOne(ctx context.Context, t *model.Type, where attr.Set) (model.Instance, bool, error) {
	found, err := m.find(ctx, t, where, 1)
	if err != nil || len(found) == 0 {
		return model.Instance{}, false, err
	}
	return found[0], true, nil
}

func (m *Mapper) find(ctx context.Context, t *model.Type, where attr.Set, limit int) ([]model.Instance, error) {
	if err := mapper.CheckType(t); err != nil {
		return nil, err
	}
	pred := query.Where(where)
	if err := query.Validate(pred); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	out := []model.Instance{}
	p := m.store.partitionLocked(t.Collection(), false)
	if p == nil {
		return out, nil
	}
	for _, inst := range p.records {
		if !query.Match(pred, inst.Attributes()) {
			continue
		}
		out = append(out, inst)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Update stores inst.Next() if the stored revision matches inst's.
func (m *Mapper) Update(ctx context.Context, inst model.Instance) (model.Instance, error) {
	_, key, err := mapper.KeyOf(inst)
	if err != nil {
		return model.Instance{}, err
	}
	next, err := inst.Next()
	if err != nil {
		return model.Instance{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Instance{}, err
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	p := m.store.partitionLocked(inst.Type().Collection(), false)
	stored, ok := p.get(key)
	if !ok {
		return model.Instance{}, mapper.NotFound(inst)
	}
	if stored.Revision() != inst.Revision() {
		return model.Instance{}, mapper.Conflict(inst)
	}
	p.replace(key, next)
	return next, nil
}

// Destroy removes the record if the stored revision matches inst's.
func (m *Mapper) Destroy(ctx context.Context, inst model.Instance) (model.Instance, error) {
	_, key, err := mapper.KeyOf(inst)
	if err != nil {
		return model.Instance{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Instance{}, err
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	p := m.store.partitionLocked(inst.Type().Collection(), false)
	stored, ok := p.get(key)
	if !ok {
		return model.Instance{}, mapper.NotFound(inst)
	}
	if stored.Revision() != inst.Revision() {
		return model.Instance{}, mapper.Conflict(inst)
	}
	p.remove(key)
	return inst, nil
}

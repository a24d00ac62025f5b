// Package docmapper is a Mapper backed by a document store.
//
// The mapper connects lazily on first use and shares the connection across
// calls until Close. Before a model type's collection is first used on a
// connection, the mapper ensures a unique index on the type's index
// attribute, so duplicate creates are rejected by the store itself.
//
// Update and Destroy are compare-and-swap operations: the write is
// conditioned on both the index value and the caller's revision, and a
// write that matches nothing is a concurrency conflict. No lock spans the
// existence check and the conditional write.
package docmapper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/docstore"
	"github.com/roach88/genesis/internal/mapper"
	"github.com/roach88/genesis/internal/model"
	"github.com/roach88/genesis/internal/query"
)

// Mapper implements mapper.Mapper over a document store.
type Mapper struct {
	url    string
	dial   Dialer
	logger *slog.Logger

	mu      sync.Mutex
	conn    Conn
	indexed map[string]bool
}

var _ mapper.Mapper = (*Mapper)(nil)

// Option configures New.
type Option func(*Mapper)

// WithURL sets the store URL. Defaults to docstore.DefaultURL.
func WithURL(url string) Option {
	return func(m *Mapper) { m.url = url }
}

// WithDialer replaces the connection factory. Defaults to StoreDialer().
func WithDialer(dial Dialer) Option {
	return func(m *Mapper) { m.dial = dial }
}

// WithLogger sets the logger for connection lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mapper) { m.logger = logger }
}

// New returns a mapper. No connection is made until the first operation.
func New(opts ...Option) *Mapper {
	m := &Mapper{
		url:    docstore.DefaultURL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.dial == nil {
		m.dial = StoreDialer(docstore.WithLogger(m.logger))
	}
	return m
}

// URL returns the store URL.
func (m *Mapper) URL() string {
	return m.url
}

// Close releases the connection. The next operation reconnects.
func (m *Mapper) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	m.indexed = nil
	m.logger.Debug("docmapper disconnected", "url", m.url)
	if err != nil {
		return mapper.Backend("close", err)
	}
	return nil
}

// Drop removes every collection in the store. Unique indexes are ensured
// again on the next use of each model type.
func (m *Mapper) Drop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.connectLocked(ctx); err != nil {
		return err
	}
	if err := m.conn.Drop(ctx); err != nil {
		return mapper.Backend("drop", err)
	}
	m.indexed = make(map[string]bool)
	m.logger.Debug("docmapper dropped store", "url", m.url)
	return nil
}

// Count returns the number of stored t documents matching where.
func (m *Mapper) Count(ctx context.Context, t *model.Type, where attr.Set) (int64, error) {
	if err := mapper.CheckType(t); err != nil {
		return 0, err
	}
	pred := query.Where(where)
	if err := query.Validate(pred); err != nil {
		return 0, err
	}
	coll, err := m.collection(ctx, t)
	if err != nil {
		return 0, err
	}
	n, err := coll.Count(ctx, pred)
	if err != nil {
		return 0, mapper.Backend("count", err)
	}
	return n, nil
}

// Indexes returns the attributes with a unique index in t's collection.
func (m *Mapper) Indexes(ctx context.Context, t *model.Type) ([]string, error) {
	if err := mapper.CheckType(t); err != nil {
		return nil, err
	}
	coll, err := m.collection(ctx, t)
	if err != nil {
		return nil, err
	}
	fields, err := coll.UniqueIndexes(ctx)
	if err != nil {
		return nil, mapper.Backend("list indexes", err)
	}
	return fields, nil
}

func (m *Mapper) connectLocked(ctx context.Context) error {
	if m.conn != nil {
		return nil
	}
	conn, err := m.dial(ctx, m.url)
	if err != nil {
		return mapper.Backend("connect to "+m.url, err)
	}
	m.conn = conn
	m.indexed = make(map[string]bool)
	m.logger.Debug("docmapper connected", "url", m.url)
	return nil
}

// collection returns t's collection, connecting and ensuring the unique
// index first if needed.
func (m *Mapper) collection(ctx context.Context, t *model.Type) (Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.connectLocked(ctx); err != nil {
		return nil, err
	}

	coll := m.conn.Collection(t.Collection())
	if t.HasIndex() {
		key := t.Collection() + "\x00" + t.Index()
		if !m.indexed[key] {
			if err := coll.EnsureUniqueIndex(ctx, t.Index()); err != nil {
				return nil, mapper.Backend("ensure index on "+t.Collection(), err)
			}
			m.indexed[key] = true
			m.logger.Debug("unique index ensured", "collection", t.Collection(), "field", t.Index())
		}
	}
	return coll, nil
}

// Create inserts inst.
func (m *Mapper) Create(ctx context.Context, inst model.Instance) (model.Instance, error) {
	if _, _, err := mapper.KeyOf(inst); err != nil {
		return model.Instance{}, err
	}
	coll, err := m.collection(ctx, inst.Type())
	if err != nil {
		return model.Instance{}, err
	}

	if err := coll.Insert(ctx, inst.Attributes()); err != nil {
		if docstore.IsDuplicateKey(err) {
			return model.Instance{}, mapper.AlreadyExists(inst, err)
		}
		return model.Instance{}, mapper.Backend("create", err)
	}
	return inst, nil
}

// Find queries t's collection and rebuilds every document through t.
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
	coll, err := m.collection(ctx, t)
	if err != nil {
		return nil, err
	}

	docs, err := coll.Find(ctx, pred, limit)
	if err != nil {
		return nil, mapper.Backend("find", err)
	}

	out := make([]model.Instance, 0, len(docs))
	for _, doc := range docs {
		delete(doc, docstore.IDField)
		inst, err := t.New(doc)
		if err != nil {
			return nil, &mapper.Error{
				Code:    mapper.ErrCodeBackend,
				Message: fmt.Sprintf("stored %s document no longer satisfies the model type", t.Collection()),
				Err:     err,
			}
		}
		out = append(out, inst)
	}
	return out, nil
}

// Update writes inst.Next() if the stored revision matches inst's.
func (m *Mapper) Update(ctx context.Context, inst model.Instance) (model.Instance, error) {
	key, _, err := mapper.KeyOf(inst)
	if err != nil {
		return model.Instance{}, err
	}
	next, err := inst.Next()
	if err != nil {
		return model.Instance{}, err
	}
	coll, err := m.collection(ctx, inst.Type())
	if err != nil {
		return model.Instance{}, err
	}

	if err := m.exists(ctx, coll, inst, key); err != nil {
		return model.Instance{}, err
	}

	n, err := coll.UpdateOne(ctx, casFilter(inst, key), next.Attributes())
	if err != nil {
		if docstore.IsDuplicateKey(err) {
			return model.Instance{}, mapper.AlreadyExists(next, err)
		}
		return model.Instance{}, mapper.Backend("update", err)
	}
	if n == 0 {
		return model.Instance{}, mapper.Conflict(inst)
	}
	return next, nil
}

// Destroy removes the record if the stored revision matches inst's.
func (m *Mapper) Destroy(ctx context.Context, inst model.Instance) (model.Instance, error) {
	key, _, err := mapper.KeyOf(inst)
	if err != nil {
		return model.Instance{}, err
	}
	coll, err := m.collection(ctx, inst.Type())
	if err != nil {
		return model.Instance{}, err
	}

	if err := m.exists(ctx, coll, inst, key); err != nil {
		return model.Instance{}, err
	}

	n, err := coll.RemoveOne(ctx, casFilter(inst, key))
	if err != nil {
		return model.Instance{}, mapper.Backend("destroy", err)
	}
	if n == 0 {
		return model.Instance{}, mapper.Conflict(inst)
	}
	return inst, nil
}

func (m *Mapper) exists(ctx context.Context, coll Collection, inst model.Instance, key attr.Value) error {
	docs, err := coll.Find(ctx, query.Where(attr.Set{inst.Type().Index(): key}), 1)
	if err != nil {
		return mapper.Backend("lookup", err)
	}
	if len(docs) == 0 {
		return mapper.NotFound(inst)
	}
	return nil
}

// casFilter matches the stored record only while it still carries inst's
// revision.
func casFilter(inst model.Instance, key attr.Value) query.Predicate {
	return query.Where(attr.Set{
		inst.Type().Index(): key,
		model.RevisionField: attr.Int(inst.Revision()),
	})
}

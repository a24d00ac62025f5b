package docmapper

import (
	"context"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/docstore"
	"github.com/roach88/genesis/internal/query"
)

// Conn is an open document store connection.
type Conn interface {
	Collection(name string) Collection
	Drop(ctx context.Context) error
	Close() error
}

// Collection is the per-collection capability the mapper consumes.
// *docstore.Collection implements it.
type Collection interface {
	EnsureUniqueIndex(ctx context.Context, field string) error
	Insert(ctx context.Context, doc attr.Set) error
	Find(ctx context.Context, filter query.Predicate, limit int) ([]attr.Set, error)
	UpdateOne(ctx context.Context, filter query.Predicate, doc attr.Set) (int64, error)
	RemoveOne(ctx context.Context, filter query.Predicate) (int64, error)
	Count(ctx context.Context, filter query.Predicate) (int64, error)
	UniqueIndexes(ctx context.Context) ([]string, error)
}

// Dialer opens a connection to the store at url.
type Dialer func(ctx context.Context, url string) (Conn, error)

var _ Collection = (*docstore.Collection)(nil)

// StoreDialer dials docstore clients with opts.
func StoreDialer(opts ...docstore.Option) Dialer {
	return func(ctx context.Context, url string) (Conn, error) {
		client, err := docstore.Open(ctx, url, opts...)
		if err != nil {
			return nil, err
		}
		return storeConn{client}, nil
	}
}

type storeConn struct {
	client *docstore.Client
}

func (c storeConn) Collection(name string) Collection {
	return c.client.Collection(name)
}

func (c storeConn) Drop(ctx context.Context) error {
	return c.client.Drop(ctx)
}

func (c storeConn) Close() error {
	return c.client.Close()
}

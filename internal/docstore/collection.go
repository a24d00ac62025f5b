package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/query"
)

// IDField is the attribute under which reads expose a document's row id.
const IDField = "_id"

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Collection is a handle to one named collection.
type Collection struct {
	client *Client
	name   string
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// EnsureUniqueIndex makes field a unique key of the collection. It is
// idempotent. Fails with ErrDuplicateKey if stored documents already
// violate the constraint.
func (c *Collection) EnsureUniqueIndex(ctx context.Context, field string) error {
	if !fieldPattern.MatchString(field) {
		return fmt.Errorf("ensure unique index on %s: invalid field name %q", c.name, field)
	}
	table, err := c.client.table(ctx, c.name)
	if err != nil {
		return err
	}

	index := "uniq_" + c.name + "_" + field
	stmt := fmt.Sprintf(
		`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (json_type(doc, '$.%s'), json_extract(doc, '$.%s'))`,
		quoteIdent(index), quoteIdent(table), field, field)
	if _, err := c.client.db.ExecContext(ctx, stmt); err != nil {
		return classify("ensure unique index on "+c.name, err)
	}

	res, err := c.client.db.ExecContext(ctx, `
		INSERT INTO unique_indexes (collection, field, index_name)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, c.name, field, index)
	if err != nil {
		return fmt.Errorf("ensure unique index on %s: %w", c.name, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		c.client.logger.Debug("unique index created", "collection", c.name, "field", field)
	}
	return nil
}

// UniqueIndexes lists the fields with a unique index, in sorted order.
func (c *Collection) UniqueIndexes(ctx context.Context) ([]string, error) {
	rows, err := c.client.db.QueryContext(ctx,
		`SELECT field FROM unique_indexes WHERE collection = ? ORDER BY field ASC COLLATE BINARY`, c.name)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", c.name, err)
	}
	defer rows.Close()

	fields := []string{}
	for rows.Next() {
		var field string
		if err := rows.Scan(&field); err != nil {
			return nil, fmt.Errorf("list indexes of %s: %w", c.name, err)
		}
		fields = append(fields, field)
	}
	return fields, rows.Err()
}

// Insert stores doc as a new document. An IDField attribute in doc is
// ignored.
func (c *Collection) Insert(ctx context.Context, doc attr.Set) error {
	table, err := c.client.table(ctx, c.name)
	if err != nil {
		return err
	}
	data, err := encode(doc)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", c.name, err)
	}

	_, err = c.client.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (doc) VALUES (?)`, quoteIdent(table)), data)
	if err != nil {
		return classify("insert into "+c.name, err)
	}
	return nil
}

// Find returns the documents matching filter in insertion order, each with
// its row id under IDField. limit <= 0 means no limit.
func (c *Collection) Find(ctx context.Context, filter query.Predicate, limit int) ([]attr.Set, error) {
	table, err := c.client.table(ctx, c.name)
	if err != nil {
		return nil, err
	}
	where, params, err := compileFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}

	stmt := fmt.Sprintf(`SELECT id, doc FROM %s WHERE %s ORDER BY id ASC`, quoteIdent(table), where)
	if limit > 0 {
		stmt += " LIMIT ?"
		params = append(params, limit)
	}

	rows, err := c.client.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}
	defer rows.Close()

	docs := []attr.Set{}
	for rows.Next() {
		var (
			id   int64
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("find in %s: %w", c.name, err)
		}
		doc, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("find in %s: document %d: %w", c.name, id, err)
		}
		doc[IDField] = attr.Int(id)
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.name, err)
	}
	return docs, nil
}

// Count returns the number of documents matching filter.
func (c *Collection) Count(ctx context.Context, filter query.Predicate) (int64, error) {
	table, err := c.client.table(ctx, c.name)
	if err != nil {
		return 0, err
	}
	where, params, err := compileFilter(filter)
	if err != nil {
		return 0, fmt.Errorf("count in %s: %w", c.name, err)
	}

	var n int64
	err = c.client.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, quoteIdent(table), where), params...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count in %s: %w", c.name, err)
	}
	return n, nil
}

// UpdateOne replaces the first document matching filter with doc, keeping
// its row id. It returns the number of documents replaced (0 or 1).
func (c *Collection) UpdateOne(ctx context.Context, filter query.Predicate, doc attr.Set) (int64, error) {
	table, err := c.client.table(ctx, c.name)
	if err != nil {
		return 0, err
	}
	where, params, err := compileFilter(filter)
	if err != nil {
		return 0, fmt.Errorf("update in %s: %w", c.name, err)
	}
	data, err := encode(doc)
	if err != nil {
		return 0, fmt.Errorf("update in %s: %w", c.name, err)
	}

	t := quoteIdent(table)
	stmt := fmt.Sprintf(
		`UPDATE %s SET doc = ? WHERE id = (SELECT id FROM %s WHERE %s ORDER BY id ASC LIMIT 1)`,
		t, t, where)
	res, err := c.client.db.ExecContext(ctx, stmt, append([]any{data}, params...)...)
	if err != nil {
		return 0, classify("update in "+c.name, err)
	}
	return rowsAffected(res, "update in "+c.name)
}

// RemoveOne deletes the first document matching filter. It returns the
// number of documents deleted (0 or 1).
func (c *Collection) RemoveOne(ctx context.Context, filter query.Predicate) (int64, error) {
	table, err := c.client.table(ctx, c.name)
	if err != nil {
		return 0, err
	}
	where, params, err := compileFilter(filter)
	if err != nil {
		return 0, fmt.Errorf("remove from %s: %w", c.name, err)
	}

	t := quoteIdent(table)
	stmt := fmt.Sprintf(
		`DELETE FROM %s WHERE id = (SELECT id FROM %s WHERE %s ORDER BY id ASC LIMIT 1)`,
		t, t, where)
	res, err := c.client.db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return 0, fmt.Errorf("remove from %s: %w", c.name, err)
	}
	return rowsAffected(res, "remove from "+c.name)
}

func rowsAffected(res sql.Result, op string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func encode(doc attr.Set) (string, error) {
	clean := doc
	if _, ok := doc[IDField]; ok {
		clean = doc.Clone()
		delete(clean, IDField)
	}
	data, err := attr.MarshalCanonical(clean)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decode(data string) (attr.Set, error) {
	var doc attr.Set
	if err := doc.UnmarshalJSON([]byte(data)); err != nil {
		return nil, err
	}
	return doc, nil
}

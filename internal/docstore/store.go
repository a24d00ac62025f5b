package docstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Collection catalog
// 1 - Added unique_indexes catalog
const currentSchemaVersion = 1

// DefaultBusyTimeout is the busy timeout in milliseconds when none is
// configured.
const DefaultBusyTimeout = 5000

// Client is an open document store. It is safe for concurrent use.
type Client struct {
	db       *sql.DB
	location Location
	path     string
	logger   *slog.Logger

	mu     sync.Mutex
	tables map[string]string // collection name -> table name
}

type options struct {
	dataDir     string
	busyTimeout int
	logger      *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithDataDir sets the directory for sqlite://localhost/<name> databases.
// Defaults to the working directory.
func WithDataDir(dir string) Option {
	return func(o *options) { o.dataDir = dir }
}

// WithBusyTimeout sets the SQLite busy timeout in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(o *options) { o.busyTimeout = ms }
}

// WithLogger sets the logger for connection lifecycle and schema changes.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Open connects to the database addressed by rawURL, creating it (and its
// directory) if needed, and applies the catalog schema.
func Open(ctx context.Context, rawURL string, opts ...Option) (*Client, error) {
	o := options{busyTimeout: DefaultBusyTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	path := loc.Path(o.dataDir)
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", loc.DSN(o.dataDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// Keeping the single connection idle forever also keeps shared-cache
	// in-memory databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db, o.busyTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	o.logger.Debug("docstore opened", "url", loc.String(), "path", path)

	return &Client{
		db:       db,
		location: loc,
		path:     path,
		logger:   o.logger,
		tables:   make(map[string]string),
	}, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	c.logger.Debug("docstore closed", "url", c.location.String())
	return c.db.Close()
}

// Location returns the parsed URL the client was opened with.
func (c *Client) Location() Location {
	return c.location
}

// Path returns the database file, or "" for in-memory databases.
func (c *Client) Path() string {
	return c.path
}

// Collection returns a handle to the named collection. The backing table
// is created on first use.
func (c *Client) Collection(name string) *Collection {
	return &Collection{client: c, name: name}
}

// Collections lists existing collections in creation order.
func (c *Client) Collections(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name FROM collections ORDER BY created_seq ASC, name ASC COLLATE BINARY`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return names, nil
}

// Drop removes every collection with its documents and indexes.
func (c *Client) Drop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT table_name FROM collections`)
	if err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			rows.Close()
			return fmt.Errorf("drop: %w", err)
		}
		tables = append(tables, table)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("drop: %w", err)
	}

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM unique_indexes`); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM collections`); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop: %w", err)
	}

	c.tables = make(map[string]string)
	c.logger.Debug("docstore dropped", "url", c.location.String(), "collections", len(tables))
	return nil
}

// table returns the table backing collection name, creating it and its
// catalog entry if needed.
func (c *Client) table(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("collection name must not be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if table, ok := c.tables[name]; ok {
		return table, nil
	}

	table := "coll_" + name
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("create collection %s: %w", name, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id  INTEGER PRIMARY KEY AUTOINCREMENT,
			doc TEXT NOT NULL CHECK (json_valid(doc))
		)`, quoteIdent(table)))
	if err != nil {
		return "", fmt.Errorf("create collection %s: %w", name, err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO collections (name, table_name, created_seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(created_seq), 0) + 1 FROM collections))
		ON CONFLICT(name) DO NOTHING
	`, name, table)
	if err != nil {
		return "", fmt.Errorf("create collection %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("create collection %s: %w", name, err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		c.logger.Debug("collection created", "collection", name)
	}
	c.tables[name] = table
	return table, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB, busyTimeout int) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the catalog if it doesn't exist and runs migrations.
// This function is idempotent.
func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(ctx, db); err != nil {
			return err
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the catalog of unique indexes.
func migrateToV1(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS unique_indexes (
			collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
			field      TEXT NOT NULL,
			index_name TEXT NOT NULL UNIQUE,
			PRIMARY KEY (collection, field)
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (c *Client) verifyPragma(name, expected string) error {
	var value string
	if err := c.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

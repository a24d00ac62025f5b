// Package docstore is a document store on SQLite.
//
// A Client owns one database. The database holds named collections; each
// collection is a table with one JSON document per row, and documents are
// canonical JSON encodings of attribute sets. Rows are numbered by an
// autoincrement id that is exposed to readers as the "_id" attribute and
// never reused, so reads return documents in insertion order.
//
// # Locations
//
// Databases are addressed by URL:
//
//	sqlite://localhost/test      <data dir>/test.db (DefaultURL)
//	sqlite://memory/scratch      shared-cache in-memory database "scratch"
//	sqlite:///var/lib/app/main   /var/lib/app/main.db
//
// # Unique indexes
//
// EnsureUniqueIndex creates an expression index over the JSON type and
// value of one attribute, so 1, true and "1" are distinct keys. Documents
// missing the attribute are not constrained. A write that violates an index
// fails with an error wrapping ErrDuplicateKey.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks (default 5 seconds)
//   - foreign_keys=ON: Catalog integrity
//   - Single open connection: SQLite has one writer
package docstore

package docstore

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateKey is wrapped by writes that violate a unique index.
var ErrDuplicateKey = errors.New("duplicate key")

// IsDuplicateKey reports whether err is a unique index violation.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// classify maps SQLite unique constraint failures to ErrDuplicateKey.
func classify(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%s: %w: %w", op, ErrDuplicateKey, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

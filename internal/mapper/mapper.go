// Package mapper defines the storage contract for model instances.
//
// A Mapper stores instances of indexed model types in per-type collections,
// keyed by the value of the type's index attribute. Writes are guarded by
// the instance revision: Update and Destroy succeed only when the caller's
// revision matches the stored one, and Update stores the instance with its
// revision incremented.
//
// Backends live in subpackages (memmapper, docmapper) and share the
// precondition checks and error values defined here, so callers can switch
// backends without changing error handling:
//
//	saved, err := m.Update(ctx, inst)
//	switch {
//	case errors.Is(err, mapper.ErrConcurrencyConflict):
//	    // reload and retry
//	case errors.Is(err, mapper.ErrNotFound):
//	    // record was destroyed
//	}
package mapper

import (
	"context"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/model"
)

// Mapper is the CRUD contract every storage backend implements.
//
// Create, Update and Destroy require a genuine instance (TypeMismatch) whose
// type declares an index and which carries a value for it (MissingIndex).
// Find and FindOne require a model type (AmbiguousType). All methods are
// safe for concurrent use.
type Mapper interface {
	// Create stores inst. Fails with AlreadyExists if a record with the
	// same index value exists.
	Create(ctx context.Context, inst model.Instance) (model.Instance, error)

	// Find returns every record of t whose attributes include all of where,
	// in storage order. No match yields an empty, non-nil slice.
	Find(ctx context.Context, t *model.Type, where attr.Set) ([]model.Instance, error)

	// FindOne returns the first record Find would return.
	FindOne(ctx context.Context, t *model.Type, where attr.Set) (model.Instance, bool, error)

	// Update replaces the stored record with inst.Next(), provided the
	// stored revision equals inst's. Fails with NotFound or
	// ConcurrencyConflict.
	Update(ctx context.Context, inst model.Instance) (model.Instance, error)

	// Destroy removes the stored record, provided the stored revision
	// equals inst's, and returns inst. Fails with NotFound or
	// ConcurrencyConflict.
	Destroy(ctx context.Context, inst model.Instance) (model.Instance, error)
}

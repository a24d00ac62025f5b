package query

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidQuery is wrapped by every error Validate returns.
var ErrInvalidQuery = errors.New("invalid query")

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that p can be evaluated by every backend: field names are
// plain identifiers and every compared value is present.
func Validate(p Predicate) error {
	switch pred := p.(type) {
	case nil:
		return nil
	case Equals:
		if !fieldPattern.MatchString(pred.Field) {
			return fmt.Errorf("%w: field name %q must be an identifier", ErrInvalidQuery, pred.Field)
		}
		if pred.Value == nil {
			return fmt.Errorf("%w: field %q has no value", ErrInvalidQuery, pred.Field)
		}
		return nil
	case And:
		for _, child := range pred.Predicates {
			if err := Validate(child); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown predicate %T", ErrInvalidQuery, p)
	}
}

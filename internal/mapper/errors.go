package mapper

import (
	"errors"
	"fmt"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/model"
)

// ErrorCode categorizes mapper errors.
type ErrorCode string

const (
	// ErrCodeTypeMismatch indicates the argument is not a model instance.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeMissingIndex indicates the type declares no index, or the
	// instance has no value for it.
	ErrCodeMissingIndex ErrorCode = "MISSING_INDEX"

	// ErrCodeAlreadyExists indicates a record with the same index value is
	// already stored.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// ErrCodeNotFound indicates no record with the instance's index value
	// is stored.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeConcurrencyConflict indicates the stored revision differs from
	// the instance's.
	ErrCodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"

	// ErrCodeAmbiguousType indicates a query without a model type.
	ErrCodeAmbiguousType ErrorCode = "AMBIGUOUS_TYPE"

	// ErrCodeBackend indicates the storage backend failed, or returned data
	// that no longer satisfies the model type.
	ErrCodeBackend ErrorCode = "BACKEND"
)

// Error is the error type returned by every mapper.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so the sentinel values below
// work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel values for errors.Is.
var (
	ErrTypeMismatch        = &Error{Code: ErrCodeTypeMismatch, Message: "not a model instance"}
	ErrMissingIndex        = &Error{Code: ErrCodeMissingIndex, Message: "cannot map models without an index"}
	ErrAlreadyExists       = &Error{Code: ErrCodeAlreadyExists, Message: "record already exists"}
	ErrNotFound            = &Error{Code: ErrCodeNotFound, Message: "record does not exist"}
	ErrConcurrencyConflict = &Error{Code: ErrCodeConcurrencyConflict, Message: "revision mismatch"}
	ErrAmbiguousType       = &Error{Code: ErrCodeAmbiguousType, Message: "query requires a model type"}
	ErrBackend             = &Error{Code: ErrCodeBackend, Message: "backend failure"}
)

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var me *Error
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// AlreadyExists reports a duplicate index value for inst.
func AlreadyExists(inst model.Instance, cause error) error {
	return &Error{
		Code:    ErrCodeAlreadyExists,
		Message: describe(inst) + " already exists",
		Err:     cause,
	}
}

// NotFound reports that no record matches inst's index value.
func NotFound(inst model.Instance) error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: describe(inst) + " does not exist",
	}
}

// Conflict reports a revision mismatch for inst.
func Conflict(inst model.Instance) error {
	return &Error{
		Code:    ErrCodeConcurrencyConflict,
		Message: fmt.Sprintf("%s was modified (revision %d is stale)", describe(inst), inst.Revision()),
	}
}

// Backend wraps a storage failure during op.
func Backend(op string, err error) error {
	return &Error{Code: ErrCodeBackend, Message: op, Err: err}
}

func describe(inst model.Instance) string {
	t := inst.Type()
	if t == nil {
		return "record"
	}
	key, ok := inst.Key()
	if !ok {
		return t.Name()
	}
	return fmt.Sprintf("%s with %s %s", t.Name(), t.Index(), attr.Format(key))
}

package schema

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// ErrorCode classifies schema failures.
type ErrorCode string

const (
	// ErrCodeValidation means an attribute set does not satisfy a schema.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeComposition means two fragments cannot be combined, or a
	// fragment could not be built at all.
	ErrCodeComposition ErrorCode = "COMPOSITION"
)

// Error is returned by every schema operation. Field is the dotted path of
// the offending attribute when one is known.
type Error struct {
	Code    ErrorCode
	Field   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Code == ErrCodeComposition {
		b.WriteString("schema composition: ")
	} else {
		b.WriteString("invalid attributes: ")
	}
	if e.Pos.IsValid() && e.Pos.Filename() != "" {
		fmt.Fprintf(&b, "%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a schema validation failure.
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsComposition reports whether err is a schema composition failure.
func IsComposition(err error) bool {
	return hasCode(err, ErrCodeComposition)
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// fromCUE keeps the first CUE error with its path and position.
func fromCUE(code ErrorCode, err error) *Error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: code, Message: err.Error(), Err: err}
	}

	first := errs[0]
	format, args := first.Msg()
	e := &Error{
		Code:    code,
		Field:   strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	if len(errs) > 1 {
		e.Message += fmt.Sprintf(" (and %d more errors)", len(errs)-1)
	}
	return e
}

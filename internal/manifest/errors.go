package manifest

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// ErrorCode categorizes manifest errors.
type ErrorCode string

const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"      // Manifest directory missing
	ErrCodeNoFiles       ErrorCode = "NO_FILES"       // No CUE files found
	ErrCodeLoadFailed    ErrorCode = "LOAD_FAILED"    // CUE load failed
	ErrCodeBuildFailed   ErrorCode = "BUILD_FAILED"   // CUE build failed
	ErrCodeNoModels      ErrorCode = "NO_MODELS"      // No model declarations
	ErrCodeInvalidModel  ErrorCode = "INVALID_MODEL"  // Declaration has the wrong shape
	ErrCodeUnknownParent ErrorCode = "UNKNOWN_PARENT" // extends names an undeclared model
	ErrCodeCycle         ErrorCode = "CYCLE"          // extends chain loops
	ErrCodeSchema        ErrorCode = "SCHEMA"         // Schema does not compose
	ErrCodeDuplicate     ErrorCode = "DUPLICATE"      // Name or collection taken
)

// Error is a manifest error with the CUE position of the offending
// declaration when one is known.
type Error struct {
	Code    ErrorCode
	Model   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Model != "" {
		msg = "model " + e.Model + ": " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

package model

import "errors"

var (
	// ErrInvalidName is returned when a type is created without a name.
	ErrInvalidName = errors.New("invalid model type name")

	// ErrNoMethod is returned by Instance.Call for unknown methods.
	ErrNoMethod = errors.New("no such method")

	// ErrNotInstance is returned when a zero Instance is used as a model.
	ErrNotInstance = errors.New("not a model instance")

	// ErrDuplicateType is returned by Registry.Register when a name or
	// collection is already taken.
	ErrDuplicateType = errors.New("duplicate model type")
)

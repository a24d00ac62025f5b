package mapper

import (
	"fmt"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/model"
)

// CheckInstance verifies the preconditions of Create, Update and Destroy.
func CheckInstance(inst model.Instance) error {
	if !inst.Valid() {
		return ErrTypeMismatch
	}
	t := inst.Type()
	if !t.HasIndex() {
		return &Error{
			Code:    ErrCodeMissingIndex,
			Message: fmt.Sprintf("cannot map %s: type declares no index", t.Name()),
		}
	}
	if _, ok := inst.Key(); !ok {
		return &Error{
			Code:    ErrCodeMissingIndex,
			Message: fmt.Sprintf("cannot map %s: no value for index %q", t.Name(), t.Index()),
		}
	}
	return nil
}

// CheckType verifies the precondition of Find and FindOne.
func CheckType(t *model.Type) error {
	if t == nil {
		return ErrAmbiguousType
	}
	return nil
}

// KeyOf returns inst's index value and its canonical encoding, which
// backends use as the record key. It applies CheckInstance first.
func KeyOf(inst model.Instance) (attr.Value, string, error) {
	if err := CheckInstance(inst); err != nil {
		return nil, "", err
	}
	v, _ := inst.Key()
	key, err := attr.Key(v)
	if err != nil {
		return nil, "", Backend("encode index value", err)
	}
	return v, key, nil
}

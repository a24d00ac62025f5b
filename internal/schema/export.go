package schema

import (
	"strconv"

	"cuelang.org/go/cue"

	"github.com/roach88/genesis/internal/attr"
)

// export converts a concrete, validated CUE value back into an attribute
// value. Defaults are resolved; optional fields without data are dropped.
func export(v cue.Value, path string) (attr.Value, error) {
	v, _ = v.Default()

	switch v.Kind() {
	case cue.NullKind:
		return attr.Null{}, nil

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, fromCUE(ErrCodeValidation, err)
		}
		return attr.Bool(b), nil

	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, fromCUE(ErrCodeValidation, err)
		}
		return attr.Int(n), nil

	case cue.StringKind:
		str, err := v.String()
		if err != nil {
			return nil, fromCUE(ErrCodeValidation, err)
		}
		return attr.String(str), nil

	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, fromCUE(ErrCodeValidation, err)
		}
		list := attr.List{}
		for i := 0; iter.Next(); i++ {
			item, err := export(iter.Value(), joinIndex(path, i))
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil

	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, fromCUE(ErrCodeValidation, err)
		}
		set := attr.Set{}
		for iter.Next() {
			sel := iter.Selector()
			if !sel.IsString() {
				continue
			}
			name := sel.Unquoted()
			item, err := export(iter.Value(), joinField(path, name))
			if err != nil {
				return nil, err
			}
			set[name] = item
		}
		return set, nil

	case cue.FloatKind, cue.NumberKind:
		return nil, &Error{
			Code:    ErrCodeValidation,
			Field:   path,
			Message: "floating point values are not supported",
			Pos:     v.Pos(),
		}

	default:
		return nil, &Error{
			Code:    ErrCodeValidation,
			Field:   path,
			Message: "unsupported value of kind " + v.Kind().String(),
			Pos:     v.Pos(),
		}
	}
}

func joinField(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func joinIndex(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

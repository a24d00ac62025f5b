package docstore

import (
	"fmt"
	"strings"

	"github.com/roach88/genesis/internal/attr"
	"github.com/roach88/genesis/internal/query"
)

// compileFilter compiles a predicate to a parameterized WHERE fragment over
// the doc column. Values and JSON paths are always bound as parameters.
func compileFilter(p query.Predicate) (string, []any, error) {
	if err := query.Validate(p); err != nil {
		return "", nil, err
	}
	return compilePredicate(p)
}

func compilePredicate(p query.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case query.Equals:
		return compileEquals(pred)
	case query.And:
		return compileAnd(pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals matches both the JSON type and the value, so that 1, true
// and "1" never compare equal.
func compileEquals(pred query.Equals) (string, []any, error) {
	path := "$." + pred.Field

	switch v := pred.Value.(type) {
	case attr.Null:
		return "json_type(doc, ?) = 'null'", []any{path}, nil
	case attr.Bool:
		if v {
			return "json_type(doc, ?) = 'true'", []any{path}, nil
		}
		return "json_type(doc, ?) = 'false'", []any{path}, nil
	case attr.Int:
		return "(json_type(doc, ?) = 'integer' AND json_extract(doc, ?) = ?)",
			[]any{path, path, int64(v)}, nil
	case attr.String:
		return "(json_type(doc, ?) = 'text' AND json_extract(doc, ?) = ?)",
			[]any{path, path, string(v)}, nil
	case attr.List, attr.Set:
		// Stored documents are canonical, so nested values compare as
		// canonical JSON text.
		kind := "array"
		if _, ok := v.(attr.Set); ok {
			kind = "object"
		}
		text, err := attr.MarshalCanonical(v)
		if err != nil {
			return "", nil, fmt.Errorf("compile %s: %w", pred.Field, err)
		}
		return "(json_type(doc, ?) = '" + kind + "' AND json_extract(doc, ?) = ?)",
			[]any{path, path, string(text)}, nil
	default:
		return "", nil, fmt.Errorf("compile %s: unsupported value %T", pred.Field, pred.Value)
	}
}

func compileAnd(pred query.And) (string, []any, error) {
	if len(pred.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(pred.Predicates))
	var params []any
	for _, child := range pred.Predicates {
		sql, childParams, err := compilePredicate(child)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, childParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

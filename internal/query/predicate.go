package query

import (
	"github.com/roach88/genesis/internal/attr"
)

// Predicate is a filter over a record's attributes.
type Predicate interface {
	predicateNode()
}

// Equals holds when the record carries Field with a value equal to Value.
type Equals struct {
	Field string
	Value attr.Value
}

func (Equals) predicateNode() {}

// And holds when every child predicate holds. An empty And matches every
// record.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Where builds the predicate for a mapper query set. Conditions are ordered
// by attribute name so the result is deterministic.
func Where(where attr.Set) Predicate {
	keys := where.Keys()
	preds := make([]Predicate, 0, len(keys))
	for _, k := range keys {
		preds = append(preds, Equals{Field: k, Value: where[k]})
	}
	return And{Predicates: preds}
}

// Match evaluates p against attrs.
func Match(p Predicate, attrs attr.Set) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case Equals:
		v, ok := attrs[pred.Field]
		return ok && attr.Equal(v, pred.Value)
	case And:
		for _, child := range pred.Predicates {
			if !Match(child, attrs) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Fields lists the attribute names p refers to, in traversal order.
func Fields(p Predicate) []string {
	var out []string
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch pred := p.(type) {
		case Equals:
			out = append(out, pred.Field)
		case And:
			for _, child := range pred.Predicates {
				walk(child)
			}
		}
	}
	walk(p)
	return out
}

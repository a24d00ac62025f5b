// Package query provides the equality predicates mappers evaluate.
//
// A mapper query is an attribute set: every attribute must be present on a
// record with an equal value. Where turns such a set into a Predicate tree
// that backends either evaluate directly (Match) or compile into their own
// query language.
//
// SEALED INTERFACE:
//
// Predicate is sealed with a marker method, so backends can switch over
// Equals and And exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	    // field = value
//	case And:
//	    // every child holds
//	}
//
// Values are attr values. Equality is structural (attr.Equal): lists compare
// element-wise, objects compare key-wise, and a null value matches only a
// stored null, never a missing attribute.
package query

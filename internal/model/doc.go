// Package model implements model types and their immutable instances.
//
// A model type is built once, by Create or Extend, and is fixed afterwards.
// Creation resolves the whole derivation chain up front: the effective
// schema is the conjunction of every ancestor's fragment, the method table
// is the ancestors' tables with the nearest definition winning, and the
// capability tag is the set of ancestor type IDs.
//
//	person, _ := model.Create("Person", model.Options{
//		Index:  "email",
//		Schema: schema.MustFields(`email: string, age?: int`),
//	})
//	employee, _ := person.Extend("Employee", model.Options{
//		Schema: schema.MustOpen(`company: string`),
//	})
//	e, _ := employee.NewFromMap(map[string]any{"email": "a@x", "company": "acme"})
//	e.Is(person)   // true
//	e.Revision()   // 0
//
// Instances are values. They carry their type, a validated attribute set
// that always includes a non-negative "revision", and nothing else. Changes
// go through With and Next, which validate again and return new instances.
package model

// Package attr defines the attribute values carried by model instances.
//
// Values form a sealed family: Null, String, Int, Bool, List and Set. A Set
// maps attribute names to values and is what every model instance, query and
// stored document is made of. attr imports nothing internal.
//
// Floats are not representable. Numbers are int64 so that canonical
// encodings, digests and equality stay exact across backends.
package attr

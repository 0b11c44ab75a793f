// Package invoice defines the canonical Thai tax invoice record and the
// values derived from it.
//
// A Record holds every field as a string. Monetary fields are two-decimal
// strings rendered from an integer number of satang (Amount), so values
// survive any number of serialization round trips unchanged.
//
// Validation is always recomputed from a Record with Validate; reports are
// never cached alongside the record they describe.
package invoice

// Package mappings holds the three-namespace symbol record model shared by
// the tiny and proguard table parsers, and the pivot-keyed Index built from it.
//
// Every symbol is known under three names:
//
//   - official: the obfuscated name as compiled
//   - intermediate: a stable generated name that bridges versions
//   - named: the human readable name
package mappings

import "errors"

var (
	// ErrDuplicateKey is returned when two distinct records collapse onto one index key
	ErrDuplicateKey = errors.New("duplicate mapping key")
	// ErrNoActiveClass is returned when a member row appears before any class row
	ErrNoActiveClass = errors.New("member row without an active class")
	// ErrMalformedRow is returned for table rows that do not match their dialect
	ErrMalformedRow = errors.New("malformed mapping row")
)

// ClassMapping identifies one type across the three namespaces
type ClassMapping struct {
	Official     string `json:"official"`
	Intermediate string `json:"intermediate"`
	Named        string `json:"named"`
}

// IsObfuscated is false for types that were never renamed (e.g. entry points)
func (c ClassMapping) IsObfuscated() bool {
	return !(c.Official == c.Intermediate && c.Intermediate == c.Named)
}

// MethodMapping is a method of Owner.
// Signature is expressed with named class names, OfficialSignature with official ones.
type MethodMapping struct {
	Owner             ClassMapping `json:"owner"`
	Signature         string       `json:"signature"`
	OfficialSignature string       `json:"official_signature"`
	Official          string       `json:"official"`
	Intermediate      string       `json:"intermediate"`
	Named             string       `json:"named"`
}

// FieldMapping is a field of Owner.
// Descriptor is expressed with named class names, OfficialDescriptor with official ones.
type FieldMapping struct {
	Owner              ClassMapping `json:"owner"`
	Descriptor         string       `json:"descriptor"`
	OfficialDescriptor string       `json:"official_descriptor"`
	Official           string       `json:"official"`
	Intermediate       string       `json:"intermediate"`
	Named              string       `json:"named"`
}

// Records is the flat, unkeyed output of a table parser.
// It is also the cache snapshot payload.
type Records struct {
	Classes []ClassMapping  `json:"classes"`
	Methods []MethodMapping `json:"methods"`
	Fields  []FieldMapping  `json:"fields"`
}

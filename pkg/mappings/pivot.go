package mappings

import "fmt"

// Pivot selects the namespace an Index is keyed on
type Pivot interface {
	Name() string
	Class(c ClassMapping) string
	Method(m MethodMapping) (name, signature string)
	Field(f FieldMapping) string
}

type namedPivot struct{}

func (namedPivot) Name() string { return "named" }
func (namedPivot) Class(c ClassMapping) string { return c.Named }
func (namedPivot) Field(f FieldMapping) string { return f.Named }
func (namedPivot) Method(m MethodMapping) (string, string) {
	return m.Named, m.Signature
}

type officialPivot struct{}

func (officialPivot) Name() string { return "official" }
func (officialPivot) Class(c ClassMapping) string { return c.Official }
func (officialPivot) Field(f FieldMapping) string { return f.Official }
func (officialPivot) Method(m MethodMapping) (string, string) {
	return m.Official, m.OfficialSignature
}

var (
	// NamedPivot keys an index on named names; it translates named disassembly
	// into the intermediate namespace.
	NamedPivot Pivot = namedPivot{}
	// OfficialPivot keys an index on official names; it translates an official
	// identity into the final display namespace.
	OfficialPivot Pivot = officialPivot{}
)

// PivotByName returns the pivot registered under name
func PivotByName(name string) (Pivot, error) {
	switch name {
	case NamedPivot.Name():
		return NamedPivot, nil
	case OfficialPivot.Name():
		return OfficialPivot, nil
	default:
		return nil, fmt.Errorf("unknown pivot %q", name)
	}
}

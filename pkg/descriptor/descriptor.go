// Package descriptor parses and encodes JVM type descriptors and method signatures.
package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDescriptor is wrapped by every decoding failure
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// DecodeError reports where a descriptor failed to decode
type DecodeError struct {
	Descriptor string
	Offset     int
	Reason     string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid descriptor %q at offset %d: %s", e.Descriptor, e.Offset, e.Reason)
}

func (e *DecodeError) Unwrap() error { return ErrInvalidDescriptor }

// primitive type codes
const (
	Boolean byte = 'Z'
	Byte    byte = 'B'
	Char    byte = 'C'
	Double  byte = 'D'
	Float   byte = 'F'
	Int     byte = 'I'
	Long    byte = 'J'
	Short   byte = 'S'
	Void    byte = 'V'
	Object  byte = 'L'
)

// Type is a single decoded type.
//
// Object types carry their internal (slash separated) name opaquely; callers
// that need superclass or interface facts resolve the name against a type
// provider themselves.
type Type struct {
	Dims int
	Kind byte
	Name string
}

func (t Type) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("[", t.Dims))
	sb.WriteByte(t.Kind)
	if t.Kind == Object {
		sb.WriteString(t.Name)
		sb.WriteByte(';')
	}
	return sb.String()
}

// ObjectType returns the descriptor type for an internal class name
func ObjectType(name string) Type {
	return Type{Kind: Object, Name: name}
}

// ArrayOf returns t with dims more array dimensions
func ArrayOf(t Type, dims int) Type {
	t.Dims += dims
	return t
}

// Descriptor is a decoded method signature
type Descriptor struct {
	Return Type
	Params []Type
}

func (d *Descriptor) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range d.Params {
		sb.WriteString(p.String())
	}
	sb.WriteByte(')')
	sb.WriteString(d.Return.String())
	return sb.String()
}

// ParamDescriptors returns the encoded parameter types in call-site order
func (d *Descriptor) ParamDescriptors() []string {
	params := make([]string, 0, len(d.Params))
	for _, p := range d.Params {
		params = append(params, p.String())
	}
	return params
}

// Parse decodes a method signature of the form '(' param* ')' return
func Parse(raw string) (*Descriptor, error) {
	if len(raw) == 0 || raw[0] != '(' {
		return nil, &DecodeError{Descriptor: raw, Offset: 0, Reason: "expected '('"}
	}

	d := &Descriptor{Params: []Type{}}

	i := 1
	for {
		if i >= len(raw) {
			return nil, &DecodeError{Descriptor: raw, Offset: i, Reason: "missing ')'"}
		}
		if raw[i] == ')' {
			i++
			break
		}
		t, n, err := scanType(raw, i)
		if err != nil {
			return nil, err
		}
		if t.Kind == Void {
			return nil, &DecodeError{Descriptor: raw, Offset: i, Reason: "void parameter"}
		}
		d.Params = append(d.Params, t)
		i = n
	}

	ret, n, err := scanType(raw, i)
	if err != nil {
		return nil, err
	}
	if n != len(raw) {
		return nil, &DecodeError{Descriptor: raw, Offset: n, Reason: "trailing characters"}
	}
	d.Return = ret

	return d, nil
}

// ParseType decodes a single field descriptor
func ParseType(raw string) (Type, error) {
	t, n, err := scanType(raw, 0)
	if err != nil {
		return Type{}, err
	}
	if n != len(raw) {
		return Type{}, &DecodeError{Descriptor: raw, Offset: n, Reason: "trailing characters"}
	}
	if t.Kind == Void && t.Dims > 0 {
		return Type{}, &DecodeError{Descriptor: raw, Offset: 0, Reason: "array of void"}
	}
	return t, nil
}

// scanType decodes one type starting at off and returns the offset just past it
func scanType(raw string, off int) (Type, int, error) {
	var t Type

	i := off
	for i < len(raw) && raw[i] == '[' {
		t.Dims++
		i++
	}
	if i >= len(raw) {
		return t, i, &DecodeError{Descriptor: raw, Offset: i, Reason: "unexpected end"}
	}

	switch c := raw[i]; c {
	case Boolean, Byte, Char, Double, Float, Int, Long, Short, Void:
		if c == Void && t.Dims > 0 {
			return t, i, &DecodeError{Descriptor: raw, Offset: i, Reason: "array of void"}
		}
		t.Kind = c
		return t, i + 1, nil
	case Object:
		end := strings.IndexByte(raw[i+1:], ';')
		if end < 0 {
			return t, i, &DecodeError{Descriptor: raw, Offset: i, Reason: "unterminated object type"}
		}
		if end == 0 {
			return t, i, &DecodeError{Descriptor: raw, Offset: i, Reason: "empty object type"}
		}
		t.Kind = Object
		t.Name = raw[i+1 : i+1+end]
		return t, i + end + 2, nil
	default:
		return t, i, &DecodeError{Descriptor: raw, Offset: i, Reason: fmt.Sprintf("unexpected character %q", c)}
	}
}

package descriptor

import "strings"

// NameLookup maps a class name from one namespace to another
type NameLookup func(name string) (string, bool)

// MapClassNames rewrites every object reference embedded in desc through
// lookup. desc is either a method signature or a bare field descriptor.
// References lookup does not know are left as they are.
func MapClassNames(desc string, lookup NameLookup) (string, error) {
	if desc == "" {
		return "", nil
	}

	var sb strings.Builder
	sb.Grow(len(desc))

	i := 0
	if desc[0] == '(' {
		sb.WriteByte('(')
		i = 1
		for {
			if i >= len(desc) {
				return "", &DecodeError{Descriptor: desc, Offset: i, Reason: "missing ')'"}
			}
			if desc[i] == ')' {
				sb.WriteByte(')')
				i++
				break
			}
			n, err := mapOne(&sb, desc, i, lookup)
			if err != nil {
				return "", err
			}
			i = n
		}
	}

	n, err := mapOne(&sb, desc, i, lookup)
	if err != nil {
		return "", err
	}
	if n != len(desc) {
		return "", &DecodeError{Descriptor: desc, Offset: n, Reason: "trailing characters"}
	}

	return sb.String(), nil
}

func mapOne(sb *strings.Builder, desc string, off int, lookup NameLookup) (int, error) {
	t, n, err := scanType(desc, off)
	if err != nil {
		return 0, err
	}
	if t.Kind == Object {
		if mapped, ok := lookup(t.Name); ok {
			t.Name = mapped
		}
	}
	sb.WriteString(t.String())
	return n, nil
}

// MapLookup adapts a plain map to a NameLookup
func MapLookup(m map[string]string) NameLookup {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}
